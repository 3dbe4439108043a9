// internal/domain/sales/service_test.go
package sales

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/customer"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/item"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&item.Item{}, &customer.Customer{},
		&inventory.Lot{}, &inventory.Transaction{},
		&Sale{}, &SaleDetail{}, &SaleAllocation{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	return NewService(db, &config.Config{}, mock), mock
}

func makeLot(t *testing.T, db *gorm.DB, itemID uint, qty float64) *inventory.Lot {
	t.Helper()
	lot := inventory.Lot{ItemID: itemID, Quantity: qty}
	require.NoError(t, db.Create(&lot).Error)
	return &lot
}

func makeSale(t *testing.T, service *Service, qty float64) *Sale {
	t.Helper()
	sale, err := service.Create(&CreateSaleRequest{
		CustomerID: 1,
		Lines:      []CreateSaleLine{{ItemID: 1, Quantity: qty, UnitPrice: 9.5}},
	})
	require.NoError(t, err)
	return sale
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)

	first := makeSale(t, service, 3)
	second := makeSale(t, service, 1)
	assert.Equal(t, "SO-2025-0001", first.SaleNumber)
	assert.Equal(t, "SO-2025-0002", second.SaleNumber)
	assert.Equal(t, StatusPending, first.Status)
}

func TestReserveLotStrict(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	lot := makeLot(t, db, 1, 5)
	sale := makeSale(t, service, 10)
	detail := sale.Details[0]

	// Strict policy: reserving more than the lot holds fails outright.
	_, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: detail.ID, LotID: lot.ID, Quantity: 8,
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	updated, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: detail.ID, LotID: lot.ID, Quantity: 5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 5, updated.Details[0].ReservedQty, 1e-9)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 5, check.ReservationQty, 1e-9)
}

func TestReserveLotRejectsOverReservation(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	lot := makeLot(t, db, 1, 50)
	sale := makeSale(t, service, 10)

	_, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: sale.Details[0].ID, LotID: lot.ID, Quantity: 11,
	})
	assert.ErrorIs(t, err, ErrOverReservation)
}

func TestReleaseLot(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	lot := makeLot(t, db, 1, 20)
	sale := makeSale(t, service, 10)
	detail := sale.Details[0]

	_, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: detail.ID, LotID: lot.ID, Quantity: 10,
	})
	require.NoError(t, err)

	updated, err := service.ReleaseLot(sale.ID, &ReleaseLotRequest{
		DetailID: detail.ID, LotID: lot.ID, Quantity: 4,
	})
	require.NoError(t, err)
	assert.InDelta(t, 6, updated.Details[0].ReservedQty, 1e-9)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 6, check.ReservationQty, 1e-9)

	_, err = service.ReleaseLot(sale.ID, &ReleaseLotRequest{
		DetailID: detail.ID, LotID: 999, Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrNothingToRelease)
}

func TestShipRequiresFullReservation(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	lot := makeLot(t, db, 1, 20)
	sale := makeSale(t, service, 10)

	_, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: sale.Details[0].ID, LotID: lot.ID, Quantity: 4,
	})
	require.NoError(t, err)

	_, err = service.Ship(sale.ID)
	assert.ErrorIs(t, err, ErrNotFullyReserved)
}

func TestShipConsumesReservations(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	lot := makeLot(t, db, 1, 20)
	sale := makeSale(t, service, 10)

	_, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: sale.Details[0].ID, LotID: lot.ID, Quantity: 10,
	})
	require.NoError(t, err)

	shipped, err := service.Ship(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)
	assert.True(t, shipped.ShippedAt.Equal(mock.Now()))

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 10, check.Quantity, 1e-9)
	assert.Zero(t, check.ReservationQty)

	var entry inventory.Transaction
	require.NoError(t, db.Where("lot_id = ?", lot.ID).First(&entry).Error)
	assert.Equal(t, inventory.TransactionSale, entry.Type)
	assert.InDelta(t, -10, entry.Quantity, 1e-9)

	// A shipped sale takes no further reservations.
	_, err = service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: sale.Details[0].ID, LotID: lot.ID, Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelReleasesEverything(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	lot := makeLot(t, db, 1, 20)
	sale := makeSale(t, service, 10)

	_, err := service.ReserveLot(sale.ID, &ReserveLotRequest{
		DetailID: sale.Details[0].ID, LotID: lot.ID, Quantity: 10,
	})
	require.NoError(t, err)

	cancelled, err := service.Cancel(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Zero(t, cancelled.Details[0].ReservedQty)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 20, check.Quantity, 1e-9)
	assert.Zero(t, check.ReservationQty)
}
