// internal/domain/inventory/service_test.go
package inventory

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
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Lot{}, &Transaction{}))
	return db
}

func createLotAt(t *testing.T, db *gorm.DB, itemID uint, qty float64, createdAt time.Time) *Lot {
	lot := Lot{ItemID: itemID, Quantity: qty, CreatedAt: createdAt}
	require.NoError(t, db.Create(&lot).Error)
	return &lot
}

func TestSelectLotsFIFO(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	oldest := createLotAt(t, db, 1, 10, base)
	middle := createLotAt(t, db, 1, 5, base.Add(24*time.Hour))
	newest := createLotAt(t, db, 1, 20, base.Add(48*time.Hour))

	plan, remaining, err := SelectLotsFIFO(db, 1, 12)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	require.Len(t, plan, 2)
	assert.Equal(t, oldest.ID, plan[0].Lot.ID)
	assert.InDelta(t, 10, plan[0].Quantity, 1e-9)
	assert.Equal(t, middle.ID, plan[1].Lot.ID)
	assert.InDelta(t, 2, plan[1].Quantity, 1e-9)

	// Fully reserved lots are skipped.
	require.NoError(t, db.Model(oldest).Update("reservation_qty", 10).Error)
	plan, remaining, err = SelectLotsFIFO(db, 1, 12)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	require.Len(t, plan, 2)
	assert.Equal(t, middle.ID, plan[0].Lot.ID)
	assert.Equal(t, newest.ID, plan[1].Lot.ID)
}

func TestSelectLotsFIFOShortfall(t *testing.T) {
	db := setupTestDB(t)
	createLotAt(t, db, 1, 4, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	plan, remaining, err := SelectLotsFIFO(db, 1, 10)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.InDelta(t, 4, plan[0].Quantity, 1e-9)
	assert.InDelta(t, 6, remaining, 1e-9)
}

func TestReserveStrict(t *testing.T) {
	db := setupTestDB(t)
	lot := createLotAt(t, db, 1, 10, time.Now())

	updated, err := Reserve(db, lot.ID, 6, PolicyStrict)
	require.NoError(t, err)
	assert.InDelta(t, 6, updated.ReservationQty, 1e-9)
	assert.InDelta(t, 4, updated.Available(), 1e-9)

	_, err = Reserve(db, lot.ID, 5, PolicyStrict)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The failed attempt must not change the reservation.
	var check Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 6, check.ReservationQty, 1e-9)
}

func TestReserveAllowNegative(t *testing.T) {
	db := setupTestDB(t)
	lot := createLotAt(t, db, 1, 10, time.Now())

	updated, err := Reserve(db, lot.ID, 25, PolicyAllowNegative)
	require.NoError(t, err)
	assert.InDelta(t, 25, updated.ReservationQty, 1e-9)
	assert.InDelta(t, -15, updated.Available(), 1e-9)
}

func TestReserveUnknownLot(t *testing.T) {
	db := setupTestDB(t)
	_, err := Reserve(db, 999, 1, PolicyStrict)
	assert.ErrorIs(t, err, ErrLotNotFound)
}

func TestReleaseFloorsAtZero(t *testing.T) {
	db := setupTestDB(t)
	lot := createLotAt(t, db, 1, 10, time.Now())
	_, err := Reserve(db, lot.ID, 3, PolicyStrict)
	require.NoError(t, err)

	updated, err := Release(db, lot.ID, 8)
	require.NoError(t, err)
	assert.Zero(t, updated.ReservationQty)
}

func TestConsumeWritesLedger(t *testing.T) {
	db := setupTestDB(t)
	lot := createLotAt(t, db, 1, 10, time.Now())
	_, err := Reserve(db, lot.ID, 4, PolicyStrict)
	require.NoError(t, err)

	at := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	updated, err := Consume(db, lot.ID, 4, TransactionKitUsage, at, "build")
	require.NoError(t, err)
	assert.InDelta(t, 6, updated.Quantity, 1e-9)
	assert.Zero(t, updated.ReservationQty)

	var entry Transaction
	require.NoError(t, db.Where("lot_id = ?", lot.ID).First(&entry).Error)
	assert.Equal(t, TransactionKitUsage, entry.Type)
	assert.InDelta(t, -4, entry.Quantity, 1e-9)
	assert.Equal(t, uint(1), entry.ItemID)
	assert.True(t, entry.TransactionDate.Equal(at))
}

func TestConsumeCanGoNegative(t *testing.T) {
	db := setupTestDB(t)
	lot := createLotAt(t, db, 1, 3, time.Now())

	updated, err := Consume(db, lot.ID, 5, TransactionKitUsage, time.Now(), "")
	require.NoError(t, err)
	assert.InDelta(t, -2, updated.Quantity, 1e-9)
}

func TestCreateLotWritesLedger(t *testing.T) {
	db := setupTestDB(t)

	at := time.Date(2025, 3, 6, 8, 0, 0, 0, time.UTC)
	lot := Lot{ItemID: 2, Quantity: 50, BatchNumber: "B-1", Location: "Warehouse"}
	require.NoError(t, CreateLot(db, &lot, TransactionPurchase, at, "receipt"))
	assert.NotZero(t, lot.ID)

	var entry Transaction
	require.NoError(t, db.Where("lot_id = ?", lot.ID).First(&entry).Error)
	assert.Equal(t, TransactionPurchase, entry.Type)
	assert.InDelta(t, 50, entry.Quantity, 1e-9)
}

func TestAvailableForItem(t *testing.T) {
	db := setupTestDB(t)
	createLotAt(t, db, 1, 10, time.Now())
	lot := createLotAt(t, db, 1, 5, time.Now())
	_, err := Reserve(db, lot.ID, 2, PolicyStrict)
	require.NoError(t, err)
	createLotAt(t, db, 2, 100, time.Now())

	available, err := AvailableForItem(db, 1)
	require.NoError(t, err)
	assert.InDelta(t, 13, available, 1e-9)

	available, err = AvailableForItem(db, 3)
	require.NoError(t, err)
	assert.Zero(t, available)
}

func TestAdjust(t *testing.T) {
	db := setupTestDB(t)
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	service := NewService(db, &config.Config{}, mock)

	lot := createLotAt(t, db, 1, 10, time.Now())

	updated, err := service.Adjust(lot.ID, &AdjustRequest{Quantity: -3, Notes: "damage"})
	require.NoError(t, err)
	assert.InDelta(t, 7, updated.Quantity, 1e-9)

	var entry Transaction
	require.NoError(t, db.Where("lot_id = ?", lot.ID).First(&entry).Error)
	assert.Equal(t, TransactionAdjustment, entry.Type)
	assert.InDelta(t, -3, entry.Quantity, 1e-9)
	assert.True(t, entry.TransactionDate.Equal(mock.Now()))

	_, err = service.Adjust(lot.ID, &AdjustRequest{Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
