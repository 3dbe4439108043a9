// internal/domain/quotation/service_test.go
package quotation

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
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/sales"
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
		&sales.Sale{}, &sales.SaleDetail{},
		&Quotation{}, &QuotationDetail{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC))
	return NewService(db, &config.Config{}, mock)
}

func makeQuote(t *testing.T, service *Service) *Quotation {
	t.Helper()
	quote, err := service.Create(&CreateQuotationRequest{
		CustomerID: 1,
		Lines: []CreateQuotationLine{
			{ItemID: 1, Quantity: 4, UnitPrice: 25},
			{ItemID: 2, Quantity: 1, UnitPrice: 100},
		},
	})
	require.NoError(t, err)
	return quote
}

func TestCreateAssignsNumber(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	quote := makeQuote(t, service)
	assert.Equal(t, "QT-2025-0001", quote.QuoteNumber)
	assert.Equal(t, StatusDraft, quote.Status)
	assert.Len(t, quote.Details, 2)
}

func TestConvertRequiresAccepted(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	quote := makeQuote(t, service)

	_, _, err := service.ConvertToSale(quote.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConvertToSale(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	quote := makeQuote(t, service)

	_, err := service.UpdateStatus(quote.ID, StatusAccepted)
	require.NoError(t, err)

	converted, sale, err := service.ConvertToSale(quote.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConverted, converted.Status)
	require.NotNil(t, converted.SaleID)
	assert.Equal(t, sale.ID, *converted.SaleID)
	assert.Equal(t, "SO-2025-0001", sale.SaleNumber)

	// Lines carry over with their quoted prices.
	var details []sales.SaleDetail
	require.NoError(t, db.Where("sale_id = ?", sale.ID).Order("id ASC").Find(&details).Error)
	require.Len(t, details, 2)
	assert.Equal(t, uint(1), details[0].ItemID)
	assert.InDelta(t, 25, details[0].UnitPrice, 1e-9)
	assert.InDelta(t, 1, details[1].Quantity, 1e-9)

	// Converting twice is refused.
	_, _, err = service.ConvertToSale(quote.ID)
	assert.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestUpdateStatusCannotForceConverted(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	quote := makeQuote(t, service)

	_, err := service.UpdateStatus(quote.ID, StatusConverted)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
