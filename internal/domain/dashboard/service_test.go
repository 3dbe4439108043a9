// internal/domain/dashboard/service_test.go
package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
	"github.com/your-org/erp-backend/internal/domain/sales"
	"github.com/your-org/erp-backend/internal/domain/workorder"
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
		&item.Item{},
		&inventory.Lot{}, &inventory.Transaction{},
		&purchasing.PurchaseRequest{}, &purchasing.PurchaseOrder{},
		&workorder.WorkOrder{},
		&sales.Sale{},
	))
	return db
}

func TestGetSummaryWithoutCache(t *testing.T) {
	db := setupTestDB(t)
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC))
	service := NewService(db, nil, &config.Config{}, mock)

	require.NoError(t, db.Create(&workorder.WorkOrder{WONumber: "WO-2025-0001", ItemID: 1, Quantity: 5, Status: workorder.StatusBlocked}).Error)
	require.NoError(t, db.Create(&workorder.WorkOrder{WONumber: "WO-2025-0002", ItemID: 2, Quantity: 1, Status: workorder.StatusReady}).Error)
	require.NoError(t, db.Create(&purchasing.PurchaseRequest{ItemID: 3, Quantity: 10, Priority: purchasing.PriorityUrgent, Status: purchasing.RequestPending}).Error)
	require.NoError(t, db.Create(&sales.Sale{SaleNumber: "SO-2025-0001", CustomerID: 1, Status: sales.StatusPending, OrderDate: mock.Now()}).Error)

	summary, err := service.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.WorkOrdersByStatus["blocked"])
	assert.Equal(t, int64(1), summary.WorkOrdersByStatus["ready"])
	assert.Equal(t, int64(1), summary.PendingRequests)
	assert.Equal(t, int64(1), summary.UrgentRequests)
	assert.Equal(t, int64(1), summary.OpenSales)
	assert.True(t, summary.GeneratedAt.Equal(mock.Now()))
}

func TestLowStockDetection(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, &config.Config{}, clock.NewMock())

	low := item.Item{Code: "BOLT", Name: "Bolt", MinStock: 10, IsActive: true}
	require.NoError(t, db.Create(&low).Error)
	fine := item.Item{Code: "NUT", Name: "Nut", MinStock: 5, IsActive: true}
	require.NoError(t, db.Create(&fine).Error)

	require.NoError(t, db.Create(&inventory.Lot{ItemID: low.ID, Quantity: 8, ReservationQty: 2}).Error)
	require.NoError(t, db.Create(&inventory.Lot{ItemID: fine.ID, Quantity: 50}).Error)

	summary, err := service.GetSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.LowStockItems, 1)
	assert.Equal(t, low.ID, summary.LowStockItems[0].ItemID)
	assert.InDelta(t, 6, summary.LowStockItems[0].Available, 1e-9)
}
