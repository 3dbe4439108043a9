// internal/domain/workorder/service_test.go
package workorder

import (
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/bom"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
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
		&bom.BOM{}, &bom.BOMComponent{},
		&inventory.Lot{}, &inventory.Transaction{},
		&purchasing.PurchaseRequest{},
		&WorkOrder{}, &Component{}, &ComponentAllocation{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewService(db, &config.Config{}, mock, log), mock
}

type bomLine struct {
	itemID uint
	qty    float64
}

func makeBOM(t *testing.T, db *gorm.DB, finishedItemID uint, lines ...bomLine) {
	t.Helper()
	b := bom.BOM{FinishedItemID: finishedItemID, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	for _, line := range lines {
		require.NoError(t, db.Create(&bom.BOMComponent{
			BOMID:    b.ID,
			ItemID:   line.itemID,
			Quantity: line.qty,
		}).Error)
	}
}

func makeLot(t *testing.T, db *gorm.DB, itemID uint, qty float64, createdAt time.Time) *inventory.Lot {
	t.Helper()
	lot := inventory.Lot{ItemID: itemID, Quantity: qty, CreatedAt: createdAt}
	require.NoError(t, db.Create(&lot).Error)
	return &lot
}

// Item IDs used throughout: 1 bike, 2 wheel (sub-assembly), 3 frame,
// 4 spoke.
func makeBikeBOMs(t *testing.T, db *gorm.DB) {
	makeBOM(t, db, 1, bomLine{itemID: 2, qty: 2}, bomLine{itemID: 3, qty: 1})
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
}

func TestCreateFromBOMExplodesTree(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	makeBikeBOMs(t, db)

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 5})
	require.NoError(t, err)

	assert.Equal(t, "WO-2025-0001", root.WONumber)
	assert.Equal(t, StatusBlocked, root.Status)
	require.Len(t, root.Components, 2)
	assert.InDelta(t, 10, root.Components[0].Quantity, 1e-9) // wheels
	assert.InDelta(t, 5, root.Components[1].Quantity, 1e-9)  // frames

	require.Len(t, root.Children, 1)
	child, err := service.GetByID(root.Children[0].ID)
	require.NoError(t, err)

	// The wheel line is satisfied by the child order, not stock.
	assert.True(t, root.Components[0].IsSubassembly)
	require.NotNil(t, root.Components[0].ChildWorkOrderID)
	assert.Equal(t, child.ID, *root.Components[0].ChildWorkOrderID)
	assert.False(t, root.Components[1].IsSubassembly)

	assert.Equal(t, "WO-2025-0002", child.WONumber)
	assert.Equal(t, StatusPending, child.Status)
	assert.Equal(t, uint(2), child.ItemID)
	assert.InDelta(t, 10, child.Quantity, 1e-9)
	require.Len(t, child.Components, 1)
	assert.InDelta(t, 20, child.Components[0].Quantity, 1e-9) // spokes
	assert.Empty(t, child.Children)
}

func TestCreateFromBOMRequiresBOM(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)

	_, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 7, Quantity: 1})
	assert.ErrorIs(t, err, ErrNoBOM)
}

func TestCreateFromBOMDetectsCycleAtomically(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)

	// Build the cyclic graph directly; BOM maintenance would refuse it.
	makeBOM(t, db, 1, bomLine{itemID: 2, qty: 1})
	makeBOM(t, db, 2, bomLine{itemID: 1, qty: 1})

	_, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrBOMCycle)

	var count int64
	require.NoError(t, db.Model(&WorkOrder{}).Count(&count).Error)
	assert.Zero(t, count, "no partial tree may survive a failed creation")
}

func TestAllocatePartialBlocksAndRequests(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	lot := makeLot(t, db, 4, 4, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)

	allocated, err := service.Allocate(wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, allocated.Status)
	require.Len(t, allocated.Components, 1)
	assert.InDelta(t, 4, allocated.Components[0].AllocatedQty, 1e-9)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 4, check.ReservationQty, 1e-9)

	// The uncovered 6 units become a pending purchase request traced back
	// to the work order.
	var request purchasing.PurchaseRequest
	require.NoError(t, db.Where("item_id = ?", 4).First(&request).Error)
	assert.Equal(t, purchasing.RequestPending, request.Status)
	assert.Equal(t, purchasing.PriorityNormal, request.Priority)
	assert.InDelta(t, 6, request.Quantity, 1e-9)
	assert.Equal(t, purchasing.SourceWorkOrder, request.SourceType)
	require.NotNil(t, request.SourceID)
	assert.Equal(t, wo.ID, *request.SourceID)
}

func TestAllocateFullCoveragePromotesReady(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})

	// Two lots, oldest first.
	first := makeLot(t, db, 4, 6, mock.Now().Add(-2*time.Hour))
	second := makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)

	allocated, err := service.Allocate(wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, allocated.Status)

	// FIFO: the oldest lot drains fully before the newer one is touched.
	var lots []inventory.Lot
	require.NoError(t, db.Order("id ASC").Find(&lots, []uint{first.ID, second.ID}).Error)
	assert.InDelta(t, 6, lots[0].ReservationQty, 1e-9)
	assert.InDelta(t, 4, lots[1].ReservationQty, 1e-9)

	var count int64
	require.NoError(t, db.Model(&purchasing.PurchaseRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAllocateIsIdempotentOnCoveredComponents(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	lot := makeLot(t, db, 4, 50, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)

	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)
	again, err := service.Allocate(wo.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10, again.Components[0].AllocatedQty, 1e-9)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 10, check.ReservationQty, 1e-9)
}

func TestStartRefusesWithShortageVerdict(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)

	// No spoke stock: the attempt is refused with a verdict, not an error.
	result, err := service.Start(wo.ID)
	require.NoError(t, err)
	assert.False(t, result.Started)
	assert.Equal(t, ReasonMaterialShortage, result.Reason)
	require.Len(t, result.Shortages, 1)
	assert.Equal(t, uint(4), result.Shortages[0].ItemID)
	assert.InDelta(t, 10, result.Shortages[0].Required, 1e-9)
	assert.InDelta(t, 10, result.Shortages[0].Shortage, 1e-9)

	reloaded, err := service.GetByID(wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, reloaded.Status)
}

func TestStartRejectsFinishedOrders(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)
	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)
	_, err = service.Start(wo.ID)
	require.NoError(t, err)

	_, err = service.Start(wo.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCompletePartialBackflush(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	lot := makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)
	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)
	started, err := service.Start(wo.ID)
	require.NoError(t, err)
	assert.True(t, started.Started)
	require.NotNil(t, started.WorkOrder.ActualStartDate)

	// Report 2 of 5: consumption is proportional, 10 * 2/5 = 4 spokes.
	completed, err := service.Complete(wo.ID, &CompleteRequest{Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, completed.Status)
	assert.InDelta(t, 2, completed.CompletedQuantity, 1e-9)
	assert.InDelta(t, 4, completed.Components[0].ConsumedQty, 1e-9)
	assert.InDelta(t, 6, completed.Components[0].AllocatedQty, 1e-9)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 16, check.Quantity, 1e-9)
	assert.InDelta(t, 6, check.ReservationQty, 1e-9)

	// Output entered stock in the Production location.
	var output inventory.Lot
	require.NoError(t, db.Where("item_id = ? AND location = ?", 2, "Production").First(&output).Error)
	assert.InDelta(t, 2, output.Quantity, 1e-9)
	assert.Contains(t, output.BatchNumber, completed.WONumber)

	var usage inventory.Transaction
	require.NoError(t, db.Where("lot_id = ? AND transaction_type = ?", lot.ID, inventory.TransactionKitUsage).
		First(&usage).Error)
	assert.InDelta(t, -4, usage.Quantity, 1e-9)

	var production inventory.Transaction
	require.NoError(t, db.Where("lot_id = ? AND transaction_type = ?", output.ID, inventory.TransactionKitProduction).
		First(&production).Error)
	assert.InDelta(t, 2, production.Quantity, 1e-9)

	// Reporting the remaining 3 finishes the order.
	final, err := service.Complete(wo.ID, &CompleteRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.ActualEndDate)
	assert.InDelta(t, 5, final.CompletedQuantity, 1e-9)
}

func TestCompleteOverdrawRaisesUrgentRequest(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	lot := makeLot(t, db, 4, 4, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)
	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)

	// Operator override: run the order despite the shortfall.
	require.NoError(t, db.Model(&WorkOrder{}).Where("id = ?", wo.ID).
		Update("status", StatusInProgress).Error)

	completed, err := service.Complete(wo.ID, &CompleteRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	// 10 needed, 4 allocated: the lot is overdrawn to -6.
	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, -6, check.Quantity, 1e-9)

	// Allocation already requested 6 at normal priority; the overdraw
	// merges into it and upgrades it to urgent.
	var request purchasing.PurchaseRequest
	require.NoError(t, db.Where("item_id = ? AND status = ?", 4, purchasing.RequestPending).
		First(&request).Error)
	assert.Equal(t, purchasing.PriorityUrgent, request.Priority)
	assert.InDelta(t, 12, request.Quantity, 1e-9)
}

func TestCompletedChildPromotesParent(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBikeBOMs(t, db)
	makeLot(t, db, 4, 20, mock.Now().Add(-2*time.Hour)) // spokes
	makeLot(t, db, 3, 5, mock.Now().Add(-time.Hour))    // frames

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 5})
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	childID := root.Children[0].ID

	_, err = service.Allocate(childID)
	require.NoError(t, err)
	_, err = service.Start(childID)
	require.NoError(t, err)
	_, err = service.Complete(childID, &CompleteRequest{Quantity: 10})
	require.NoError(t, err)

	// The wheel line is a subassembly satisfied by the finished child and
	// the frame lot covers the rest, so the post-completion re-check
	// promotes the parent from blocked to ready.
	parent, err := service.GetByID(root.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, parent.Status)
}

func TestBlockedParentStaysBlockedOnShortage(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBikeBOMs(t, db)
	makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour)) // spokes only, no frames

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 5})
	require.NoError(t, err)
	childID := root.Children[0].ID

	_, err = service.Allocate(childID)
	require.NoError(t, err)
	_, err = service.Start(childID)
	require.NoError(t, err)
	_, err = service.Complete(childID, &CompleteRequest{Quantity: 10})
	require.NoError(t, err)

	parent, err := service.GetByID(root.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, parent.Status, "missing frames keep the parent blocked")
}

func TestCancelReleasesReservations(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	lot := makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)
	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)

	cancelled, err := service.Cancel(wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Zero(t, cancelled.Components[0].AllocatedQty)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.Zero(t, check.ReservationQty)

	var count int64
	require.NoError(t, db.Model(&ComponentAllocation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCancelCascadesOneLevelOnly(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)

	// Three-level chain: 1 <- 2 <- 3, with 4 as the purchased leaf.
	makeBOM(t, db, 1, bomLine{itemID: 2, qty: 1})
	makeBOM(t, db, 2, bomLine{itemID: 3, qty: 1})
	makeBOM(t, db, 3, bomLine{itemID: 4, qty: 1})

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 1})
	require.NoError(t, err)
	child, err := service.GetByID(root.Children[0].ID)
	require.NoError(t, err)
	require.Len(t, child.Children, 1)
	grandchildID := child.Children[0].ID

	cancelled, err := service.Cancel(root.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	child, err = service.GetByID(child.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, child.Status)

	grandchild, err := service.GetByID(grandchildID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, grandchild.Status, "cascade stops at direct children")
}

func TestCancelCompletedFails(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)
	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)
	_, err = service.Start(wo.ID)
	require.NoError(t, err)
	_, err = service.Complete(wo.ID, &CompleteRequest{Quantity: 5})
	require.NoError(t, err)

	_, err = service.Cancel(wo.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateManualWorkOrder(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)

	wo, err := service.Create(&CreateManualRequest{
		ItemID:   9,
		Quantity: 3,
		Components: []ManualComponent{
			{ItemID: 4, Quantity: 12},
			{ItemID: 3, Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "WO-2025-0001", wo.WONumber)
	assert.Equal(t, StatusPending, wo.Status)
	assert.Equal(t, PriorityNormal, wo.Priority)
	assert.Nil(t, wo.BOMID)
	require.NotNil(t, wo.RootWOID)
	assert.Equal(t, wo.ID, *wo.RootWOID)
	assert.Empty(t, wo.Children)
	require.Len(t, wo.Components, 2)
	assert.InDelta(t, 12, wo.Components[0].Quantity, 1e-9)
}

func TestProgressReflectsCompletedQuantity(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	makeLot(t, db, 4, 20, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)
	assert.Zero(t, wo.Progress)

	_, err = service.Allocate(wo.ID)
	require.NoError(t, err)
	_, err = service.Start(wo.ID)
	require.NoError(t, err)
	partial, err := service.Complete(wo.ID, &CompleteRequest{Quantity: 2})
	require.NoError(t, err)
	assert.InDelta(t, 40, partial.Progress, 1e-9)

	final, err := service.Complete(wo.ID, &CompleteRequest{Quantity: 3})
	require.NoError(t, err)
	assert.InDelta(t, 100, final.Progress, 1e-9)
}

func TestParentCompletionLeavesChildOutputIntact(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBikeBOMs(t, db)
	makeLot(t, db, 4, 20, mock.Now().Add(-2*time.Hour)) // spokes
	makeLot(t, db, 3, 5, mock.Now().Add(-time.Hour))    // frames

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 5})
	require.NoError(t, err)
	childID := root.Children[0].ID

	_, err = service.Allocate(childID)
	require.NoError(t, err)
	_, err = service.Start(childID)
	require.NoError(t, err)
	_, err = service.Complete(childID, &CompleteRequest{Quantity: 10})
	require.NoError(t, err)

	var wheelOutput inventory.Lot
	require.NoError(t, db.Where("item_id = ? AND location = ?", 2, "Production").First(&wheelOutput).Error)
	require.InDelta(t, 10, wheelOutput.Quantity, 1e-9)

	_, err = service.Allocate(root.ID)
	require.NoError(t, err)
	_, err = service.Start(root.ID)
	require.NoError(t, err)
	completed, err := service.Complete(root.ID, &CompleteRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	// The wheel line belongs to the child order: the parent's backflush
	// draws frames only and the child's output stays in stock untouched.
	var check inventory.Lot
	require.NoError(t, db.First(&check, wheelOutput.ID).Error)
	assert.InDelta(t, 10, check.Quantity, 1e-9)
	assert.Zero(t, check.ReservationQty)

	var usageCount int64
	require.NoError(t, db.Model(&inventory.Transaction{}).
		Where("lot_id = ? AND transaction_type = ?", wheelOutput.ID, inventory.TransactionKitUsage).
		Count(&usageCount).Error)
	assert.Zero(t, usageCount)

	for _, c := range completed.Components {
		if c.IsSubassembly {
			assert.Zero(t, c.ConsumedQty, "subassembly lines are never backflushed")
		} else {
			assert.InDelta(t, 5, c.ConsumedQty, 1e-9)
		}
	}
}

func TestCheckReadyReportsChildrenIncomplete(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBikeBOMs(t, db)
	makeLot(t, db, 3, 5, mock.Now().Add(-time.Hour))

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 5})
	require.NoError(t, err)

	result, err := service.CheckReady(root.ID)
	require.NoError(t, err)
	assert.False(t, result.Ready)
	assert.Equal(t, ReasonChildrenIncomplete, result.Reason)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, result.Shortages)
}

func TestCheckReadyReportsMaterialShortage(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeBOM(t, db, 2, bomLine{itemID: 4, qty: 2})
	makeLot(t, db, 4, 3, mock.Now().Add(-time.Hour))

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 5})
	require.NoError(t, err)

	result, err := service.CheckReady(wo.ID)
	require.NoError(t, err)
	assert.False(t, result.Ready)
	assert.Equal(t, ReasonMaterialShortage, result.Reason)
	require.Len(t, result.Shortages, 1)
	sh := result.Shortages[0]
	assert.Equal(t, uint(4), sh.ItemID)
	assert.InDelta(t, 10, sh.Required, 1e-9)
	assert.InDelta(t, 3, sh.Available, 1e-9)
	assert.InDelta(t, 7, sh.Shortage, 1e-9)
	assert.Equal(t, StatusBlocked, result.WorkOrder.Status)
}

func TestCreateFromBOMSetsRootDepthAndPriority(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	makeBikeBOMs(t, db)

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 5, Priority: PriorityHigh})
	require.NoError(t, err)

	require.NotNil(t, root.RootWOID)
	assert.Equal(t, root.ID, *root.RootWOID)
	assert.Zero(t, root.Depth)
	assert.Equal(t, PriorityHigh, root.Priority)

	child, err := service.GetByID(root.Children[0].ID)
	require.NoError(t, err)
	require.NotNil(t, child.RootWOID)
	assert.Equal(t, root.ID, *child.RootWOID)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, PriorityHigh, child.Priority)

	// The whole tree is reachable through one root_wo_id query.
	var count int64
	require.NoError(t, db.Model(&WorkOrder{}).Where("root_wo_id = ?", root.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestBOMOutputQuantityScalesDemand(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)

	// One build yields 2 wheels from 5 spokes.
	b := bom.BOM{FinishedItemID: 2, OutputQuantity: 2, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Create(&bom.BOMComponent{BOMID: b.ID, ItemID: 4, Quantity: 5}).Error)

	wo, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 2, Quantity: 10})
	require.NoError(t, err)
	require.Len(t, wo.Components, 1)
	assert.InDelta(t, 25, wo.Components[0].Quantity, 1e-9)
}

func TestGetTreeLoadsAllLevels(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	makeBOM(t, db, 1, bomLine{itemID: 2, qty: 1})
	makeBOM(t, db, 2, bomLine{itemID: 3, qty: 1})
	makeBOM(t, db, 3, bomLine{itemID: 4, qty: 1})

	root, err := service.CreateFromBOM(&CreateWorkOrderRequest{ItemID: 1, Quantity: 2})
	require.NoError(t, err)

	tree, err := service.GetTree(root.ID)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, uint(3), tree.Children[0].Children[0].ItemID)
}
