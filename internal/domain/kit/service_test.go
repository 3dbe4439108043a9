// internal/domain/kit/service_test.go
package kit

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
		&inventory.Lot{}, &inventory.Transaction{},
		&purchasing.PurchaseRequest{},
		&KitItem{}, &KitComponent{}, &KitAllocation{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC))

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewService(db, &config.Config{}, mock, log), mock
}

func makeLot(t *testing.T, db *gorm.DB, itemID uint, qty float64, createdAt time.Time) *inventory.Lot {
	t.Helper()
	lot := inventory.Lot{ItemID: itemID, Quantity: qty, CreatedAt: createdAt}
	require.NoError(t, db.Create(&lot).Error)
	return &lot
}

func uintPtr(v uint) *uint { return &v }

func makeKit(t *testing.T, service *Service, planned float64) *KitItem {
	t.Helper()
	kit, err := service.Create(&CreateKitRequest{
		KitNumber: "K-100",
		Name:      "Starter kit",
		ItemID:    uintPtr(1),
		Quantity:  planned,
		Components: []KitComponentInput{
			{ItemID: 2, QuantityPerKit: 2},
			{ItemID: 3, QuantityPerKit: 1},
		},
	})
	require.NoError(t, err)
	return kit
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	makeKit(t, service, 5)

	_, err := service.Create(&CreateKitRequest{
		KitNumber:  "K-100",
		Name:       "Duplicate",
		ItemID:     uintPtr(1),
		Quantity:   1,
		Components: []KitComponentInput{{ItemID: 2, QuantityPerKit: 1}},
	})
	assert.ErrorIs(t, err, ErrKitNumberExists)
}

func TestReserveCoveredNoWarnings(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeLot(t, db, 2, 20, mock.Now().Add(-time.Hour))
	makeLot(t, db, 3, 10, mock.Now().Add(-time.Hour))
	kit := makeKit(t, service, 5)

	result, err := service.Reserve(kit.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, StatusInProgress, result.Kit.Status)
	assert.InDelta(t, 10, result.Kit.Components[0].AllocatedQty, 1e-9)
	assert.InDelta(t, 5, result.Kit.Components[1].AllocatedQty, 1e-9)

	var count int64
	require.NoError(t, db.Model(&purchasing.PurchaseRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReserveShortfallGoesNegativeWithWarnings(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	lot := makeLot(t, db, 2, 4, mock.Now().Add(-time.Hour))
	makeLot(t, db, 3, 10, mock.Now().Add(-time.Hour))
	kit := makeKit(t, service, 5)

	result, err := service.Reserve(kit.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, result.Kit.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "short by 6.00")

	// The full requirement of 10 is booked on the only lot; availability
	// goes negative.
	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, 10, check.ReservationQty, 1e-9)
	assert.InDelta(t, -6, check.Available(), 1e-9)

	// Shortage turns into a normal priority request traced to the kit.
	var request purchasing.PurchaseRequest
	require.NoError(t, db.Where("item_id = ?", 2).First(&request).Error)
	assert.Equal(t, purchasing.PriorityNormal, request.Priority)
	assert.InDelta(t, 6, request.Quantity, 1e-9)
	assert.Equal(t, purchasing.SourceKitReserve, request.SourceType)
	require.NotNil(t, request.SourceID)
	assert.Equal(t, kit.ID, *request.SourceID)
}

func TestCompleteBuildBackflush(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	screwLot := makeLot(t, db, 2, 20, mock.Now().Add(-time.Hour))
	plateLot := makeLot(t, db, 3, 10, mock.Now().Add(-time.Hour))
	kit := makeKit(t, service, 5)

	_, err := service.Reserve(kit.ID)
	require.NoError(t, err)

	built, err := service.CompleteBuild(kit.ID, &CompleteBuildRequest{Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, built.Status)
	assert.InDelta(t, 2, built.CompletedQuantity, 1e-9)
	assert.InDelta(t, 4, built.Components[0].ConsumedQty, 1e-9)
	assert.InDelta(t, 6, built.Components[0].AllocatedQty, 1e-9)
	assert.InDelta(t, 2, built.Components[1].ConsumedQty, 1e-9)

	var screws inventory.Lot
	require.NoError(t, db.First(&screws, screwLot.ID).Error)
	assert.InDelta(t, 16, screws.Quantity, 1e-9)
	var plates inventory.Lot
	require.NoError(t, db.First(&plates, plateLot.ID).Error)
	assert.InDelta(t, 8, plates.Quantity, 1e-9)

	// Output lot lands in Assembly with the kit batch prefix.
	var output inventory.Lot
	require.NoError(t, db.Where("item_id = ? AND location = ?", 1, "Assembly").First(&output).Error)
	assert.InDelta(t, 2, output.Quantity, 1e-9)
	assert.Contains(t, output.BatchNumber, "KIT-K-100")

	var production inventory.Transaction
	require.NoError(t, db.Where("lot_id = ?", output.ID).First(&production).Error)
	assert.Equal(t, inventory.TransactionKitProduction, production.Type)

	// Remaining 3 kits finish the job.
	final, err := service.CompleteBuild(kit.ID, &CompleteBuildRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestCompleteBuildOverdrawRaisesUrgentRequest(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	lot := makeLot(t, db, 2, 4, mock.Now().Add(-time.Hour))
	makeLot(t, db, 3, 10, mock.Now().Add(-time.Hour))
	kit := makeKit(t, service, 5)

	_, err := service.Reserve(kit.ID)
	require.NoError(t, err)

	_, err = service.CompleteBuild(kit.ID, &CompleteBuildRequest{Quantity: 5})
	require.NoError(t, err)

	// 10 screws consumed against 4 on hand.
	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.InDelta(t, -6, check.Quantity, 1e-9)

	// The overdraw merges into the pending shortfall request and
	// upgrades it to urgent.
	var requests []purchasing.PurchaseRequest
	require.NoError(t, db.Where("item_id = ? AND status = ?", 2, purchasing.RequestPending).
		Find(&requests).Error)
	require.Len(t, requests, 1)
	assert.Equal(t, purchasing.PriorityUrgent, requests[0].Priority)
}

func TestCancelReleasesReservations(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	lot := makeLot(t, db, 2, 20, mock.Now().Add(-time.Hour))
	makeLot(t, db, 3, 10, mock.Now().Add(-time.Hour))
	kit := makeKit(t, service, 5)

	_, err := service.Reserve(kit.ID)
	require.NoError(t, err)

	cancelled, err := service.Cancel(kit.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Zero(t, cancelled.Components[0].AllocatedQty)

	var check inventory.Lot
	require.NoError(t, db.First(&check, lot.ID).Error)
	assert.Zero(t, check.ReservationQty)
}

func TestReservePinnedLotTakesFullRequirement(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	oldLot := makeLot(t, db, 2, 1, mock.Now().Add(-2*time.Hour))
	newLot := makeLot(t, db, 2, 9, mock.Now().Add(-time.Hour))

	kit, err := service.Create(&CreateKitRequest{
		KitNumber: "K-200",
		Name:      "Pinned kit",
		ItemID:    uintPtr(1),
		Quantity:  5,
		Components: []KitComponentInput{
			{ItemID: 2, LotID: &newLot.ID, QuantityPerKit: 2},
		},
	})
	require.NoError(t, err)

	result, err := service.Reserve(kit.ID)
	require.NoError(t, err)

	// All 10 units land on the pinned lot even though FIFO would start
	// with the older one; the 1-unit gap raises a warning.
	var pinned inventory.Lot
	require.NoError(t, db.First(&pinned, newLot.ID).Error)
	assert.InDelta(t, 10, pinned.ReservationQty, 1e-9)
	var untouched inventory.Lot
	require.NoError(t, db.First(&untouched, oldLot.ID).Error)
	assert.Zero(t, untouched.ReservationQty)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "short by 1.00")

	var allocations []KitAllocation
	require.NoError(t, db.Where("kit_id = ?", kit.ID).Find(&allocations).Error)
	require.Len(t, allocations, 1)
	assert.Equal(t, newLot.ID, allocations[0].LotID)
	assert.InDelta(t, 10, allocations[0].Quantity, 1e-9)
}

func TestCompleteBuildWithoutOutputItem(t *testing.T) {
	db := setupTestDB(t)
	service, mock := newTestService(t, db)
	makeLot(t, db, 2, 20, mock.Now().Add(-time.Hour))

	kit, err := service.Create(&CreateKitRequest{
		KitNumber:  "K-300",
		Name:       "Consumable bundle",
		Quantity:   5,
		Components: []KitComponentInput{{ItemID: 2, QuantityPerKit: 2}},
	})
	require.NoError(t, err)
	assert.Nil(t, kit.ItemID)

	_, err = service.Reserve(kit.ID)
	require.NoError(t, err)
	built, err := service.CompleteBuild(kit.ID, &CompleteBuildRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, built.Status)

	// No output lot without an output item.
	var count int64
	require.NoError(t, db.Model(&inventory.Lot{}).Where("location = ?", "Assembly").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&inventory.Transaction{}).
		Where("transaction_type = ?", inventory.TransactionKitProduction).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCompleteBuildRequiresInProgress(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestService(t, db)
	kit := makeKit(t, service, 5)

	_, err := service.CompleteBuild(kit.ID, &CompleteBuildRequest{Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
