// internal/domain/bom/service_test.go
package bom

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/erp-backend/internal/config"
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

	require.NoError(t, db.AutoMigrate(&item.Item{}, &BOM{}, &BOMComponent{}))
	return db
}

func TestCreateRejectsSelfReference(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &config.Config{})

	_, err := service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components: []ComponentInput{
			{ItemID: 2, Quantity: 1},
			{ItemID: 1, Quantity: 3},
		},
	})
	assert.ErrorIs(t, err, ErrSelfReference)
}

func TestCreateRejectsDuplicateActive(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &config.Config{})

	_, err := service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components:     []ComponentInput{{ItemID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components:     []ComponentInput{{ItemID: 3, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrDuplicateActive)
}

func TestCreateRejectsCycle(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &config.Config{})

	// 1 -> 2 -> 3 is fine.
	_, err := service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components:     []ComponentInput{{ItemID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = service.Create(&CreateBOMRequest{
		FinishedItemID: 2,
		Components:     []ComponentInput{{ItemID: 3, Quantity: 1}},
	})
	require.NoError(t, err)

	// Closing the loop 3 -> 1 must fail.
	_, err = service.Create(&CreateBOMRequest{
		FinishedItemID: 3,
		Components:     []ComponentInput{{ItemID: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrCycleDetected)

	// Nothing from the rejected BOM may survive.
	b, err := ActiveForItem(db, 3)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSharedComponentIsNotACycle(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &config.Config{})

	// Items 1 and 2 both use item 3; that is a diamond, not a cycle.
	_, err := service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components:     []ComponentInput{{ItemID: 2, Quantity: 1}, {ItemID: 3, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = service.Create(&CreateBOMRequest{
		FinishedItemID: 2,
		Components:     []ComponentInput{{ItemID: 3, Quantity: 4}},
	})
	require.NoError(t, err)
}

func TestUpdateReplacesComponents(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &config.Config{})

	created, err := service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components:     []ComponentInput{{ItemID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := service.Update(created.ID, &UpdateBOMRequest{
		Components: []ComponentInput{
			{ItemID: 3, Quantity: 2},
			{ItemID: 4, Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Components, 2)
	assert.Equal(t, uint(3), updated.Components[0].ItemID)
	assert.Equal(t, uint(4), updated.Components[1].ItemID)
}

func TestActiveForItemIgnoresInactive(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &config.Config{})

	created, err := service.Create(&CreateBOMRequest{
		FinishedItemID: 1,
		Components:     []ComponentInput{{ItemID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, service.Deactivate(created.ID))

	b, err := ActiveForItem(db, 1)
	require.NoError(t, err)
	assert.Nil(t, b)
}
