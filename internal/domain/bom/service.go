// internal/domain/bom/service.go
package bom

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var (
	ErrBOMNotFound     = errors.New("bill of materials not found")
	ErrSelfReference   = errors.New("bill of materials cannot include its own finished item")
	ErrCycleDetected   = errors.New("bill of materials would create a cycle")
	ErrNoComponents    = errors.New("bill of materials needs at least one component")
	ErrDuplicateActive = errors.New("finished item already has an active bill of materials")
)

// ActiveForItem returns the active BOM for a finished item, with
// components, through the caller's transaction. Returns nil without error
// when the item has no active BOM, which marks it as a purchased part.
func ActiveForItem(tx *gorm.DB, finishedItemID uint) (*BOM, error) {
	var b BOM
	err := tx.Preload("Components").
		Where("finished_item_id = ? AND is_active = ?", finishedItemID, true).
		Order("id DESC").
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load BOM for item %d: %w", finishedItemID, err)
	}
	return &b, nil
}

// Service handles bill of materials maintenance
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new BOM service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// ComponentInput is one component line of a BOM create or update
type ComponentInput struct {
	ItemID   uint    `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Notes    string  `json:"notes"`
}

// CreateBOMRequest represents BOM creation data. OutputQuantity defaults
// to one unit per build when omitted.
type CreateBOMRequest struct {
	FinishedItemID uint             `json:"finished_item_id" binding:"required"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Version        int              `json:"version" binding:"omitempty,gt=0"`
	OutputQuantity float64          `json:"output_quantity" binding:"omitempty,gt=0"`
	Components     []ComponentInput `json:"components" binding:"required,min=1,dive"`
}

// UpdateBOMRequest replaces a BOM's metadata and component list
type UpdateBOMRequest struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Version        *int             `json:"version" binding:"omitempty,gt=0"`
	OutputQuantity *float64         `json:"output_quantity" binding:"omitempty,gt=0"`
	IsActive       *bool            `json:"is_active"`
	Components     []ComponentInput `json:"components" binding:"omitempty,min=1,dive"`
}

// Create creates a new active BOM for a finished item
func (s *Service) Create(req *CreateBOMRequest) (*BOM, error) {
	for _, c := range req.Components {
		if c.ItemID == req.FinishedItemID {
			return nil, ErrSelfReference
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	existing, err := ActiveForItem(tx, req.FinishedItemID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if existing != nil {
		tx.Rollback()
		return nil, ErrDuplicateActive
	}

	version := req.Version
	if version <= 0 {
		version = 1
	}
	outputQty := req.OutputQuantity
	if outputQty <= 0 {
		outputQty = 1
	}

	b := BOM{
		FinishedItemID: req.FinishedItemID,
		Name:           req.Name,
		Description:    req.Description,
		Version:        version,
		OutputQuantity: outputQty,
		IsActive:       true,
	}
	if err := tx.Create(&b).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create BOM: %w", err)
	}

	for _, c := range req.Components {
		component := BOMComponent{
			BOMID:    b.ID,
			ItemID:   c.ItemID,
			Quantity: c.Quantity,
			Notes:    c.Notes,
		}
		if err := tx.Create(&component).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create BOM component: %w", err)
		}
	}

	if cyclic, err := hasCycle(tx, req.FinishedItemID); err != nil {
		tx.Rollback()
		return nil, err
	} else if cyclic {
		tx.Rollback()
		return nil, ErrCycleDetected
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit BOM: %w", err)
	}
	return s.GetByID(b.ID)
}

// GetByID returns a BOM with components and item details
func (s *Service) GetByID(id uint) (*BOM, error) {
	var b BOM
	if err := s.db.Preload("FinishedItem").Preload("Components").Preload("Components.Item").
		First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBOMNotFound
		}
		return nil, fmt.Errorf("failed to get BOM: %w", err)
	}
	return &b, nil
}

// List returns BOMs, optionally filtered by finished item
func (s *Service) List(finishedItemID uint, limit, offset int) ([]BOM, int64, error) {
	query := s.db.Model(&BOM{})
	if finishedItemID > 0 {
		query = query.Where("finished_item_id = ?", finishedItemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count BOMs: %w", err)
	}

	var boms []BOM
	if err := query.Preload("FinishedItem").
		Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&boms).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list BOMs: %w", err)
	}
	return boms, total, nil
}

// Update replaces BOM metadata and, when given, the full component list
func (s *Service) Update(id uint, req *UpdateBOMRequest) (*BOM, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var b BOM
	if err := tx.First(&b, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBOMNotFound
		}
		return nil, fmt.Errorf("failed to load BOM: %w", err)
	}

	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Version != nil {
		b.Version = *req.Version
	}
	if req.OutputQuantity != nil {
		b.OutputQuantity = *req.OutputQuantity
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if err := tx.Save(&b).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update BOM: %w", err)
	}

	if req.Components != nil {
		for _, c := range req.Components {
			if c.ItemID == b.FinishedItemID {
				tx.Rollback()
				return nil, ErrSelfReference
			}
		}

		if err := tx.Where("bom_id = ?", b.ID).Delete(&BOMComponent{}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to clear BOM components: %w", err)
		}
		for _, c := range req.Components {
			component := BOMComponent{
				BOMID:    b.ID,
				ItemID:   c.ItemID,
				Quantity: c.Quantity,
				Notes:    c.Notes,
			}
			if err := tx.Create(&component).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to create BOM component: %w", err)
			}
		}

		if cyclic, err := hasCycle(tx, b.FinishedItemID); err != nil {
			tx.Rollback()
			return nil, err
		} else if cyclic {
			tx.Rollback()
			return nil, ErrCycleDetected
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit BOM update: %w", err)
	}
	return s.GetByID(b.ID)
}

// Deactivate retires a BOM revision
func (s *Service) Deactivate(id uint) error {
	result := s.db.Model(&BOM{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate BOM: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBOMNotFound
	}
	return nil
}

// hasCycle walks the active BOM graph from root and reports whether any
// path leads back to an already visited item
func hasCycle(tx *gorm.DB, root uint) (bool, error) {
	return walk(tx, root, map[uint]bool{})
}

func walk(tx *gorm.DB, itemID uint, visited map[uint]bool) (bool, error) {
	if visited[itemID] {
		return true, nil
	}
	visited[itemID] = true
	defer delete(visited, itemID)

	b, err := ActiveForItem(tx, itemID)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}
	for _, c := range b.Components {
		cyclic, err := walk(tx, c.ItemID, visited)
		if err != nil {
			return false, err
		}
		if cyclic {
			return true, nil
		}
	}
	return false, nil
}
