// internal/domain/item/service.go
package item

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrCodeExists   = errors.New("item code already exists")
)

// Service handles item catalog operations
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new item service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// CreateItemRequest represents item creation data
type CreateItemRequest struct {
	Code        string  `json:"code" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	MinStock    float64 `json:"min_stock"`
}

// UpdateItemRequest represents item update data
type UpdateItemRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Unit        *string  `json:"unit"`
	UnitPrice   *float64 `json:"unit_price"`
	MinStock    *float64 `json:"min_stock"`
	IsActive    *bool    `json:"is_active"`
}

// Create creates a new catalog item
func (s *Service) Create(req *CreateItemRequest) (*Item, error) {
	var count int64
	if err := s.db.Model(&Item{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check item code: %w", err)
	}
	if count > 0 {
		return nil, ErrCodeExists
	}

	item := Item{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Unit:        req.Unit,
		UnitPrice:   req.UnitPrice,
		MinStock:    req.MinStock,
		IsActive:    true,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &item, nil
}

// GetByID returns an item by ID
func (s *Service) GetByID(id uint) (*Item, error) {
	var item Item
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// GetByCode returns an item by its unique code
func (s *Service) GetByCode(code string) (*Item, error) {
	var item Item
	if err := s.db.Where("code = ?", code).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// List returns items with optional search and category filters
func (s *Service) List(search, category string, limit, offset int) ([]Item, int64, error) {
	query := s.db.Model(&Item{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", like, like)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	var items []Item
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return items, total, nil
}

// Update updates an existing item
func (s *Service) Update(id uint, req *UpdateItemRequest) (*Item, error) {
	item, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.UnitPrice != nil {
		item.UnitPrice = *req.UnitPrice
	}
	if req.MinStock != nil {
		item.MinStock = *req.MinStock
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// Delete soft-disables an item instead of removing it, keeping ledger
// history intact
func (s *Service) Delete(id uint) error {
	item, err := s.GetByID(id)
	if err != nil {
		return err
	}
	item.IsActive = false
	if err := s.db.Save(item).Error; err != nil {
		return fmt.Errorf("failed to deactivate item: %w", err)
	}
	return nil
}
