// internal/domain/supplier/service.go
package supplier

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var ErrSupplierNotFound = errors.New("supplier not found")

// Service handles supplier master data
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new supplier service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// CreateSupplierRequest represents supplier creation data
type CreateSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	TaxNumber     string `json:"tax_number"`
	LeadTimeDays  int    `json:"lead_time_days"`
	Notes         string `json:"notes"`
}

// UpdateSupplierRequest represents supplier update data
type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	TaxNumber     *string `json:"tax_number"`
	LeadTimeDays  *int    `json:"lead_time_days"`
	Notes         *string `json:"notes"`
	IsActive      *bool   `json:"is_active"`
}

// Create creates a new supplier
func (s *Service) Create(req *CreateSupplierRequest) (*Supplier, error) {
	supplier := Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		TaxNumber:     req.TaxNumber,
		LeadTimeDays:  req.LeadTimeDays,
		Notes:         req.Notes,
		IsActive:      true,
	}
	if err := s.db.Create(&supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return &supplier, nil
}

// GetByID returns a supplier by ID
func (s *Service) GetByID(id uint) (*Supplier, error) {
	var supplier Supplier
	if err := s.db.First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &supplier, nil
}

// List returns suppliers with optional name search
func (s *Service) List(search string, limit, offset int) ([]Supplier, int64, error) {
	query := s.db.Model(&Supplier{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count suppliers: %w", err)
	}

	var suppliers []Supplier
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&suppliers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, total, nil
}

// Update updates an existing supplier
func (s *Service) Update(id uint, req *UpdateSupplierRequest) (*Supplier, error) {
	supplier, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.TaxNumber != nil {
		supplier.TaxNumber = *req.TaxNumber
	}
	if req.LeadTimeDays != nil {
		supplier.LeadTimeDays = *req.LeadTimeDays
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	if err := s.db.Save(supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

// Delete deactivates a supplier
func (s *Service) Delete(id uint) error {
	supplier, err := s.GetByID(id)
	if err != nil {
		return err
	}
	supplier.IsActive = false
	if err := s.db.Save(supplier).Error; err != nil {
		return fmt.Errorf("failed to deactivate supplier: %w", err)
	}
	return nil
}
