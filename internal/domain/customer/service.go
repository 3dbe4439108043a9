// internal/domain/customer/service.go
package customer

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Service handles customer master data
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new customer service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// CreateCustomerRequest represents customer creation data
type CreateCustomerRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	TaxNumber string `json:"tax_number"`
	Notes     string `json:"notes"`
}

// UpdateCustomerRequest represents customer update data
type UpdateCustomerRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	TaxNumber *string `json:"tax_number"`
	Notes     *string `json:"notes"`
	IsActive  *bool   `json:"is_active"`
}

// Create creates a new customer
func (s *Service) Create(req *CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		TaxNumber: req.TaxNumber,
		Notes:     req.Notes,
		IsActive:  true,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &customer, nil
}

// GetByID returns a customer by ID
func (s *Service) GetByID(id uint) (*Customer, error) {
	var customer Customer
	if err := s.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// List returns customers with optional name search
func (s *Service) List(search string, limit, offset int) ([]Customer, int64, error) {
	query := s.db.Model(&Customer{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	var customers []Customer
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, total, nil
}

// Update updates an existing customer
func (s *Service) Update(id uint, req *UpdateCustomerRequest) (*Customer, error) {
	customer, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.TaxNumber != nil {
		customer.TaxNumber = *req.TaxNumber
	}
	if req.Notes != nil {
		customer.Notes = *req.Notes
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}

	if err := s.db.Save(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// Delete deactivates a customer
func (s *Service) Delete(id uint) error {
	customer, err := s.GetByID(id)
	if err != nil {
		return err
	}
	customer.IsActive = false
	if err := s.db.Save(customer).Error; err != nil {
		return fmt.Errorf("failed to deactivate customer: %w", err)
	}
	return nil
}
