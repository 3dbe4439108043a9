// internal/domain/company/service.go
package company

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var ErrCompanyNotConfigured = errors.New("company info not configured")

// Service handles the company profile record
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new company service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// UpsertCompanyRequest represents company profile data
type UpsertCompanyRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	TaxNumber string `json:"tax_number"`
	Website   string `json:"website"`
	LogoURL   string `json:"logo_url"`
}

// Get returns the company profile
func (s *Service) Get() (*CompanyInfo, error) {
	var info CompanyInfo
	if err := s.db.Order("id ASC").First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotConfigured
		}
		return nil, fmt.Errorf("failed to get company info: %w", err)
	}
	return &info, nil
}

// Upsert creates the company profile on first call and updates it after
func (s *Service) Upsert(req *UpsertCompanyRequest) (*CompanyInfo, error) {
	info, err := s.Get()
	if err != nil {
		if !errors.Is(err, ErrCompanyNotConfigured) {
			return nil, err
		}
		info = &CompanyInfo{}
	}

	info.Name = req.Name
	info.Email = req.Email
	info.Phone = req.Phone
	info.Address = req.Address
	info.TaxNumber = req.TaxNumber
	info.Website = req.Website
	info.LogoURL = req.LogoURL

	if err := s.db.Save(info).Error; err != nil {
		return nil, fmt.Errorf("failed to save company info: %w", err)
	}
	return info, nil
}
