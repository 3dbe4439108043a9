// internal/domain/company/entity.go
package company

import (
	"time"
)

// CompanyInfo is the single-row record describing the operating business.
// It appears on quotations and purchase orders.
type CompanyInfo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	TaxNumber string    `gorm:"size:100" json:"tax_number"`
	Website   string    `gorm:"size:255" json:"website"`
	LogoURL   string    `gorm:"size:500" json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
