// internal/domain/supplier/entity.go
package supplier

import (
	"time"
)

// Supplier represents a vendor that purchase orders are placed with
type Supplier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null;size:255" json:"name"`
	ContactPerson string    `gorm:"size:255" json:"contact_person"`
	Email         string    `gorm:"size:255" json:"email"`
	Phone         string    `gorm:"size:50" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	TaxNumber     string    `gorm:"size:100" json:"tax_number"`
	LeadTimeDays  int       `gorm:"default:0" json:"lead_time_days"`
	Notes         string    `gorm:"type:text" json:"notes"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
