// internal/domain/customer/entity.go
package customer

import (
	"time"
)

// Customer represents a buying party
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	TaxNumber string    `gorm:"size:100" json:"tax_number"`
	Notes     string    `gorm:"type:text" json:"notes"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
