// internal/domain/sales/entity.go
package sales

import (
	"time"

	"github.com/your-org/erp-backend/internal/domain/customer"
	"github.com/your-org/erp-backend/internal/domain/item"
)

// Status represents sale status
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// Sale is a customer order
type Sale struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	SaleNumber string             `gorm:"uniqueIndex;not null;size:50" json:"sale_number"`
	CustomerID uint               `gorm:"not null;index" json:"customer_id"`
	Customer   *customer.Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status     Status             `gorm:"not null;size:20;default:'pending';index" json:"status"`
	OrderDate  time.Time          `gorm:"not null" json:"order_date"`
	ShippedAt  *time.Time         `json:"shipped_at,omitempty"`
	Notes      string             `gorm:"type:text" json:"notes"`
	Details    []SaleDetail       `gorm:"foreignKey:SaleID" json:"details,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// SaleDetail is one ordered line. ReservedQty tracks how much of the line
// is currently backed by lot reservations.
type SaleDetail struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SaleID      uint       `gorm:"not null;index" json:"sale_id"`
	ItemID      uint       `gorm:"not null;index" json:"item_id"`
	Item        *item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity    float64    `gorm:"not null" json:"quantity"`
	ReservedQty float64    `gorm:"not null;default:0" json:"reserved_qty"`
	UnitPrice   float64    `gorm:"default:0" json:"unit_price"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SaleAllocation pins part of a sale line's reservation to a concrete lot
type SaleAllocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SaleID    uint      `gorm:"not null;index" json:"sale_id"`
	DetailID  uint      `gorm:"not null;index" json:"detail_id"`
	LotID     uint      `gorm:"not null;index" json:"lot_id"`
	Quantity  float64   `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
