// internal/domain/quotation/entity.go
package quotation

import (
	"time"

	"github.com/your-org/erp-backend/internal/domain/customer"
	"github.com/your-org/erp-backend/internal/domain/item"
)

// Status represents quotation status
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
)

// Quotation is a priced offer to a customer that may later convert into
// a sale
type Quotation struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	QuoteNumber string             `gorm:"uniqueIndex;not null;size:50" json:"quote_number"`
	CustomerID  uint               `gorm:"not null;index" json:"customer_id"`
	Customer    *customer.Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status      Status             `gorm:"not null;size:20;default:'draft';index" json:"status"`
	QuoteDate   time.Time          `gorm:"not null" json:"quote_date"`
	ValidUntil  *time.Time         `json:"valid_until,omitempty"`
	SaleID      *uint              `gorm:"index" json:"sale_id,omitempty"` // set on conversion
	Notes       string             `gorm:"type:text" json:"notes"`
	Details     []QuotationDetail  `gorm:"foreignKey:QuotationID" json:"details,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// QuotationDetail is one offered line
type QuotationDetail struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	QuotationID uint       `gorm:"not null;index" json:"quotation_id"`
	ItemID      uint       `gorm:"not null;index" json:"item_id"`
	Item        *item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity    float64    `gorm:"not null" json:"quantity"`
	UnitPrice   float64    `gorm:"default:0" json:"unit_price"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
