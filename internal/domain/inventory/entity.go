// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// TransactionType represents the type of inventory transaction
type TransactionType string

const (
	TransactionPurchase      TransactionType = "purchase"       // PO receipt
	TransactionSale          TransactionType = "sale"           // Shipment to customer
	TransactionKitUsage      TransactionType = "kit_usage"      // Component consumed by kit/work order
	TransactionKitProduction TransactionType = "kit_production" // Output produced by kit/work order
	TransactionAdjustment    TransactionType = "adjustment"     // Manual stock correction
)

// ReservationPolicy controls how Reserve treats availability.
//
// PolicyStrict fails the reservation when it would exceed on-hand stock.
// PolicyAllowNegative books the reservation regardless and leaves shortage
// handling to the caller (purchase request follow-up). Both behaviors are
// relied on by different call sites and must not be unified.
type ReservationPolicy string

const (
	PolicyStrict        ReservationPolicy = "strict"
	PolicyAllowNegative ReservationPolicy = "allow_negative"
)

// Lot represents one physical batch of stock for a single item
type Lot struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ItemID         uint       `gorm:"not null;index" json:"item_id"`
	Quantity       float64    `gorm:"not null;default:0" json:"quantity"`
	ReservationQty float64    `gorm:"not null;default:0" json:"reservation_qty"`
	BatchNumber    string     `gorm:"size:100" json:"batch_number"`
	Location       string     `gorm:"size:100" json:"location"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	PODetailID     *uint      `gorm:"index" json:"po_detail_id,omitempty"` // purchase order line that created this lot
	Notes          string     `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"` // FIFO ordering key
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Available returns the quantity not yet reserved. May be negative under
// the allow-negative reservation policy.
func (l *Lot) Available() float64 {
	return l.Quantity - l.ReservationQty
}

// Transaction is an append-only ledger entry. One row per operation that
// changes a lot's on-hand quantity; the signed Quantity is the delta.
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	LotID           uint            `gorm:"not null;index" json:"lot_id"`
	ItemID          uint            `gorm:"not null;index" json:"item_id"`
	Quantity        float64         `gorm:"not null" json:"quantity"`
	Type            TransactionType `gorm:"not null;size:30;column:transaction_type" json:"transaction_type"`
	TransactionDate time.Time       `gorm:"not null" json:"transaction_date"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Allocation is one (lot, quantity) pair of a FIFO allocation plan
type Allocation struct {
	Lot      Lot     `json:"lot"`
	Quantity float64 `json:"quantity"`
}
