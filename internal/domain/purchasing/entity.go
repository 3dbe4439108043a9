// internal/domain/purchasing/entity.go
package purchasing

import (
	"time"

	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/supplier"
)

// RequestStatus represents purchase request status
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestConverted RequestStatus = "converted_to_po"
	RequestCancelled RequestStatus = "cancelled"
)

// RequestSource tags where a replenishment demand came from
type RequestSource string

const (
	SourceManual     RequestSource = "manual"
	SourceKitReserve RequestSource = "kit_reserve"
	SourceWorkOrder  RequestSource = "work_order"
)

// RequestPriority represents purchase request urgency
type RequestPriority string

const (
	PriorityNormal RequestPriority = "normal"
	PriorityUrgent RequestPriority = "urgent"
)

// OrderStatus represents purchase order status
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPartial   OrderStatus = "partial"
	OrderReceived  OrderStatus = "received"
	OrderCancelled OrderStatus = "cancelled"
)

// PurchaseRequest is a replenishment demand for one item. Shortage
// detection merges repeated demands into the newest pending request per
// item instead of stacking duplicates.
type PurchaseRequest struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ItemID     uint            `gorm:"not null;index" json:"item_id"`
	Item       *item.Item      `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity   float64         `gorm:"not null" json:"quantity"`
	Priority   RequestPriority `gorm:"not null;size:20;default:'normal'" json:"priority"`
	Status     RequestStatus   `gorm:"not null;size:20;default:'pending';index" json:"status"`
	SourceType RequestSource   `gorm:"not null;size:20;default:'manual'" json:"source_type"`
	SourceID   *uint           `gorm:"index" json:"source_id,omitempty"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PurchaseOrder is a confirmed order placed with a supplier
type PurchaseOrder struct {
	ID         uint                  `gorm:"primaryKey" json:"id"`
	PONumber   string                `gorm:"uniqueIndex;not null;size:50" json:"po_number"`
	SupplierID uint                  `gorm:"not null;index" json:"supplier_id"`
	Supplier   *supplier.Supplier    `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status     OrderStatus           `gorm:"not null;size:20;default:'pending';index" json:"status"`
	OrderDate  time.Time             `gorm:"not null" json:"order_date"`
	ExpectedAt *time.Time            `json:"expected_at,omitempty"`
	Notes      string                `gorm:"type:text" json:"notes"`
	Details    []PurchaseOrderDetail `gorm:"foreignKey:PurchaseOrderID" json:"details,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// PurchaseOrderDetail is one line of a purchase order. ReceivedQty
// accumulates across partial deliveries.
type PurchaseOrderDetail struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	PurchaseOrderID uint       `gorm:"not null;index" json:"purchase_order_id"`
	ItemID          uint       `gorm:"not null;index" json:"item_id"`
	Item            *item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity        float64    `gorm:"not null" json:"quantity"`
	ReceivedQty     float64    `gorm:"not null;default:0" json:"received_qty"`
	UnitPrice       float64    `gorm:"default:0" json:"unit_price"`
	RequestID       *uint      `gorm:"index" json:"request_id,omitempty"` // originating purchase request
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
