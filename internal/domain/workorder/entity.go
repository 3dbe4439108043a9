// internal/domain/workorder/entity.go
package workorder

import (
	"time"

	"github.com/your-org/erp-backend/internal/domain/item"
)

// Status represents work order status
type Status string

const (
	StatusPending    Status = "pending"     // created, not yet allocated
	StatusBlocked    Status = "blocked"     // waiting on child orders or material
	StatusReady      Status = "ready"       // children done and material allocated
	StatusInProgress Status = "in_progress" // production started
	StatusCompleted  Status = "completed"   // full ordered quantity reported
	StatusCancelled  Status = "cancelled"
)

// Priority represents scheduling urgency of a work order
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// WorkOrder is a production order for one finished item. Sub-assembly
// components with their own BOM spawn child work orders, forming a tree.
// RootWOID points at the tree's root for every node including the root
// itself, so a whole tree can be fetched with one query; Depth is the
// distance from the root.
type WorkOrder struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	WONumber          string      `gorm:"uniqueIndex;not null;size:50" json:"wo_number"`
	ItemID            uint        `gorm:"not null;index" json:"item_id"`
	Item              *item.Item  `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	BOMID             *uint       `gorm:"index" json:"bom_id,omitempty"`
	Quantity          float64     `gorm:"not null" json:"quantity"`
	CompletedQuantity float64     `gorm:"not null;default:0" json:"completed_quantity"`
	Status            Status      `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Priority          Priority    `gorm:"not null;size:20;default:'normal'" json:"priority"`
	ParentID          *uint       `gorm:"index" json:"parent_id,omitempty"`
	RootWOID          *uint       `gorm:"index" json:"root_wo_id,omitempty"`
	Depth             int         `gorm:"not null;default:0" json:"depth"`
	Children          []WorkOrder `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	SaleID            *uint       `gorm:"index" json:"sale_id,omitempty"`
	DueDate           *time.Time  `json:"due_date,omitempty"`
	ActualStartDate   *time.Time  `json:"actual_start_date,omitempty"`
	ActualEndDate     *time.Time  `json:"actual_end_date,omitempty"`
	Notes             string      `gorm:"type:text" json:"notes"`
	Components        []Component `gorm:"foreignKey:WorkOrderID" json:"components,omitempty"`
	Progress          float64     `gorm:"-" json:"progress"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// computeProgress derives the completion percentage from reported quantity
func (w *WorkOrder) computeProgress() {
	if w.Quantity <= 0 {
		return
	}
	w.Progress = w.CompletedQuantity / w.Quantity * 100
	if w.Progress > 100 {
		w.Progress = 100
	}
}

// Component is one material requirement of a work order. AllocatedQty
// tracks live reservations, ConsumedQty what backflush has already taken.
// Subassembly components are satisfied by their child work order's output
// instead of stock; readiness, allocation and backflush skip them.
type Component struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	WorkOrderID      uint       `gorm:"not null;index" json:"work_order_id"`
	ItemID           uint       `gorm:"not null;index" json:"item_id"`
	Item             *item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity         float64    `gorm:"not null" json:"quantity"`
	AllocatedQty     float64    `gorm:"not null;default:0" json:"allocated_qty"`
	ConsumedQty      float64    `gorm:"not null;default:0" json:"consumed_qty"`
	IsSubassembly    bool       `gorm:"not null;default:false" json:"is_subassembly"`
	ChildWorkOrderID *uint      `gorm:"index" json:"child_work_order_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ComponentAllocation links a component's reservation to a concrete
// inventory lot. Quantity is the still-reserved remainder and shrinks as
// completion consumes it.
type ComponentAllocation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkOrderID uint      `gorm:"not null;index" json:"work_order_id"`
	ComponentID uint      `gorm:"not null;index" json:"component_id"`
	LotID       uint      `gorm:"not null;index" json:"lot_id"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName keeps the component table name unambiguous
func (Component) TableName() string {
	return "work_order_components"
}

// TableName keeps the allocation table name unambiguous
func (ComponentAllocation) TableName() string {
	return "work_order_allocations"
}
