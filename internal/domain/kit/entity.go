// internal/domain/kit/entity.go
package kit

import (
	"time"

	"github.com/your-org/erp-backend/internal/domain/item"
)

// Status represents kit build status
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// KitItem is an assembly job: a planned number of kits built from a fixed
// component list. Unlike work orders, kits are flat and reserve material
// optimistically, accepting negative availability.
type KitItem struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	KitNumber         string         `gorm:"uniqueIndex;not null;size:50" json:"kit_number"`
	Name              string         `gorm:"not null;size:255" json:"name"`
	ItemID            *uint          `gorm:"index" json:"item_id,omitempty"`
	Item              *item.Item     `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity          float64        `gorm:"not null" json:"quantity"`
	CompletedQuantity float64        `gorm:"not null;default:0" json:"completed_quantity"`
	Status            Status         `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Notes             string         `gorm:"type:text" json:"notes"`
	Components        []KitComponent `gorm:"foreignKey:KitID" json:"components,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// KitComponent is one input of a kit. QuantityPerKit is per single built
// kit. LotID pins the component to a concrete lot picked at kit creation;
// reservation and backflush run against that lot when set.
type KitComponent struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	KitID          uint       `gorm:"not null;index" json:"kit_id"`
	ItemID         uint       `gorm:"not null;index" json:"item_id"`
	Item           *item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	LotID          *uint      `gorm:"index" json:"lot_id,omitempty"`
	QuantityPerKit float64    `gorm:"not null" json:"quantity_per_kit"`
	AllocatedQty   float64    `gorm:"not null;default:0" json:"allocated_qty"`
	ConsumedQty    float64    `gorm:"not null;default:0" json:"consumed_qty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// KitAllocation pins part of a component's reservation to a concrete lot
type KitAllocation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	KitID       uint      `gorm:"not null;index" json:"kit_id"`
	ComponentID uint      `gorm:"not null;index" json:"component_id"`
	LotID       uint      `gorm:"not null;index" json:"lot_id"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
