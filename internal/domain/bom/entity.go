// internal/domain/bom/entity.go
package bom

import (
	"time"

	"github.com/your-org/erp-backend/internal/domain/item"
)

// BOM is the bill of materials for one finished item. One active BOM per
// finished item; older revisions stay around deactivated. OutputQuantity
// is how many units one build of the component list yields, so component
// demand scales by orderQty / OutputQuantity.
type BOM struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	FinishedItemID uint           `gorm:"not null;index" json:"finished_item_id"`
	FinishedItem   *item.Item     `gorm:"foreignKey:FinishedItemID" json:"finished_item,omitempty"`
	Name           string         `gorm:"size:255" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Version        int            `gorm:"not null;default:1" json:"version"`
	OutputQuantity float64        `gorm:"not null;default:1" json:"output_quantity"`
	IsActive       bool           `gorm:"default:true;index" json:"is_active"`
	Components     []BOMComponent `gorm:"foreignKey:BOMID" json:"components,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BOMComponent is one required input of a BOM. Quantity is per single
// unit of the finished item.
type BOMComponent struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	BOMID     uint       `gorm:"not null;index" json:"bom_id"`
	ItemID    uint       `gorm:"not null;index" json:"item_id"`
	Item      *item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity  float64    `gorm:"not null" json:"quantity"`
	Notes     string     `gorm:"size:500" json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
