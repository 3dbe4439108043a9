// internal/domain/item/entity.go
package item

import (
	"time"
)

// Item represents a purchasable or manufacturable product
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:100;index" json:"category"`
	Unit        string    `gorm:"size:50" json:"unit"`
	UnitPrice   float64   `gorm:"default:0" json:"unit_price"`
	MinStock    float64   `gorm:"default:0" json:"min_stock"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
