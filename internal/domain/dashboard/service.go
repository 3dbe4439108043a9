// internal/domain/dashboard/service.go
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
	"github.com/your-org/erp-backend/internal/domain/sales"
	"github.com/your-org/erp-backend/internal/domain/workorder"
	"github.com/your-org/erp-backend/internal/infrastructure/database/redis"
)

const (
	summaryCacheKey = "dashboard:summary"
	summaryCacheTTL = time.Minute
)

// Summary is the aggregated shop floor overview
type Summary struct {
	WorkOrdersByStatus map[string]int64 `json:"work_orders_by_status"`
	PendingRequests    int64            `json:"pending_requests"`
	UrgentRequests     int64            `json:"urgent_requests"`
	OpenPurchaseOrders int64            `json:"open_purchase_orders"`
	OpenSales          int64            `json:"open_sales"`
	LowStockItems      []LowStockItem   `json:"low_stock_items"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// LowStockItem is an item whose free stock fell below its minimum
type LowStockItem struct {
	ItemID    uint    `json:"item_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	MinStock  float64 `json:"min_stock"`
	Available float64 `json:"available"`
}

// Service computes dashboard aggregates, cached in Redis for a minute
type Service struct {
	db     *gorm.DB
	cache  *redis.Client
	config *config.Config
	clock  clock.Clock
}

// NewService creates a new dashboard service. cache may be nil, in which
// case every call recomputes.
func NewService(db *gorm.DB, cache *redis.Client, cfg *config.Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{db: db, cache: cache, config: cfg, clock: clk}
}

// GetSummary returns the dashboard summary, served from cache when fresh
func (s *Service) GetSummary(ctx context.Context) (*Summary, error) {
	if s.cache != nil {
		var cached Summary
		// Any cache failure, redis.Nil included, falls through to a
		// fresh computation.
		if err := s.cache.GetJSON(ctx, summaryCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	summary, err := s.computeSummary()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, summaryCacheKey, summary, summaryCacheTTL)
	}
	return summary, nil
}

// Invalidate drops the cached summary
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, summaryCacheKey)
}

func (s *Service) computeSummary() (*Summary, error) {
	summary := Summary{
		WorkOrdersByStatus: map[string]int64{},
		GeneratedAt:        s.clock.Now(),
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var woCounts []statusCount
	if err := s.db.Model(&workorder.WorkOrder{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&woCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count work orders: %w", err)
	}
	for _, c := range woCounts {
		summary.WorkOrdersByStatus[c.Status] = c.Count
	}

	if err := s.db.Model(&purchasing.PurchaseRequest{}).
		Where("status = ?", purchasing.RequestPending).
		Count(&summary.PendingRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	if err := s.db.Model(&purchasing.PurchaseRequest{}).
		Where("status = ? AND priority = ?", purchasing.RequestPending, purchasing.PriorityUrgent).
		Count(&summary.UrgentRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to count urgent requests: %w", err)
	}
	if err := s.db.Model(&purchasing.PurchaseOrder{}).
		Where("status IN ?", []purchasing.OrderStatus{purchasing.OrderPending, purchasing.OrderPartial}).
		Count(&summary.OpenPurchaseOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count open purchase orders: %w", err)
	}
	if err := s.db.Model(&sales.Sale{}).
		Where("status IN ?", []sales.Status{sales.StatusPending, sales.StatusConfirmed}).
		Count(&summary.OpenSales).Error; err != nil {
		return nil, fmt.Errorf("failed to count open sales: %w", err)
	}

	if err := s.db.Raw(`
		SELECT items.id AS item_id, items.code, items.name, items.min_stock,
		       COALESCE(SUM(lots.quantity - lots.reservation_qty), 0) AS available
		FROM items
		LEFT JOIN lots ON lots.item_id = items.id
		WHERE items.is_active = ? AND items.min_stock > 0
		GROUP BY items.id, items.code, items.name, items.min_stock
		HAVING COALESCE(SUM(lots.quantity - lots.reservation_qty), 0) < items.min_stock
		ORDER BY items.name ASC`, true).
		Scan(&summary.LowStockItems).Error; err != nil {
		return nil, fmt.Errorf("failed to find low stock items: %w", err)
	}

	return &summary, nil
}
