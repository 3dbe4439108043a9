// internal/domain/purchasing/request_service.go
package purchasing

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var (
	ErrRequestNotFound    = errors.New("purchase request not found")
	ErrRequestNotPending  = errors.New("purchase request is not pending")
	ErrNoPendingRequests  = errors.New("no pending requests to convert")
	ErrInvalidRequestData = errors.New("invalid purchase request data")
)

// RequestOrMerge records a replenishment demand for an item. If a pending
// request for the item already exists the demand is merged into the newest
// one: quantities are summed, notes are appended and the priority is
// upgraded to urgent when either side is urgent. Otherwise a new pending
// request is created carrying the demand's source.
func RequestOrMerge(db *gorm.DB, itemID uint, qty float64, source RequestSource, sourceID *uint, priority RequestPriority, notes string) (*PurchaseRequest, error) {
	if itemID == 0 || qty <= 0 {
		return nil, ErrInvalidRequestData
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if source == "" {
		source = SourceManual
	}

	var existing PurchaseRequest
	err := db.Where("item_id = ? AND status = ?", itemID, RequestPending).
		Order("created_at DESC, id DESC").
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up pending request for item %d: %w", itemID, err)
	}

	if err == nil {
		existing.Quantity += qty
		if priority == PriorityUrgent {
			existing.Priority = PriorityUrgent
		}
		if notes != "" {
			if existing.Notes != "" {
				existing.Notes = existing.Notes + "\n" + notes
			} else {
				existing.Notes = notes
			}
		}
		if err := db.Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to merge purchase request %d: %w", existing.ID, err)
		}
		return &existing, nil
	}

	request := PurchaseRequest{
		ItemID:     itemID,
		Quantity:   qty,
		Priority:   priority,
		Status:     RequestPending,
		SourceType: source,
		SourceID:   sourceID,
		Notes:      notes,
	}
	if err := db.Create(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase request: %w", err)
	}
	return &request, nil
}

// RequestService handles purchase request lifecycle
type RequestService struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
}

// NewRequestService creates a new purchase request service
func NewRequestService(db *gorm.DB, cfg *config.Config, clk clock.Clock) *RequestService {
	if clk == nil {
		clk = clock.New()
	}
	return &RequestService{db: db, config: cfg, clock: clk}
}

// CreateRequestRequest represents manual purchase request data
type CreateRequestRequest struct {
	ItemID   uint            `json:"item_id" binding:"required"`
	Quantity float64         `json:"quantity" binding:"required,gt=0"`
	Priority RequestPriority `json:"priority"`
	Notes    string          `json:"notes"`
}

// ConvertRequestsRequest represents a request-to-PO conversion
type ConvertRequestsRequest struct {
	RequestIDs []uint  `json:"request_ids" binding:"required,min=1"`
	SupplierID uint    `json:"supplier_id" binding:"required"`
	Notes      string  `json:"notes"`
	UnitPrices []Price `json:"unit_prices"`
}

// Price pins a unit price for one item during conversion
type Price struct {
	ItemID    uint    `json:"item_id"`
	UnitPrice float64 `json:"unit_price"`
}

// Create records a manual replenishment demand, merging into an existing
// pending request when one exists
func (s *RequestService) Create(req *CreateRequestRequest) (*PurchaseRequest, error) {
	return RequestOrMerge(s.db, req.ItemID, req.Quantity, SourceManual, nil, req.Priority, req.Notes)
}

// GetByID returns a purchase request by ID
func (s *RequestService) GetByID(id uint) (*PurchaseRequest, error) {
	var request PurchaseRequest
	if err := s.db.Preload("Item").First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get purchase request: %w", err)
	}
	return &request, nil
}

// List returns purchase requests, urgent and newest first, optionally
// filtered by status
func (s *RequestService) List(status RequestStatus, limit, offset int) ([]PurchaseRequest, int64, error) {
	query := s.db.Model(&PurchaseRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchase requests: %w", err)
	}

	var requests []PurchaseRequest
	if err := query.Preload("Item").
		Order("CASE WHEN priority = 'urgent' THEN 0 ELSE 1 END, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	return requests, total, nil
}

// Cancel marks a pending request cancelled
func (s *RequestService) Cancel(id uint) (*PurchaseRequest, error) {
	request, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if request.Status != RequestPending {
		return nil, ErrRequestNotPending
	}

	request.Status = RequestCancelled
	if err := s.db.Save(request).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel purchase request: %w", err)
	}
	return request, nil
}

// ConvertToPurchaseOrder turns a set of pending requests into one
// purchase order for a single supplier. The requests are marked
// converted and linked to their PO lines in the same transaction.
func (s *RequestService) ConvertToPurchaseOrder(req *ConvertRequestsRequest) (*PurchaseOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var requests []PurchaseRequest
	if err := tx.Where("id IN ? AND status = ?", req.RequestIDs, RequestPending).
		Find(&requests).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load purchase requests: %w", err)
	}
	if len(requests) == 0 {
		tx.Rollback()
		return nil, ErrNoPendingRequests
	}

	prices := make(map[uint]float64, len(req.UnitPrices))
	for _, p := range req.UnitPrices {
		prices[p.ItemID] = p.UnitPrice
	}

	now := s.clock.Now()
	number, err := nextDocumentNumber(tx, &PurchaseOrder{}, "po_number", "PO", now.Year())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	order := PurchaseOrder{
		PONumber:   number,
		SupplierID: req.SupplierID,
		Status:     OrderPending,
		OrderDate:  now,
		Notes:      req.Notes,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create purchase order: %w", err)
	}

	for i := range requests {
		request := &requests[i]
		detail := PurchaseOrderDetail{
			PurchaseOrderID: order.ID,
			ItemID:          request.ItemID,
			Quantity:        request.Quantity,
			UnitPrice:       prices[request.ItemID],
			RequestID:       &request.ID,
		}
		if err := tx.Create(&detail).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create purchase order line: %w", err)
		}

		request.Status = RequestConverted
		if err := tx.Save(request).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to mark request %d converted: %w", request.ID, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit conversion: %w", err)
	}

	return s.loadOrder(order.ID)
}

func (s *RequestService) loadOrder(id uint) (*PurchaseOrder, error) {
	var order PurchaseOrder
	if err := s.db.Preload("Supplier").Preload("Details").Preload("Details.Item").
		First(&order, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}
	return &order, nil
}
