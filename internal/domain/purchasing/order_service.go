// internal/domain/purchasing/order_service.go
package purchasing

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
)

var (
	ErrOrderNotFound     = errors.New("purchase order not found")
	ErrOrderLineNotFound = errors.New("purchase order line not found")
	ErrOrderClosed       = errors.New("purchase order is not open for receiving")
	ErrInvalidReceiveQty = errors.New("receive quantity must be positive")
)

// OrderService handles purchase order lifecycle and goods receiving
type OrderService struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
}

// NewOrderService creates a new purchase order service
func NewOrderService(db *gorm.DB, cfg *config.Config, clk clock.Clock) *OrderService {
	if clk == nil {
		clk = clock.New()
	}
	return &OrderService{db: db, config: cfg, clock: clk}
}

// CreateOrderRequest represents direct PO creation without requests
type CreateOrderRequest struct {
	SupplierID uint              `json:"supplier_id" binding:"required"`
	Notes      string            `json:"notes"`
	Lines      []CreateOrderLine `json:"lines" binding:"required,min=1,dive"`
}

// CreateOrderLine is one requested line of a new purchase order
type CreateOrderLine struct {
	ItemID    uint    `json:"item_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price"`
}

// ReceiveItemRequest represents one goods receipt against a PO line
type ReceiveItemRequest struct {
	DetailID    uint    `json:"detail_id" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	BatchNumber string  `json:"batch_number"`
	Location    string  `json:"location"`
	Notes       string  `json:"notes"`
}

// Create creates a purchase order directly, bypassing the request queue
func (s *OrderService) Create(req *CreateOrderRequest) (*PurchaseOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

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

	for _, line := range req.Lines {
		detail := PurchaseOrderDetail{
			PurchaseOrderID: order.ID,
			ItemID:          line.ItemID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
		}
		if err := tx.Create(&detail).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create purchase order line: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit purchase order: %w", err)
	}
	return s.GetByID(order.ID)
}

// GetByID returns a purchase order with its lines
func (s *OrderService) GetByID(id uint) (*PurchaseOrder, error) {
	var order PurchaseOrder
	if err := s.db.Preload("Supplier").Preload("Details").Preload("Details.Item").
		First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	return &order, nil
}

// List returns purchase orders, newest first, optionally filtered by status
func (s *OrderService) List(status OrderStatus, limit, offset int) ([]PurchaseOrder, int64, error) {
	query := s.db.Model(&PurchaseOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchase orders: %w", err)
	}

	var orders []PurchaseOrder
	if err := query.Preload("Supplier").
		Order("order_date DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return orders, total, nil
}

// ReceiveItem books one delivery against a PO line. Every receipt creates
// a fresh inventory lot so batches stay traceable to their delivery, plus
// a purchase ledger entry. Over-receiving is allowed; the line closes once
// ReceivedQty reaches the ordered quantity and the order closes once all
// lines are full.
func (s *OrderService) ReceiveItem(orderID uint, req *ReceiveItemRequest) (*PurchaseOrder, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidReceiveQty
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order PurchaseOrder
	if err := tx.First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}
	if order.Status != OrderPending && order.Status != OrderPartial {
		tx.Rollback()
		return nil, ErrOrderClosed
	}

	var detail PurchaseOrderDetail
	if err := tx.Where("id = ? AND purchase_order_id = ?", req.DetailID, order.ID).
		First(&detail).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderLineNotFound
		}
		return nil, fmt.Errorf("failed to load purchase order line: %w", err)
	}

	now := s.clock.Now()
	batch := req.BatchNumber
	if batch == "" {
		batch = fmt.Sprintf("%s-%d", order.PONumber, now.Unix())
	}
	location := req.Location
	if location == "" {
		location = "Warehouse"
	}

	lot := inventory.Lot{
		ItemID:      detail.ItemID,
		Quantity:    req.Quantity,
		BatchNumber: batch,
		Location:    location,
		PODetailID:  &detail.ID,
		Notes:       req.Notes,
	}
	note := fmt.Sprintf("Received against %s", order.PONumber)
	if err := inventory.CreateLot(tx, &lot, inventory.TransactionPurchase, now, note); err != nil {
		tx.Rollback()
		return nil, err
	}

	detail.ReceivedQty += req.Quantity
	if err := tx.Save(&detail).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update received quantity: %w", err)
	}

	var details []PurchaseOrderDetail
	if err := tx.Where("purchase_order_id = ?", order.ID).Find(&details).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load purchase order lines: %w", err)
	}

	allReceived := true
	for _, d := range details {
		if d.ReceivedQty < d.Quantity {
			allReceived = false
			break
		}
	}
	if allReceived {
		order.Status = OrderReceived
	} else {
		order.Status = OrderPartial
	}
	if err := tx.Save(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update purchase order status: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit receipt: %w", err)
	}
	return s.GetByID(order.ID)
}

// Cancel cancels an order that has not received any goods yet
func (s *OrderService) Cancel(id uint) (*PurchaseOrder, error) {
	order, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderPending {
		return nil, ErrOrderClosed
	}

	if err := s.db.Model(&PurchaseOrder{}).Where("id = ?", id).
		Update("status", OrderCancelled).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel purchase order: %w", err)
	}
	order.Status = OrderCancelled
	return order, nil
}
