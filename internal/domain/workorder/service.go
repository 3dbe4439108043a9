// internal/domain/workorder/service.go
package workorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/bom"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
)

var (
	ErrWorkOrderNotFound = errors.New("work order not found")
	ErrInvalidStatus     = errors.New("operation not allowed in current status")
	ErrNoBOM             = errors.New("item has no active bill of materials")
	ErrBOMCycle          = errors.New("bill of materials cycle detected")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Service handles the work order lifecycle: BOM explosion into an order
// tree, material allocation, readiness tracking, completion backflush and
// cancellation.
type Service struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
	log    *logrus.Logger
}

// NewService creates a new work order service
func NewService(db *gorm.DB, cfg *config.Config, clk clock.Clock, log *logrus.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{db: db, config: cfg, clock: clk, log: log}
}

// CreateWorkOrderRequest represents work order creation data
type CreateWorkOrderRequest struct {
	ItemID   uint       `json:"item_id" binding:"required"`
	Quantity float64    `json:"quantity" binding:"required,gt=0"`
	Priority Priority   `json:"priority" binding:"omitempty,oneof=low normal high"`
	SaleID   *uint      `json:"sale_id"`
	DueDate  *time.Time `json:"due_date"`
	Notes    string     `json:"notes"`
}

// CreateManualRequest represents a work order entered by hand, with an
// explicit component list instead of a BOM explosion
type CreateManualRequest struct {
	ItemID     uint              `json:"item_id" binding:"required"`
	Quantity   float64           `json:"quantity" binding:"required,gt=0"`
	Priority   Priority          `json:"priority" binding:"omitempty,oneof=low normal high"`
	SaleID     *uint             `json:"sale_id"`
	DueDate    *time.Time        `json:"due_date"`
	Notes      string            `json:"notes"`
	Components []ManualComponent `json:"components" binding:"required,min=1,dive"`
}

// ManualComponent is one hand-entered material requirement, quantity total
// for the whole order
type ManualComponent struct {
	ItemID   uint    `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// CompleteRequest reports produced quantity, possibly partial
type CompleteRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// shortage records uncovered component demand discovered during an
// operation, turned into purchase requests after commit
type shortage struct {
	itemID      uint
	quantity    float64
	workOrderID uint
	priority    purchasing.RequestPriority
	note        string
}

// Readiness reasons reported when an order cannot start
const (
	ReasonChildrenIncomplete = "children_incomplete"
	ReasonMaterialShortage   = "material_shortage"
)

// ComponentShortage is one component's uncovered demand found during a
// readiness check
type ComponentShortage struct {
	ItemID    uint    `json:"item_id"`
	Required  float64 `json:"required"`
	Allocated float64 `json:"allocated"`
	Available float64 `json:"available"`
	Shortage  float64 `json:"shortage"`
}

// ReadinessResult is the verdict of a readiness check. A not-ready order
// is a normal outcome, not an error; Reason and Shortages say why.
type ReadinessResult struct {
	WorkOrder *WorkOrder          `json:"work_order"`
	Ready     bool                `json:"ready"`
	Reason    string              `json:"reason,omitempty"`
	Message   string              `json:"message,omitempty"`
	Shortages []ComponentShortage `json:"shortages,omitempty"`
}

// StartResult reports a start attempt. When the order is not ready the
// attempt is refused with the readiness verdict instead of an error.
type StartResult struct {
	WorkOrder *WorkOrder          `json:"work_order"`
	Started   bool                `json:"started"`
	Reason    string              `json:"reason,omitempty"`
	Message   string              `json:"message,omitempty"`
	Shortages []ComponentShortage `json:"shortages,omitempty"`
}

// readinessDetail is the internal not-ready explanation
type readinessDetail struct {
	reason    string
	message   string
	shortages []ComponentShortage
}

// CreateFromBOM explodes the item's active BOM into a work order tree in
// a single transaction. Components that have their own active BOM spawn
// child work orders recursively; an order with children starts blocked,
// a leaf order starts pending. The whole tree is created atomically.
func (s *Service) CreateFromBOM(req *CreateWorkOrderRequest) (*WorkOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	root, err := s.createRecursive(tx, req.ItemID, req.Quantity, nil, nil, 0, req.SaleID, req.DueDate, priority, req.Notes, map[uint]bool{}, true)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit work order tree: %w", err)
	}
	return s.GetByID(root.ID)
}

func (s *Service) createRecursive(tx *gorm.DB, itemID uint, qty float64, parentID, rootID *uint, depth int, saleID *uint, dueDate *time.Time, priority Priority, notes string, visited map[uint]bool, requireBOM bool) (*WorkOrder, error) {
	if visited[itemID] {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrBOMCycle)
	}
	visited[itemID] = true
	defer delete(visited, itemID)

	b, err := bom.ActiveForItem(tx, itemID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		if requireBOM {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrNoBOM)
		}
		return nil, nil
	}

	now := s.clock.Now()
	number, err := nextWorkOrderNumber(tx, now.Year())
	if err != nil {
		return nil, err
	}

	wo := WorkOrder{
		WONumber: number,
		ItemID:   itemID,
		BOMID:    &b.ID,
		Quantity: qty,
		Status:   StatusPending,
		Priority: priority,
		ParentID: parentID,
		RootWOID: rootID,
		Depth:    depth,
		SaleID:   saleID,
		DueDate:  dueDate,
		Notes:    notes,
	}
	if err := tx.Create(&wo).Error; err != nil {
		return nil, fmt.Errorf("failed to create work order: %w", err)
	}
	if rootID == nil {
		// The root points at itself so one root_wo_id query covers the tree.
		wo.RootWOID = &wo.ID
		if err := tx.Model(&WorkOrder{}).Where("id = ?", wo.ID).Update("root_wo_id", wo.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to set work order root: %w", err)
		}
		rootID = &wo.ID
	}

	outputQty := b.OutputQuantity
	if outputQty <= 0 {
		outputQty = 1
	}

	hasChildren := false
	for _, c := range b.Components {
		required := c.Quantity * qty / outputQty
		component := Component{
			WorkOrderID: wo.ID,
			ItemID:      c.ItemID,
			Quantity:    required,
		}
		if err := tx.Create(&component).Error; err != nil {
			return nil, fmt.Errorf("failed to create work order component: %w", err)
		}

		child, err := s.createRecursive(tx, c.ItemID, required, &wo.ID, rootID, depth+1, saleID, dueDate, priority, "", visited, false)
		if err != nil {
			return nil, err
		}
		if child != nil {
			hasChildren = true
			component.IsSubassembly = true
			component.ChildWorkOrderID = &child.ID
			if err := tx.Save(&component).Error; err != nil {
				return nil, fmt.Errorf("failed to tag subassembly component: %w", err)
			}
		}
	}

	if hasChildren {
		wo.Status = StatusBlocked
		if err := tx.Save(&wo).Error; err != nil {
			return nil, fmt.Errorf("failed to update work order status: %w", err)
		}
	}
	return &wo, nil
}

// Create creates a single work order from a hand-entered component list.
// No BOM is consulted and no child orders are spawned.
func (s *Service) Create(req *CreateManualRequest) (*WorkOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := s.clock.Now()
	number, err := nextWorkOrderNumber(tx, now.Year())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	wo := WorkOrder{
		WONumber: number,
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Status:   StatusPending,
		Priority: priority,
		SaleID:   req.SaleID,
		DueDate:  req.DueDate,
		Notes:    req.Notes,
	}
	if err := tx.Create(&wo).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create work order: %w", err)
	}
	wo.RootWOID = &wo.ID
	if err := tx.Model(&WorkOrder{}).Where("id = ?", wo.ID).Update("root_wo_id", wo.ID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to set work order root: %w", err)
	}

	for _, c := range req.Components {
		component := Component{
			WorkOrderID: wo.ID,
			ItemID:      c.ItemID,
			Quantity:    c.Quantity,
		}
		if err := tx.Create(&component).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create work order component: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit work order: %w", err)
	}
	return s.GetByID(wo.ID)
}

// GetByID returns a work order with components and direct children
func (s *Service) GetByID(id uint) (*WorkOrder, error) {
	var wo WorkOrder
	if err := s.db.Preload("Item").
		Preload("Components").Preload("Components.Item").
		Preload("Children").
		First(&wo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	wo.computeProgress()
	for i := range wo.Children {
		wo.Children[i].computeProgress()
	}
	return &wo, nil
}

// GetTree returns a work order with its full descendant tree loaded
func (s *Service) GetTree(id uint) (*WorkOrder, error) {
	wo, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	for i := range wo.Children {
		child, err := s.GetTree(wo.Children[i].ID)
		if err != nil {
			return nil, err
		}
		wo.Children[i] = *child
	}
	return wo, nil
}

// List returns work orders, newest first, optionally filtered by status.
// rootsOnly restricts the result to top level orders.
func (s *Service) List(status Status, rootsOnly bool, limit, offset int) ([]WorkOrder, int64, error) {
	query := s.db.Model(&WorkOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if rootsOnly {
		query = query.Where("parent_id IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count work orders: %w", err)
	}

	var orders []WorkOrder
	if err := query.Preload("Item").
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list work orders: %w", err)
	}
	for i := range orders {
		orders[i].computeProgress()
	}
	return orders, total, nil
}

// CheckReady recomputes a work order's blocked/ready state. An order is
// blocked while any child order is incomplete, and blocked while any
// non-subassembly component's unallocated remainder exceeds the item's
// free stock. Orders already started, completed or cancelled are left
// untouched. A not-ready verdict is reported in the result, never as an
// error.
func (s *Service) CheckReady(id uint) (*ReadinessResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	wo, status, detail, err := s.evaluateReadiness(tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if status != wo.Status {
		wo.Status = status
		if err := tx.Save(wo).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update work order status: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit readiness check: %w", err)
	}

	result := &ReadinessResult{WorkOrder: wo, Ready: status == StatusReady}
	if detail != nil {
		result.Reason = detail.reason
		result.Message = detail.message
		result.Shortages = detail.shortages
	} else if !result.Ready {
		result.Message = fmt.Sprintf("work order is %s", status)
	}
	return result, nil
}

// evaluateReadiness computes the pending/blocked/ready verdict for a work
// order through the given transaction, with the not-ready explanation.
// Subassembly components are covered by their child orders' output and do
// not count against stock. The returned status equals the current one for
// orders past the allocation phase.
func (s *Service) evaluateReadiness(tx *gorm.DB, id uint) (*WorkOrder, Status, *readinessDetail, error) {
	var wo WorkOrder
	if err := tx.First(&wo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil, ErrWorkOrderNotFound
		}
		return nil, "", nil, fmt.Errorf("failed to load work order: %w", err)
	}

	if wo.Status != StatusPending && wo.Status != StatusBlocked && wo.Status != StatusReady {
		return &wo, wo.Status, nil, nil
	}

	var incompleteChildren int64
	if err := tx.Model(&WorkOrder{}).
		Where("parent_id = ? AND status NOT IN ?", wo.ID, []Status{StatusCompleted, StatusCancelled}).
		Count(&incompleteChildren).Error; err != nil {
		return nil, "", nil, fmt.Errorf("failed to count child orders: %w", err)
	}
	if incompleteChildren > 0 {
		return &wo, StatusBlocked, &readinessDetail{
			reason:  ReasonChildrenIncomplete,
			message: fmt.Sprintf("%d child work orders are not finished", incompleteChildren),
		}, nil
	}

	var components []Component
	if err := tx.Where("work_order_id = ?", wo.ID).Find(&components).Error; err != nil {
		return nil, "", nil, fmt.Errorf("failed to load components: %w", err)
	}
	var shortages []ComponentShortage
	for _, c := range components {
		if c.IsSubassembly {
			continue
		}
		remaining := c.Quantity - c.AllocatedQty
		if remaining <= 0 {
			continue
		}
		available, err := inventory.AvailableForItem(tx, c.ItemID)
		if err != nil {
			return nil, "", nil, err
		}
		if available < remaining {
			shortages = append(shortages, ComponentShortage{
				ItemID:    c.ItemID,
				Required:  c.Quantity,
				Allocated: c.AllocatedQty,
				Available: available,
				Shortage:  remaining - available,
			})
		}
	}
	if len(shortages) > 0 {
		return &wo, StatusBlocked, &readinessDetail{
			reason:    ReasonMaterialShortage,
			message:   fmt.Sprintf("%d components lack material", len(shortages)),
			shortages: shortages,
		}, nil
	}
	return &wo, StatusReady, nil, nil
}

// Allocate reserves material for every stock component of a work order,
// oldest lots first. Subassembly components are skipped; their demand is
// met by the child order's output lot. Each covered slice becomes a lot reservation plus an
// allocation record; uncovered remainders become purchase requests after
// commit. The order ends up ready when children are done and every
// component is fully covered, blocked otherwise.
func (s *Service) Allocate(id uint) (*WorkOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var wo WorkOrder
	if err := tx.First(&wo, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}
	if wo.Status != StatusPending && wo.Status != StatusBlocked && wo.Status != StatusReady {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	var components []Component
	if err := tx.Where("work_order_id = ?", wo.ID).Find(&components).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load components: %w", err)
	}

	var shortages []shortage
	for i := range components {
		c := &components[i]
		if c.IsSubassembly {
			continue
		}
		remaining := c.Quantity - c.AllocatedQty
		if remaining <= 0 {
			continue
		}

		plan, uncovered, err := inventory.SelectLotsFIFO(tx, c.ItemID, remaining)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		for _, a := range plan {
			if _, err := inventory.Reserve(tx, a.Lot.ID, a.Quantity, inventory.PolicyStrict); err != nil {
				tx.Rollback()
				return nil, err
			}
			record := ComponentAllocation{
				WorkOrderID: wo.ID,
				ComponentID: c.ID,
				LotID:       a.Lot.ID,
				Quantity:    a.Quantity,
			}
			if err := tx.Create(&record).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to record allocation: %w", err)
			}
			c.AllocatedQty += a.Quantity
		}
		if err := tx.Save(c).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update component allocation: %w", err)
		}

		if uncovered > 0 {
			shortages = append(shortages, shortage{
				itemID:      c.ItemID,
				quantity:    uncovered,
				workOrderID: wo.ID,
				priority:    purchasing.PriorityNormal,
				note:        fmt.Sprintf("Shortage allocating %s", wo.WONumber),
			})
		}
	}

	_, status, _, err := s.evaluateReadiness(tx, wo.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if status != wo.Status {
		if err := tx.Model(&WorkOrder{}).Where("id = ?", wo.ID).Update("status", status).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update work order status: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}

	s.raiseShortages(shortages)
	return s.GetByID(wo.ID)
}

// Start re-checks readiness and moves a ready work order into
// production. A not-ready order is refused with the readiness verdict in
// the result; only orders already past the allocation phase are an error.
func (s *Service) Start(id uint) (*StartResult, error) {
	check, err := s.CheckReady(id)
	if err != nil {
		return nil, err
	}
	if st := check.WorkOrder.Status; st == StatusInProgress || st == StatusCompleted || st == StatusCancelled {
		return nil, ErrInvalidStatus
	}

	if !check.Ready {
		loaded, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		return &StartResult{
			WorkOrder: loaded,
			Reason:    check.Reason,
			Message:   check.Message,
			Shortages: check.Shortages,
		}, nil
	}

	now := s.clock.Now()
	if err := s.db.Model(&WorkOrder{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            StatusInProgress,
			"actual_start_date": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to start work order: %w", err)
	}

	loaded, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &StartResult{WorkOrder: loaded, Started: true}, nil
}

// Complete reports produced quantity on an in-progress work order and
// backflushes material proportionally: each stock component is consumed at
// required * reported/ordered, drawn from the order's lot allocations
// oldest first. Consumption past what was allocated drives lot quantities
// negative and raises urgent purchase requests after commit. The produced
// quantity enters stock as a new lot in the Production location. When the
// cumulative reported quantity reaches the ordered quantity the order
// completes and its parent is re-checked for readiness.
func (s *Service) Complete(id uint, req *CompleteRequest) (*WorkOrder, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var wo WorkOrder
	if err := tx.First(&wo, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}
	if wo.Status != StatusInProgress {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	now := s.clock.Now()
	ratio := req.Quantity / wo.Quantity

	var components []Component
	if err := tx.Where("work_order_id = ?", wo.ID).Find(&components).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load components: %w", err)
	}

	var shortages []shortage
	usageNote := fmt.Sprintf("Consumed by %s", wo.WONumber)
	for i := range components {
		c := &components[i]
		if c.IsSubassembly {
			continue
		}
		toConsume := c.Quantity * ratio
		if toConsume <= 0 {
			continue
		}

		consumed, short, err := s.consumeAllocations(tx, c, toConsume, now, usageNote)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		c.ConsumedQty += consumed
		c.AllocatedQty -= consumed
		if c.AllocatedQty < 0 {
			c.AllocatedQty = 0
		}
		if err := tx.Save(c).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update component consumption: %w", err)
		}

		if short > 0 {
			shortages = append(shortages, shortage{
				itemID:      c.ItemID,
				quantity:    short,
				workOrderID: wo.ID,
				priority:    purchasing.PriorityUrgent,
				note:        fmt.Sprintf("Stock went negative completing %s", wo.WONumber),
			})
		}
	}

	outputLot := inventory.Lot{
		ItemID:      wo.ItemID,
		Quantity:    req.Quantity,
		BatchNumber: fmt.Sprintf("%s-%d", wo.WONumber, now.Unix()),
		Location:    "Production",
	}
	outputNote := fmt.Sprintf("Produced by %s", wo.WONumber)
	if err := inventory.CreateLot(tx, &outputLot, inventory.TransactionKitProduction, now, outputNote); err != nil {
		tx.Rollback()
		return nil, err
	}

	wo.CompletedQuantity += req.Quantity
	parentToCheck := (*uint)(nil)
	if wo.CompletedQuantity >= wo.Quantity {
		wo.Status = StatusCompleted
		wo.ActualEndDate = &now
		parentToCheck = wo.ParentID
	}
	if err := tx.Save(&wo).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update work order: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	s.raiseShortages(shortages)
	if parentToCheck != nil {
		if _, err := s.CheckReady(*parentToCheck); err != nil {
			s.log.WithError(err).WithField("work_order_id", *parentToCheck).
				Warn("Failed to re-check parent work order readiness")
		}
	}
	return s.GetByID(wo.ID)
}

// consumeAllocations draws toConsume units of a component from its lot
// allocations in allocation order, then from remaining item lots FIFO when
// the allocations run dry. Returns the quantity actually drawn through
// allocations plus overdraw, and the overdraw amount that sent lots
// negative.
func (s *Service) consumeAllocations(tx *gorm.DB, c *Component, toConsume float64, now time.Time, note string) (float64, float64, error) {
	var allocations []ComponentAllocation
	if err := tx.Where("component_id = ?", c.ID).Order("id ASC").Find(&allocations).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to load allocations: %w", err)
	}

	remaining := toConsume
	for i := range allocations {
		if remaining <= 0 {
			break
		}
		a := &allocations[i]
		take := a.Quantity
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}

		if _, err := inventory.Consume(tx, a.LotID, take, inventory.TransactionKitUsage, now, note); err != nil {
			return 0, 0, err
		}
		remaining -= take

		a.Quantity -= take
		if a.Quantity <= 0 {
			if err := tx.Delete(a).Error; err != nil {
				return 0, 0, fmt.Errorf("failed to clear spent allocation: %w", err)
			}
		} else {
			if err := tx.Save(a).Error; err != nil {
				return 0, 0, fmt.Errorf("failed to update allocation: %w", err)
			}
		}
	}

	// Allocations exhausted; overdraw the oldest lot so the ledger still
	// balances and the shortfall becomes visible as negative stock.
	overdraw := 0.0
	if remaining > 0 {
		var lot inventory.Lot
		err := tx.Where("item_id = ?", c.ItemID).Order("created_at ASC, id ASC").First(&lot).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, 0, fmt.Errorf("failed to load lot for overdraw: %w", err)
			}
			// No lot has ever existed for this item; nothing to deduct from.
			return toConsume - remaining, remaining, nil
		}
		if _, err := inventory.Consume(tx, lot.ID, remaining, inventory.TransactionKitUsage, now, note); err != nil {
			return 0, 0, err
		}
		overdraw = remaining
		remaining = 0
	}

	return toConsume, overdraw, nil
}

// Cancel cancels a work order and its direct children, releasing every
// lot reservation they hold. Deeper descendants are left untouched and
// must be cancelled separately.
func (s *Service) Cancel(id uint) (*WorkOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var wo WorkOrder
	if err := tx.First(&wo, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}
	if wo.Status == StatusCompleted || wo.Status == StatusCancelled {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	if err := s.cancelOne(tx, &wo); err != nil {
		tx.Rollback()
		return nil, err
	}

	var children []WorkOrder
	if err := tx.Where("parent_id = ? AND status NOT IN ?", wo.ID,
		[]Status{StatusCompleted, StatusCancelled}).Find(&children).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load child orders: %w", err)
	}
	for i := range children {
		if err := s.cancelOne(tx, &children[i]); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.GetByID(wo.ID)
}

func (s *Service) cancelOne(tx *gorm.DB, wo *WorkOrder) error {
	var allocations []ComponentAllocation
	if err := tx.Where("work_order_id = ?", wo.ID).Find(&allocations).Error; err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}
	for _, a := range allocations {
		if a.Quantity <= 0 {
			continue
		}
		if _, err := inventory.Release(tx, a.LotID, a.Quantity); err != nil {
			return err
		}
	}
	if err := tx.Where("work_order_id = ?", wo.ID).Delete(&ComponentAllocation{}).Error; err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	if err := tx.Model(&Component{}).Where("work_order_id = ?", wo.ID).
		Update("allocated_qty", 0).Error; err != nil {
		return fmt.Errorf("failed to reset component allocations: %w", err)
	}

	wo.Status = StatusCancelled
	if err := tx.Save(wo).Error; err != nil {
		return fmt.Errorf("failed to cancel work order: %w", err)
	}
	return nil
}

// raiseShortages turns shortfalls into purchase requests after the owning
// transaction has committed. Failures are logged, never propagated.
func (s *Service) raiseShortages(shortages []shortage) {
	for _, sh := range shortages {
		woID := sh.workOrderID
		if _, err := purchasing.RequestOrMerge(s.db, sh.itemID, sh.quantity, purchasing.SourceWorkOrder, &woID, sh.priority, sh.note); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"item_id":  sh.itemID,
				"quantity": sh.quantity,
			}).Warn("Failed to raise purchase request for shortage")
		}
	}
}

// nextWorkOrderNumber generates the next WO-<year>-NNNN number, reading
// existing numbers through the open transaction
func nextWorkOrderNumber(tx *gorm.DB, year int) (string, error) {
	pattern := fmt.Sprintf("WO-%d-%%", year)

	var numbers []string
	if err := tx.Model(&WorkOrder{}).
		Where("wo_number LIKE ?", pattern).
		Pluck("wo_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to scan work order numbers: %w", err)
	}

	maxSeq := 0
	for _, number := range numbers {
		idx := strings.LastIndex(number, "-")
		if idx < 0 {
			continue
		}
		seq, err := strconv.Atoi(number[idx+1:])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("WO-%d-%04d", year, maxSeq+1), nil
}
