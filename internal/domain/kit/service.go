// internal/domain/kit/service.go
package kit

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
)

var (
	ErrKitNotFound     = errors.New("kit not found")
	ErrKitNumberExists = errors.New("kit number already exists")
	ErrInvalidStatus   = errors.New("operation not allowed in current status")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Service handles kit assembly jobs. Kit reservations run under the
// allow-negative policy: the full requirement is always booked, with
// warnings and replenishment requests covering whatever stock cannot.
type Service struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
	log    *logrus.Logger
}

// NewService creates a new kit service
func NewService(db *gorm.DB, cfg *config.Config, clk clock.Clock, log *logrus.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{db: db, config: cfg, clock: clk, log: log}
}

// CreateKitRequest represents kit creation data. ItemID is the optional
// output item; kits without one consume material but book no output lot.
type CreateKitRequest struct {
	KitNumber  string              `json:"kit_number" binding:"required"`
	Name       string              `json:"name" binding:"required"`
	ItemID     *uint               `json:"item_id"`
	Quantity   float64             `json:"quantity" binding:"required,gt=0"`
	Notes      string              `json:"notes"`
	Components []KitComponentInput `json:"components" binding:"required,min=1,dive"`
}

// KitComponentInput is one component line of a new kit. LotID optionally
// pins the component to a specific lot.
type KitComponentInput struct {
	ItemID         uint    `json:"item_id" binding:"required"`
	LotID          *uint   `json:"lot_id"`
	QuantityPerKit float64 `json:"quantity_per_kit" binding:"required,gt=0"`
}

// CompleteBuildRequest reports built kits, possibly a partial batch
type CompleteBuildRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// ReserveResult reports a reservation outcome including the warnings
// produced by negative availability
type ReserveResult struct {
	Kit      *KitItem `json:"kit"`
	Warnings []string `json:"warnings,omitempty"`
}

// Create creates a new kit with its component list
func (s *Service) Create(req *CreateKitRequest) (*KitItem, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var count int64
	if err := tx.Model(&KitItem{}).Where("kit_number = ?", req.KitNumber).Count(&count).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to check kit number: %w", err)
	}
	if count > 0 {
		tx.Rollback()
		return nil, ErrKitNumberExists
	}

	kit := KitItem{
		KitNumber: req.KitNumber,
		Name:      req.Name,
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		Status:    StatusPending,
		Notes:     req.Notes,
	}
	if err := tx.Create(&kit).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create kit: %w", err)
	}

	for _, c := range req.Components {
		component := KitComponent{
			KitID:          kit.ID,
			ItemID:         c.ItemID,
			LotID:          c.LotID,
			QuantityPerKit: c.QuantityPerKit,
		}
		if err := tx.Create(&component).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create kit component: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit kit: %w", err)
	}
	return s.GetByID(kit.ID)
}

// GetByID returns a kit with components
func (s *Service) GetByID(id uint) (*KitItem, error) {
	var kit KitItem
	if err := s.db.Preload("Item").Preload("Components").Preload("Components.Item").
		First(&kit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKitNotFound
		}
		return nil, fmt.Errorf("failed to get kit: %w", err)
	}
	return &kit, nil
}

// List returns kits, newest first, optionally filtered by status
func (s *Service) List(status Status, limit, offset int) ([]KitItem, int64, error) {
	query := s.db.Model(&KitItem{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count kits: %w", err)
	}

	var kits []KitItem
	if err := query.Preload("Item").
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&kits).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list kits: %w", err)
	}
	return kits, total, nil
}

// Reserve books material for the full kit requirement. Components pinned
// to a lot take their entire requirement on that lot; the rest draw
// oldest lots first. Demand that free stock cannot cover is still
// reserved, pushing lot availability negative; each such component
// produces a warning and a purchase request after commit. The kit moves
// to in_progress.
func (s *Service) Reserve(id uint) (*ReserveResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var kit KitItem
	if err := tx.First(&kit, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKitNotFound
		}
		return nil, fmt.Errorf("failed to load kit: %w", err)
	}
	if kit.Status != StatusPending && kit.Status != StatusInProgress {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	var components []KitComponent
	if err := tx.Where("kit_id = ?", kit.ID).Find(&components).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load kit components: %w", err)
	}

	var warnings []string
	type pendingRequest struct {
		itemID   uint
		quantity float64
	}
	var requests []pendingRequest

	for i := range components {
		c := &components[i]
		required := c.QuantityPerKit*kit.Quantity - c.AllocatedQty
		if required <= 0 {
			continue
		}

		var uncovered float64
		if c.LotID != nil {
			// Pinned component: the whole requirement lands on its lot,
			// negative availability and all.
			var lot inventory.Lot
			if err := tx.First(&lot, *c.LotID).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to load lot %d for component %d: %w", *c.LotID, c.ID, err)
			}
			avail := lot.Available()
			if avail < 0 {
				avail = 0
			}
			if avail < required {
				uncovered = required - avail
			}
			if err := s.reserveOnLot(tx, &kit, c, lot.ID, required); err != nil {
				tx.Rollback()
				return nil, err
			}
		} else {
			var plan []inventory.Allocation
			var err error
			plan, uncovered, err = inventory.SelectLotsFIFO(tx, c.ItemID, required)
			if err != nil {
				tx.Rollback()
				return nil, err
			}

			for _, a := range plan {
				if err := s.reserveOnLot(tx, &kit, c, a.Lot.ID, a.Quantity); err != nil {
					tx.Rollback()
					return nil, err
				}
			}

			if uncovered > 0 {
				// Book the shortfall on the oldest lot anyway; availability
				// goes negative until replenishment lands.
				var lot inventory.Lot
				err := tx.Where("item_id = ?", c.ItemID).Order("created_at ASC, id ASC").First(&lot).Error
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					tx.Rollback()
					return nil, fmt.Errorf("failed to load lot for item %d: %w", c.ItemID, err)
				}
				if err == nil {
					if err := s.reserveOnLot(tx, &kit, c, lot.ID, uncovered); err != nil {
						tx.Rollback()
						return nil, err
					}
				}
			}
		}

		if uncovered > 0 {
			warnings = append(warnings,
				fmt.Sprintf("item %d short by %.2f for kit %s", c.ItemID, uncovered, kit.KitNumber))
			requests = append(requests, pendingRequest{itemID: c.ItemID, quantity: uncovered})
		}

		if err := tx.Save(c).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update kit component: %w", err)
		}
	}

	kit.Status = StatusInProgress
	if err := tx.Save(&kit).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update kit status: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit kit reservation: %w", err)
	}

	for _, r := range requests {
		note := fmt.Sprintf("Shortage reserving kit %s", kit.KitNumber)
		kitID := kit.ID
		if _, err := purchasing.RequestOrMerge(s.db, r.itemID, r.quantity, purchasing.SourceKitReserve, &kitID, purchasing.PriorityNormal, note); err != nil {
			s.log.WithError(err).WithField("item_id", r.itemID).
				Warn("Failed to raise purchase request for kit shortage")
		}
	}

	loaded, err := s.GetByID(kit.ID)
	if err != nil {
		return nil, err
	}
	return &ReserveResult{Kit: loaded, Warnings: warnings}, nil
}

// reserveOnLot reserves qty on a lot under the allow-negative policy and
// merges the allocation record for (component, lot)
func (s *Service) reserveOnLot(tx *gorm.DB, kit *KitItem, c *KitComponent, lotID uint, qty float64) error {
	if _, err := inventory.Reserve(tx, lotID, qty, inventory.PolicyAllowNegative); err != nil {
		return err
	}

	var allocation KitAllocation
	err := tx.Where("component_id = ? AND lot_id = ?", c.ID, lotID).First(&allocation).Error
	switch {
	case err == nil:
		allocation.Quantity += qty
		if err := tx.Save(&allocation).Error; err != nil {
			return fmt.Errorf("failed to update kit allocation: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		allocation = KitAllocation{
			KitID:       kit.ID,
			ComponentID: c.ID,
			LotID:       lotID,
			Quantity:    qty,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			return fmt.Errorf("failed to create kit allocation: %w", err)
		}
	default:
		return fmt.Errorf("failed to look up kit allocation: %w", err)
	}

	c.AllocatedQty += qty
	return nil
}

// CompleteBuild reports built kits and backflushes components at
// quantity_per_kit * built, drawn from the kit's allocations oldest
// first. Lots driven negative raise urgent purchase requests after
// commit. Output enters stock as a new lot in the Assembly location and
// the kit completes when the cumulative built count reaches the plan.
func (s *Service) CompleteBuild(id uint, req *CompleteBuildRequest) (*KitItem, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var kit KitItem
	if err := tx.First(&kit, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKitNotFound
		}
		return nil, fmt.Errorf("failed to load kit: %w", err)
	}
	if kit.Status != StatusInProgress {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	var components []KitComponent
	if err := tx.Where("kit_id = ?", kit.ID).Find(&components).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load kit components: %w", err)
	}

	now := s.clock.Now()
	note := fmt.Sprintf("Consumed by kit %s", kit.KitNumber)

	type pendingRequest struct {
		itemID   uint
		quantity float64
	}
	var requests []pendingRequest

	for i := range components {
		c := &components[i]
		toConsume := c.QuantityPerKit * req.Quantity
		if toConsume <= 0 {
			continue
		}

		short, err := s.consumeAllocations(tx, c, toConsume, now, note)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		c.ConsumedQty += toConsume
		c.AllocatedQty -= toConsume
		if c.AllocatedQty < 0 {
			c.AllocatedQty = 0
		}
		if err := tx.Save(c).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update kit component: %w", err)
		}

		if short > 0 {
			requests = append(requests, pendingRequest{itemID: c.ItemID, quantity: short})
		}
	}

	if kit.ItemID != nil {
		outputLot := inventory.Lot{
			ItemID:      *kit.ItemID,
			Quantity:    req.Quantity,
			BatchNumber: fmt.Sprintf("KIT-%s-%d", kit.KitNumber, now.Unix()),
			Location:    "Assembly",
		}
		outputNote := fmt.Sprintf("Built by kit %s", kit.KitNumber)
		if err := inventory.CreateLot(tx, &outputLot, inventory.TransactionKitProduction, now, outputNote); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	kit.CompletedQuantity += req.Quantity
	if kit.CompletedQuantity >= kit.Quantity {
		kit.Status = StatusCompleted
	}
	if err := tx.Save(&kit).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update kit: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit kit build: %w", err)
	}

	for _, r := range requests {
		reqNote := fmt.Sprintf("Stock went negative building kit %s", kit.KitNumber)
		kitID := kit.ID
		if _, err := purchasing.RequestOrMerge(s.db, r.itemID, r.quantity, purchasing.SourceKitReserve, &kitID, purchasing.PriorityUrgent, reqNote); err != nil {
			s.log.WithError(err).WithField("item_id", r.itemID).
				Warn("Failed to raise purchase request for kit shortage")
		}
	}

	return s.GetByID(kit.ID)
}

// consumeAllocations draws toConsume from the component's allocations in
// order, then overdraws the oldest lot when they run dry. Reservations
// booked past on-hand stock mean an allocation can itself drive a lot
// negative; every newly negative unit counts toward the returned
// shortfall.
func (s *Service) consumeAllocations(tx *gorm.DB, c *KitComponent, toConsume float64, now time.Time, note string) (float64, error) {
	var allocations []KitAllocation
	if err := tx.Where("component_id = ?", c.ID).Order("id ASC").Find(&allocations).Error; err != nil {
		return 0, fmt.Errorf("failed to load kit allocations: %w", err)
	}

	shortfall := 0.0
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

		var before inventory.Lot
		if err := tx.First(&before, a.LotID).Error; err != nil {
			return 0, fmt.Errorf("failed to load lot %d: %w", a.LotID, err)
		}
		updated, err := inventory.Consume(tx, a.LotID, take, inventory.TransactionKitUsage, now, note)
		if err != nil {
			return 0, err
		}
		if updated.Quantity < 0 {
			negBefore := 0.0
			if before.Quantity < 0 {
				negBefore = -before.Quantity
			}
			shortfall += -updated.Quantity - negBefore
		}
		remaining -= take

		a.Quantity -= take
		if a.Quantity <= 0 {
			if err := tx.Delete(a).Error; err != nil {
				return 0, fmt.Errorf("failed to clear spent kit allocation: %w", err)
			}
		} else {
			if err := tx.Save(a).Error; err != nil {
				return 0, fmt.Errorf("failed to update kit allocation: %w", err)
			}
		}
	}

	if remaining > 0 {
		// Overdraw the pinned lot when the component has one, else the
		// oldest lot for the item.
		var lot inventory.Lot
		var err error
		if c.LotID != nil {
			err = tx.First(&lot, *c.LotID).Error
		} else {
			err = tx.Where("item_id = ?", c.ItemID).Order("created_at ASC, id ASC").First(&lot).Error
		}
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, fmt.Errorf("failed to load lot for overdraw: %w", err)
			}
			return shortfall + remaining, nil
		}
		if _, err := inventory.Consume(tx, lot.ID, remaining, inventory.TransactionKitUsage, now, note); err != nil {
			return 0, err
		}
		shortfall += remaining
	}
	return shortfall, nil
}

// Cancel releases every reservation of a kit and marks it cancelled
func (s *Service) Cancel(id uint) (*KitItem, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var kit KitItem
	if err := tx.First(&kit, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKitNotFound
		}
		return nil, fmt.Errorf("failed to load kit: %w", err)
	}
	if kit.Status == StatusCompleted || kit.Status == StatusCancelled {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	var allocations []KitAllocation
	if err := tx.Where("kit_id = ?", kit.ID).Find(&allocations).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load kit allocations: %w", err)
	}
	for _, a := range allocations {
		if a.Quantity <= 0 {
			continue
		}
		if _, err := inventory.Release(tx, a.LotID, a.Quantity); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Where("kit_id = ?", kit.ID).Delete(&KitAllocation{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to clear kit allocations: %w", err)
	}
	if err := tx.Model(&KitComponent{}).Where("kit_id = ?", kit.ID).
		Update("allocated_qty", 0).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to reset kit components: %w", err)
	}

	kit.Status = StatusCancelled
	if err := tx.Save(&kit).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to cancel kit: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.GetByID(kit.ID)
}
