// internal/domain/inventory/service.go
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
)

var (
	ErrLotNotFound       = errors.New("inventory lot not found")
	ErrInsufficientStock = errors.New("insufficient available stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// The functions below operate on the caller's transaction handle so that
// multi-lot operations (work order allocation, kit builds, shipping) stay
// atomic with the caller's own writes.

// SelectLotsFIFO builds an allocation plan for needed units of an item,
// oldest lot first. Lots with zero or negative availability are skipped.
// Returns the plan and the remaining quantity that could not be covered.
func SelectLotsFIFO(tx *gorm.DB, itemID uint, needed float64) ([]Allocation, float64, error) {
	var lots []Lot
	if err := tx.Where("item_id = ? AND quantity - reservation_qty > 0", itemID).
		Order("created_at ASC, id ASC").
		Find(&lots).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load lots for item %d: %w", itemID, err)
	}

	var plan []Allocation
	remaining := needed
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		qty := lot.Available()
		if qty > remaining {
			qty = remaining
		}
		plan = append(plan, Allocation{Lot: lot, Quantity: qty})
		remaining -= qty
	}
	if remaining < 0 {
		remaining = 0
	}
	return plan, remaining, nil
}

// Reserve increases a lot's reservation by qty under the given policy.
// Under PolicyStrict the reservation fails with ErrInsufficientStock when
// qty exceeds the lot's availability.
func Reserve(tx *gorm.DB, lotID uint, qty float64, policy ReservationPolicy) (*Lot, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var lot Lot
	if err := tx.First(&lot, lotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to load lot %d: %w", lotID, err)
	}

	if policy == PolicyStrict && lot.Available() < qty {
		return nil, fmt.Errorf("lot %d has %.2f available, requested %.2f: %w",
			lot.ID, lot.Available(), qty, ErrInsufficientStock)
	}

	lot.ReservationQty += qty
	if err := tx.Save(&lot).Error; err != nil {
		return nil, fmt.Errorf("failed to update reservation on lot %d: %w", lot.ID, err)
	}
	return &lot, nil
}

// Release decreases a lot's reservation by qty, floored at zero
func Release(tx *gorm.DB, lotID uint, qty float64) (*Lot, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var lot Lot
	if err := tx.First(&lot, lotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to load lot %d: %w", lotID, err)
	}

	lot.ReservationQty -= qty
	if lot.ReservationQty < 0 {
		lot.ReservationQty = 0
	}
	if err := tx.Save(&lot).Error; err != nil {
		return nil, fmt.Errorf("failed to update reservation on lot %d: %w", lot.ID, err)
	}
	return &lot, nil
}

// Consume deducts qty from a lot's on-hand quantity, drops the matching
// reservation (floored at zero) and appends a negative ledger entry.
// The lot quantity itself is allowed to go negative; callers detect that
// and raise replenishment requests.
func Consume(tx *gorm.DB, lotID uint, qty float64, txnType TransactionType, at time.Time, notes string) (*Lot, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var lot Lot
	if err := tx.First(&lot, lotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to load lot %d: %w", lotID, err)
	}

	lot.Quantity -= qty
	lot.ReservationQty -= qty
	if lot.ReservationQty < 0 {
		lot.ReservationQty = 0
	}
	if err := tx.Save(&lot).Error; err != nil {
		return nil, fmt.Errorf("failed to update lot %d: %w", lot.ID, err)
	}

	if err := AppendTransaction(tx, lot.ID, lot.ItemID, -qty, txnType, at, notes); err != nil {
		return nil, err
	}
	return &lot, nil
}

// CreateLot inserts a new lot and appends a positive ledger entry for the
// initial quantity. Used by PO receiving and production output.
func CreateLot(tx *gorm.DB, lot *Lot, txnType TransactionType, at time.Time, notes string) error {
	if lot.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := tx.Create(lot).Error; err != nil {
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return AppendTransaction(tx, lot.ID, lot.ItemID, lot.Quantity, txnType, at, notes)
}

// AppendTransaction writes one ledger row. The ledger is append-only.
func AppendTransaction(tx *gorm.DB, lotID, itemID uint, qty float64, txnType TransactionType, at time.Time, notes string) error {
	entry := Transaction{
		LotID:           lotID,
		ItemID:          itemID,
		Quantity:        qty,
		Type:            txnType,
		TransactionDate: at,
		Notes:           notes,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append inventory transaction: %w", err)
	}
	return nil
}

// AvailableForItem returns the total unreserved quantity across all lots
// of an item
func AvailableForItem(tx *gorm.DB, itemID uint) (float64, error) {
	var total *float64
	err := tx.Model(&Lot{}).
		Select("SUM(quantity - reservation_qty)").
		Where("item_id = ?", itemID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum availability for item %d: %w", itemID, err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// Service handles pool-scoped inventory reads and manual adjustments
type Service struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{db: db, config: cfg, clock: clk}
}

// AdjustRequest represents a manual stock correction
type AdjustRequest struct {
	Quantity float64 `json:"quantity" binding:"required"` // signed delta
	Notes    string  `json:"notes"`
}

// ListLots returns lots, optionally filtered by item, oldest first
func (s *Service) ListLots(itemID uint, limit, offset int) ([]Lot, int64, error) {
	query := s.db.Model(&Lot{})
	if itemID > 0 {
		query = query.Where("item_id = ?", itemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count lots: %w", err)
	}

	var lots []Lot
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&lots).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list lots: %w", err)
	}
	return lots, total, nil
}

// GetLot returns a single lot by ID
func (s *Service) GetLot(id uint) (*Lot, error) {
	var lot Lot
	if err := s.db.First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	return &lot, nil
}

// ListTransactions returns ledger entries, newest first, optionally
// filtered by item or lot
func (s *Service) ListTransactions(itemID, lotID uint, limit, offset int) ([]Transaction, int64, error) {
	query := s.db.Model(&Transaction{})
	if itemID > 0 {
		query = query.Where("item_id = ?", itemID)
	}
	if lotID > 0 {
		query = query.Where("lot_id = ?", lotID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var entries []Transaction
	if err := query.Order("transaction_date DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, total, nil
}

// AvailableByItem returns the pool-scoped availability of an item
func (s *Service) AvailableByItem(itemID uint) (float64, error) {
	return AvailableForItem(s.db, itemID)
}

// Adjust applies a manual signed correction to a lot and records it in
// the ledger
func (s *Service) Adjust(lotID uint, req *AdjustRequest) (*Lot, error) {
	if req.Quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var lot Lot
	if err := tx.First(&lot, lotID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to load lot %d: %w", lotID, err)
	}

	lot.Quantity += req.Quantity
	if err := tx.Save(&lot).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to adjust lot %d: %w", lot.ID, err)
	}

	if err := AppendTransaction(tx, lot.ID, lot.ItemID, req.Quantity, TransactionAdjustment, s.clock.Now(), req.Notes); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}
	return &lot, nil
}
