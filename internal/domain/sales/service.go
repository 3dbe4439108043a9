// internal/domain/sales/service.go
package sales

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
)

var (
	ErrSaleNotFound     = errors.New("sale not found")
	ErrSaleLineNotFound = errors.New("sale line not found")
	ErrInvalidStatus    = errors.New("operation not allowed in current status")
	ErrOverReservation  = errors.New("reservation exceeds ordered quantity")
	ErrNotFullyReserved = errors.New("sale is not fully reserved")
	ErrNothingToRelease = errors.New("no reservation on this lot to release")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
)

// Service handles customer orders: creation, strict lot reservations and
// shipping. Sales never overdraw stock; a reservation that does not fit
// fails instead of going negative.
type Service struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
}

// NewService creates a new sales service
func NewService(db *gorm.DB, cfg *config.Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{db: db, config: cfg, clock: clk}
}

// CreateSaleRequest represents sale creation data
type CreateSaleRequest struct {
	CustomerID uint             `json:"customer_id" binding:"required"`
	Notes      string           `json:"notes"`
	Lines      []CreateSaleLine `json:"lines" binding:"required,min=1,dive"`
}

// CreateSaleLine is one ordered line of a new sale
type CreateSaleLine struct {
	ItemID    uint    `json:"item_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price"`
}

// ReserveLotRequest pins part of a sale line to a specific lot
type ReserveLotRequest struct {
	DetailID uint    `json:"detail_id" binding:"required"`
	LotID    uint    `json:"lot_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// ReleaseLotRequest undoes part of a lot reservation
type ReleaseLotRequest struct {
	DetailID uint    `json:"detail_id" binding:"required"`
	LotID    uint    `json:"lot_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// CreateInTx creates a sale and its lines through the caller's
// transaction. Used directly and by quotation conversion, which needs the
// new sale and the quotation update to commit together.
func CreateInTx(tx *gorm.DB, at time.Time, req *CreateSaleRequest) (*Sale, error) {
	number, err := nextSaleNumber(tx, at.Year())
	if err != nil {
		return nil, err
	}

	sale := Sale{
		SaleNumber: number,
		CustomerID: req.CustomerID,
		Status:     StatusPending,
		OrderDate:  at,
		Notes:      req.Notes,
	}
	if err := tx.Create(&sale).Error; err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	for _, line := range req.Lines {
		detail := SaleDetail{
			SaleID:    sale.ID,
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return nil, fmt.Errorf("failed to create sale line: %w", err)
		}
	}
	return &sale, nil
}

// Create creates a new sale with its lines
func (s *Service) Create(req *CreateSaleRequest) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sale, err := CreateInTx(tx, s.clock.Now(), req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return s.GetByID(sale.ID)
}

// GetByID returns a sale with its lines
func (s *Service) GetByID(id uint) (*Sale, error) {
	var sale Sale
	if err := s.db.Preload("Customer").Preload("Details").Preload("Details.Item").
		First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return &sale, nil
}

// List returns sales, newest first, optionally filtered by status
func (s *Service) List(status Status, limit, offset int) ([]Sale, int64, error) {
	query := s.db.Model(&Sale{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	var sales []Sale
	if err := query.Preload("Customer").
		Order("order_date DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&sales).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, total, nil
}

// ReserveLot reserves part of a sale line against a specific lot under
// the strict policy. The reservation fails when the lot lacks free stock
// or when it would push the line past its ordered quantity.
func (s *Service) ReserveLot(saleID uint, req *ReserveLotRequest) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sale, detail, err := s.loadOpenLine(tx, saleID, req.DetailID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if detail.ReservedQty+req.Quantity > detail.Quantity {
		tx.Rollback()
		return nil, ErrOverReservation
	}

	if _, err := inventory.Reserve(tx, req.LotID, req.Quantity, inventory.PolicyStrict); err != nil {
		tx.Rollback()
		return nil, err
	}

	var allocation SaleAllocation
	err = tx.Where("detail_id = ? AND lot_id = ?", detail.ID, req.LotID).First(&allocation).Error
	switch {
	case err == nil:
		allocation.Quantity += req.Quantity
		if err := tx.Save(&allocation).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update sale allocation: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		allocation = SaleAllocation{
			SaleID:   sale.ID,
			DetailID: detail.ID,
			LotID:    req.LotID,
			Quantity: req.Quantity,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create sale allocation: %w", err)
		}
	default:
		tx.Rollback()
		return nil, fmt.Errorf("failed to look up sale allocation: %w", err)
	}

	detail.ReservedQty += req.Quantity
	if err := tx.Save(detail).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update sale line: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return s.GetByID(sale.ID)
}

// ReleaseLot undoes part of a lot reservation on a sale line
func (s *Service) ReleaseLot(saleID uint, req *ReleaseLotRequest) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sale, detail, err := s.loadOpenLine(tx, saleID, req.DetailID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var allocation SaleAllocation
	if err := tx.Where("detail_id = ? AND lot_id = ?", detail.ID, req.LotID).
		First(&allocation).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNothingToRelease
		}
		return nil, fmt.Errorf("failed to look up sale allocation: %w", err)
	}

	qty := req.Quantity
	if qty > allocation.Quantity {
		qty = allocation.Quantity
	}

	if _, err := inventory.Release(tx, req.LotID, qty); err != nil {
		tx.Rollback()
		return nil, err
	}

	allocation.Quantity -= qty
	if allocation.Quantity <= 0 {
		if err := tx.Delete(&allocation).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to clear sale allocation: %w", err)
		}
	} else {
		if err := tx.Save(&allocation).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update sale allocation: %w", err)
		}
	}

	detail.ReservedQty -= qty
	if detail.ReservedQty < 0 {
		detail.ReservedQty = 0
	}
	if err := tx.Save(detail).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update sale line: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}
	return s.GetByID(sale.ID)
}

// Ship consumes every reservation of a fully reserved sale, writes sale
// ledger entries and marks the sale shipped
func (s *Service) Ship(saleID uint) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var sale Sale
	if err := tx.First(&sale, saleID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale.Status != StatusPending && sale.Status != StatusConfirmed {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	var details []SaleDetail
	if err := tx.Where("sale_id = ?", sale.ID).Find(&details).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale lines: %w", err)
	}
	for _, d := range details {
		if d.ReservedQty < d.Quantity {
			tx.Rollback()
			return nil, fmt.Errorf("line %d: %w", d.ID, ErrNotFullyReserved)
		}
	}

	now := s.clock.Now()
	note := fmt.Sprintf("Shipped on %s", sale.SaleNumber)
	for i := range details {
		d := &details[i]

		var allocations []SaleAllocation
		if err := tx.Where("detail_id = ?", d.ID).Order("id ASC").Find(&allocations).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to load sale allocations: %w", err)
		}
		for _, a := range allocations {
			if a.Quantity <= 0 {
				continue
			}
			if _, err := inventory.Consume(tx, a.LotID, a.Quantity, inventory.TransactionSale, now, note); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if err := tx.Where("detail_id = ?", d.ID).Delete(&SaleAllocation{}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to clear sale allocations: %w", err)
		}

		d.ReservedQty = 0
		if err := tx.Save(d).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update sale line: %w", err)
		}
	}

	sale.Status = StatusShipped
	sale.ShippedAt = &now
	if err := tx.Save(&sale).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit shipment: %w", err)
	}
	return s.GetByID(sale.ID)
}

// Cancel releases every reservation of a sale and marks it cancelled
func (s *Service) Cancel(saleID uint) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var sale Sale
	if err := tx.First(&sale, saleID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale.Status == StatusShipped || sale.Status == StatusCancelled {
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	var allocations []SaleAllocation
	if err := tx.Where("sale_id = ?", sale.ID).Find(&allocations).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale allocations: %w", err)
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
	if err := tx.Where("sale_id = ?", sale.ID).Delete(&SaleAllocation{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to clear sale allocations: %w", err)
	}
	if err := tx.Model(&SaleDetail{}).Where("sale_id = ?", sale.ID).
		Update("reserved_qty", 0).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to reset sale lines: %w", err)
	}

	sale.Status = StatusCancelled
	if err := tx.Save(&sale).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to cancel sale: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.GetByID(sale.ID)
}

// Confirm moves a pending sale to confirmed
func (s *Service) Confirm(saleID uint) (*Sale, error) {
	sale, err := s.GetByID(saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status != StatusPending {
		return nil, ErrInvalidStatus
	}
	if err := s.db.Model(&Sale{}).Where("id = ?", saleID).
		Update("status", StatusConfirmed).Error; err != nil {
		return nil, fmt.Errorf("failed to confirm sale: %w", err)
	}
	sale.Status = StatusConfirmed
	return sale, nil
}

func (s *Service) loadOpenLine(tx *gorm.DB, saleID, detailID uint) (*Sale, *SaleDetail, error) {
	var sale Sale
	if err := tx.First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSaleNotFound
		}
		return nil, nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale.Status != StatusPending && sale.Status != StatusConfirmed {
		return nil, nil, ErrInvalidStatus
	}

	var detail SaleDetail
	if err := tx.Where("id = ? AND sale_id = ?", detailID, sale.ID).First(&detail).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSaleLineNotFound
		}
		return nil, nil, fmt.Errorf("failed to load sale line: %w", err)
	}
	return &sale, &detail, nil
}

// nextSaleNumber generates the next SO-<year>-NNNN number through the
// open transaction
func nextSaleNumber(tx *gorm.DB, year int) (string, error) {
	pattern := fmt.Sprintf("SO-%d-%%", year)

	var numbers []string
	if err := tx.Model(&Sale{}).
		Where("sale_number LIKE ?", pattern).
		Pluck("sale_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to scan sale numbers: %w", err)
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
	return fmt.Sprintf("SO-%d-%04d", year, maxSeq+1), nil
}
