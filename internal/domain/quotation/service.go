// internal/domain/quotation/service.go
package quotation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/sales"
)

var (
	ErrQuotationNotFound = errors.New("quotation not found")
	ErrInvalidStatus     = errors.New("operation not allowed in current status")
	ErrAlreadyConverted  = errors.New("quotation already converted")
)

// Service handles quotations and their conversion into sales
type Service struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
}

// NewService creates a new quotation service
func NewService(db *gorm.DB, cfg *config.Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{db: db, config: cfg, clock: clk}
}

// CreateQuotationRequest represents quotation creation data
type CreateQuotationRequest struct {
	CustomerID uint                  `json:"customer_id" binding:"required"`
	ValidUntil *time.Time            `json:"valid_until"`
	Notes      string                `json:"notes"`
	Lines      []CreateQuotationLine `json:"lines" binding:"required,min=1,dive"`
}

// CreateQuotationLine is one offered line of a new quotation
type CreateQuotationLine struct {
	ItemID    uint    `json:"item_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price"`
}

// UpdateStatusRequest represents a quotation status change
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=draft sent accepted rejected"`
}

// Create creates a new draft quotation
func (s *Service) Create(req *CreateQuotationRequest) (*Quotation, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := s.clock.Now()
	number, err := nextQuoteNumber(tx, now.Year())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	quote := Quotation{
		QuoteNumber: number,
		CustomerID:  req.CustomerID,
		Status:      StatusDraft,
		QuoteDate:   now,
		ValidUntil:  req.ValidUntil,
		Notes:       req.Notes,
	}
	if err := tx.Create(&quote).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create quotation: %w", err)
	}

	for _, line := range req.Lines {
		detail := QuotationDetail{
			QuotationID: quote.ID,
			ItemID:      line.ItemID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		}
		if err := tx.Create(&detail).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create quotation line: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit quotation: %w", err)
	}
	return s.GetByID(quote.ID)
}

// GetByID returns a quotation with its lines
func (s *Service) GetByID(id uint) (*Quotation, error) {
	var quote Quotation
	if err := s.db.Preload("Customer").Preload("Details").Preload("Details.Item").
		First(&quote, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &quote, nil
}

// List returns quotations, newest first, optionally filtered by status
func (s *Service) List(status Status, limit, offset int) ([]Quotation, int64, error) {
	query := s.db.Model(&Quotation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quotations: %w", err)
	}

	var quotes []Quotation
	if err := query.Preload("Customer").
		Order("quote_date DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&quotes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quotations: %w", err)
	}
	return quotes, total, nil
}

// UpdateStatus moves a quotation through draft/sent/accepted/rejected.
// Converted is reserved for ConvertToSale.
func (s *Service) UpdateStatus(id uint, status Status) (*Quotation, error) {
	if status == StatusConverted {
		return nil, ErrInvalidStatus
	}
	quote, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if quote.Status == StatusConverted {
		return nil, ErrAlreadyConverted
	}

	if err := s.db.Model(&Quotation{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update quotation status: %w", err)
	}
	quote.Status = status
	return quote, nil
}

// ConvertToSale turns an accepted quotation into a pending sale. The sale
// and the quotation update commit together.
func (s *Service) ConvertToSale(id uint) (*Quotation, *sales.Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var quote Quotation
	if err := tx.Preload("Details").First(&quote, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrQuotationNotFound
		}
		return nil, nil, fmt.Errorf("failed to load quotation: %w", err)
	}
	if quote.Status == StatusConverted {
		tx.Rollback()
		return nil, nil, ErrAlreadyConverted
	}
	if quote.Status != StatusAccepted {
		tx.Rollback()
		return nil, nil, ErrInvalidStatus
	}

	saleReq := sales.CreateSaleRequest{
		CustomerID: quote.CustomerID,
		Notes:      fmt.Sprintf("Converted from quotation %s", quote.QuoteNumber),
	}
	for _, d := range quote.Details {
		saleReq.Lines = append(saleReq.Lines, sales.CreateSaleLine{
			ItemID:    d.ItemID,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
		})
	}

	sale, err := sales.CreateInTx(tx, s.clock.Now(), &saleReq)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Model(&Quotation{}).Where("id = ?", quote.ID).
		Updates(map[string]interface{}{
			"status":  StatusConverted,
			"sale_id": sale.ID,
		}).Error; err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to mark quotation converted: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, fmt.Errorf("failed to commit conversion: %w", err)
	}

	loaded, err := s.GetByID(quote.ID)
	if err != nil {
		return nil, nil, err
	}
	return loaded, sale, nil
}

// nextQuoteNumber generates the next QT-<year>-NNNN number through the
// open transaction
func nextQuoteNumber(tx *gorm.DB, year int) (string, error) {
	pattern := fmt.Sprintf("QT-%d-%%", year)

	var numbers []string
	if err := tx.Model(&Quotation{}).
		Where("quote_number LIKE ?", pattern).
		Pluck("quote_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to scan quotation numbers: %w", err)
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
	return fmt.Sprintf("QT-%d-%04d", year, maxSeq+1), nil
}
