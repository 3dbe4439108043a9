// internal/domain/report/service.go
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
	"github.com/your-org/erp-backend/internal/domain/workorder"
)

// Service renders operational data as Excel workbooks
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new report service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// WriteInventoryReport writes the current lot inventory and recent ledger
// to w as an Excel workbook
func (s *Service) WriteInventoryReport(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const lotSheet = "Lots"
	f.SetSheetName("Sheet1", lotSheet)

	headers := []string{"Lot ID", "Item ID", "Batch", "Location", "Quantity", "Reserved", "Available"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(lotSheet, cell, h)
	}

	var lots []inventory.Lot
	if err := s.db.Order("item_id ASC, created_at ASC").Find(&lots).Error; err != nil {
		return fmt.Errorf("failed to load lots: %w", err)
	}
	for row, lot := range lots {
		values := []interface{}{lot.ID, lot.ItemID, lot.BatchNumber, lot.Location, lot.Quantity, lot.ReservationQty, lot.Available()}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(lotSheet, cell, v)
		}
	}

	const ledgerSheet = "Ledger"
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return fmt.Errorf("failed to create ledger sheet: %w", err)
	}
	ledgerHeaders := []string{"Date", "Item ID", "Lot ID", "Type", "Quantity", "Notes"}
	for i, h := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(ledgerSheet, cell, h)
	}

	var entries []inventory.Transaction
	if err := s.db.Order("transaction_date DESC, id DESC").Limit(1000).Find(&entries).Error; err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	for row, entry := range entries {
		values := []interface{}{
			entry.TransactionDate.Format("2006-01-02 15:04:05"),
			entry.ItemID, entry.LotID, string(entry.Type), entry.Quantity, entry.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(ledgerSheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write inventory report: %w", err)
	}
	return nil
}

// WriteWorkOrderReport writes all work orders with their components to w
// as an Excel workbook
func (s *Service) WriteWorkOrderReport(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Work Orders"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"WO Number", "Item ID", "Status", "Ordered", "Completed", "Parent", "Due Date"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	var orders []workorder.WorkOrder
	if err := s.db.Order("created_at DESC").Find(&orders).Error; err != nil {
		return fmt.Errorf("failed to load work orders: %w", err)
	}
	for row, wo := range orders {
		parent := ""
		if wo.ParentID != nil {
			parent = fmt.Sprintf("%d", *wo.ParentID)
		}
		due := ""
		if wo.DueDate != nil {
			due = wo.DueDate.Format("2006-01-02")
		}
		values := []interface{}{wo.WONumber, wo.ItemID, string(wo.Status), wo.Quantity, wo.CompletedQuantity, parent, due}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write work order report: %w", err)
	}
	return nil
}

// WritePurchasingReport writes open purchase requests and orders to w as
// an Excel workbook
func (s *Service) WritePurchasingReport(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const requestSheet = "Requests"
	f.SetSheetName("Sheet1", requestSheet)

	requestHeaders := []string{"ID", "Item ID", "Quantity", "Priority", "Status", "Notes"}
	for i, h := range requestHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(requestSheet, cell, h)
	}

	var requests []purchasing.PurchaseRequest
	if err := s.db.Order("created_at DESC").Find(&requests).Error; err != nil {
		return fmt.Errorf("failed to load purchase requests: %w", err)
	}
	for row, r := range requests {
		values := []interface{}{r.ID, r.ItemID, r.Quantity, string(r.Priority), string(r.Status), r.Notes}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(requestSheet, cell, v)
		}
	}

	const orderSheet = "Orders"
	if _, err := f.NewSheet(orderSheet); err != nil {
		return fmt.Errorf("failed to create order sheet: %w", err)
	}
	orderHeaders := []string{"PO Number", "Supplier ID", "Status", "Order Date"}
	for i, h := range orderHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(orderSheet, cell, h)
	}

	var orders []purchasing.PurchaseOrder
	if err := s.db.Order("order_date DESC").Find(&orders).Error; err != nil {
		return fmt.Errorf("failed to load purchase orders: %w", err)
	}
	for row, o := range orders {
		values := []interface{}{o.PONumber, o.SupplierID, string(o.Status), o.OrderDate.Format("2006-01-02")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(orderSheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write purchasing report: %w", err)
	}
	return nil
}
