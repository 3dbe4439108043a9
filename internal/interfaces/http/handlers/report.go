// internal/interfaces/http/handlers/report.go
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/report"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles spreadsheet export endpoints
type ReportHandler struct {
	reportService *report.Service
	config        *config.Config
}

// NewReportHandler creates a new report handler
func NewReportHandler(db *gorm.DB, cfg *config.Config) *ReportHandler {
	return &ReportHandler{
		reportService: report.NewService(db, cfg),
		config:        cfg,
	}
}

// ExportInventory handles GET /reports/inventory
func (h *ReportHandler) ExportInventory(c *gin.Context) {
	h.export(c, "inventory", h.reportService.WriteInventoryReport)
}

// ExportWorkOrders handles GET /reports/work-orders
func (h *ReportHandler) ExportWorkOrders(c *gin.Context) {
	h.export(c, "work-orders", h.reportService.WriteWorkOrderReport)
}

// ExportPurchasing handles GET /reports/purchasing
func (h *ReportHandler) ExportPurchasing(c *gin.Context) {
	h.export(c, "purchasing", h.reportService.WritePurchasingReport)
}

func (h *ReportHandler) export(c *gin.Context, name string, write func(w io.Writer) error) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("2006-01-02"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to generate %s report", name),
		})
		return
	}
	c.Status(http.StatusOK)
}
