// internal/interfaces/http/handlers/quotation.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/quotation"
	"gorm.io/gorm"
)

// QuotationHandler handles quotation endpoints
type QuotationHandler struct {
	quotationService *quotation.Service
	config           *config.Config
}

// NewQuotationHandler creates a new quotation handler
func NewQuotationHandler(db *gorm.DB, cfg *config.Config) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotation.NewService(db, cfg, clock.New()),
		config:           cfg,
	}
}

// CreateQuotation handles POST /quotations
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req quotation.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	quote, err := h.quotationService.Create(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create quotation",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Quotation created successfully",
		"data":    quote,
	})
}

// GetQuotations handles GET /quotations
func (h *QuotationHandler) GetQuotations(c *gin.Context) {
	status := quotation.Status(c.Query("status"))
	limit, offset := paginationParams(c)

	quotes, total, err := h.quotationService.List(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve quotations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quotations retrieved successfully",
		"data": gin.H{
			"quotations": quotes,
			"total":      total,
		},
	})
}

// GetQuotation handles GET /quotations/:id
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid quotation ID",
		})
		return
	}

	quote, err := h.quotationService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quotation retrieved successfully",
		"data":    quote,
	})
}

// UpdateQuotationStatus handles PUT /quotations/:id/status
func (h *QuotationHandler) UpdateQuotationStatus(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid quotation ID",
		})
		return
	}

	var req quotation.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	quote, err := h.quotationService.UpdateStatus(id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, quotation.ErrQuotationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, quotation.ErrInvalidStatus),
			errors.Is(err, quotation.ErrAlreadyConverted):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quotation status updated successfully",
		"data":    quote,
	})
}

// ConvertQuotation handles POST /quotations/:id/convert
func (h *QuotationHandler) ConvertQuotation(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid quotation ID",
		})
		return
	}

	quote, sale, err := h.quotationService.ConvertToSale(id)
	if err != nil {
		switch {
		case errors.Is(err, quotation.ErrQuotationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, quotation.ErrInvalidStatus),
			errors.Is(err, quotation.ErrAlreadyConverted):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Quotation converted to sale successfully",
		"data": gin.H{
			"quotation": quote,
			"sale":      sale,
		},
	})
}
