// internal/interfaces/http/handlers/sales.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/sales"
	"gorm.io/gorm"
)

// SalesHandler handles sale endpoints
type SalesHandler struct {
	salesService *sales.Service
	config       *config.Config
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(db *gorm.DB, cfg *config.Config) *SalesHandler {
	return &SalesHandler{
		salesService: sales.NewService(db, cfg, clock.New()),
		config:       cfg,
	}
}

// CreateSale handles POST /sales
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req sales.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.salesService.Create(&req)
	if err != nil {
		if errors.Is(err, sales.ErrInvalidQuantity) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create sale",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale created successfully",
		"data":    sale,
	})
}

// GetSales handles GET /sales
func (h *SalesHandler) GetSales(c *gin.Context) {
	status := sales.Status(c.Query("status"))
	limit, offset := paginationParams(c)

	list, total, err := h.salesService.List(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve sales",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales retrieved successfully",
		"data": gin.H{
			"sales": list,
			"total": total,
		},
	})
}

// GetSale handles GET /sales/:id
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sale ID",
		})
		return
	}

	sale, err := h.salesService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sale,
	})
}

// ConfirmSale handles POST /sales/:id/confirm
func (h *SalesHandler) ConfirmSale(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sale ID",
		})
		return
	}

	sale, err := h.salesService.Confirm(id)
	if err != nil {
		h.respondSaleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale confirmed successfully",
		"data":    sale,
	})
}

// ReserveSaleLot handles POST /sales/:id/reserve
func (h *SalesHandler) ReserveSaleLot(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sale ID",
		})
		return
	}

	var req sales.ReserveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.salesService.ReserveLot(id, &req)
	if err != nil {
		h.respondSaleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot reserved successfully",
		"data":    sale,
	})
}

// ReleaseSaleLot handles POST /sales/:id/release
func (h *SalesHandler) ReleaseSaleLot(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sale ID",
		})
		return
	}

	var req sales.ReleaseLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.salesService.ReleaseLot(id, &req)
	if err != nil {
		h.respondSaleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation released successfully",
		"data":    sale,
	})
}

// ShipSale handles POST /sales/:id/ship
func (h *SalesHandler) ShipSale(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sale ID",
		})
		return
	}

	sale, err := h.salesService.Ship(id)
	if err != nil {
		h.respondSaleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale shipped successfully",
		"data":    sale,
	})
}

// CancelSale handles POST /sales/:id/cancel
func (h *SalesHandler) CancelSale(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sale ID",
		})
		return
	}

	sale, err := h.salesService.Cancel(id)
	if err != nil {
		h.respondSaleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale cancelled successfully",
		"data":    sale,
	})
}

// respondSaleError maps sale service errors onto HTTP status codes.
func (h *SalesHandler) respondSaleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrSaleNotFound), errors.Is(err, sales.ErrSaleLineNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, sales.ErrInvalidStatus),
		errors.Is(err, sales.ErrNotFullyReserved),
		errors.Is(err, inventory.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	}
}
