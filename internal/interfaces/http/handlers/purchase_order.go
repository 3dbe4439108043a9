// internal/interfaces/http/handlers/purchase_order.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
	"gorm.io/gorm"
)

// PurchaseOrderHandler handles purchase order endpoints
type PurchaseOrderHandler struct {
	orderService *purchasing.OrderService
	config       *config.Config
}

// NewPurchaseOrderHandler creates a new purchase order handler
func NewPurchaseOrderHandler(db *gorm.DB, cfg *config.Config) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orderService: purchasing.NewOrderService(db, cfg, clock.New()),
		config:       cfg,
	}
}

// CreateOrder handles POST /purchasing/orders
func (h *PurchaseOrderHandler) CreateOrder(c *gin.Context) {
	var req purchasing.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.Create(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase order created successfully",
		"data":    order,
	})
}

// GetOrders handles GET /purchasing/orders
func (h *PurchaseOrderHandler) GetOrders(c *gin.Context) {
	status := purchasing.OrderStatus(c.Query("status"))
	limit, offset := paginationParams(c)

	orders, total, err := h.orderService.List(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve purchase orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase orders retrieved successfully",
		"data": gin.H{
			"orders": orders,
			"total":  total,
		},
	})
}

// GetOrder handles GET /purchasing/orders/:id
func (h *PurchaseOrderHandler) GetOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	order, err := h.orderService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order retrieved successfully",
		"data":    order,
	})
}

// ReceiveItem handles POST /purchasing/orders/:id/receive
func (h *PurchaseOrderHandler) ReceiveItem(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	var req purchasing.ReceiveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.ReceiveItem(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, purchasing.ErrOrderNotFound), errors.Is(err, purchasing.ErrOrderLineNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, purchasing.ErrOrderClosed):
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
		"message": "Item received successfully",
		"data":    order,
	})
}

// CancelOrder handles POST /purchasing/orders/:id/cancel
func (h *PurchaseOrderHandler) CancelOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	order, err := h.orderService.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, purchasing.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, purchasing.ErrOrderClosed):
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
		"message": "Purchase order cancelled successfully",
		"data":    order,
	})
}
