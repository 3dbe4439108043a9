// internal/interfaces/http/handlers/workorder.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/workorder"
	"gorm.io/gorm"
)

// WorkOrderHandler handles work order endpoints
type WorkOrderHandler struct {
	workOrderService *workorder.Service
	config           *config.Config
}

// NewWorkOrderHandler creates a new work order handler
func NewWorkOrderHandler(db *gorm.DB, cfg *config.Config) *WorkOrderHandler {
	return &WorkOrderHandler{
		workOrderService: workorder.NewService(db, cfg, clock.New(), logrus.StandardLogger()),
		config:           cfg,
	}
}

// CreateWorkOrder handles POST /work-orders
func (h *WorkOrderHandler) CreateWorkOrder(c *gin.Context) {
	var req workorder.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	wo, err := h.workOrderService.CreateFromBOM(&req)
	if err != nil {
		switch {
		case errors.Is(err, workorder.ErrNoBOM),
			errors.Is(err, workorder.ErrBOMCycle),
			errors.Is(err, workorder.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create work order",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Work order created successfully",
		"data":    wo,
	})
}

// CreateManualWorkOrder handles POST /work-orders/manual
func (h *WorkOrderHandler) CreateManualWorkOrder(c *gin.Context) {
	var req workorder.CreateManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	wo, err := h.workOrderService.Create(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Work order created successfully",
		"data":    wo,
	})
}

// GetWorkOrders handles GET /work-orders
func (h *WorkOrderHandler) GetWorkOrders(c *gin.Context) {
	status := workorder.Status(c.Query("status"))
	rootsOnly := c.Query("roots_only") == "true"
	limit, offset := paginationParams(c)

	orders, total, err := h.workOrderService.List(status, rootsOnly, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve work orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work orders retrieved successfully",
		"data": gin.H{
			"work_orders": orders,
			"total":       total,
		},
	})
}

// GetWorkOrder handles GET /work-orders/:id
func (h *WorkOrderHandler) GetWorkOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	wo, err := h.workOrderService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work order retrieved successfully",
		"data":    wo,
	})
}

// GetWorkOrderTree handles GET /work-orders/:id/tree
func (h *WorkOrderHandler) GetWorkOrderTree(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	tree, err := h.workOrderService.GetTree(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work order tree retrieved successfully",
		"data":    tree,
	})
}

// CheckWorkOrderReady handles POST /work-orders/:id/check-ready
func (h *WorkOrderHandler) CheckWorkOrderReady(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	result, err := h.workOrderService.CheckReady(id)
	if err != nil {
		if errors.Is(err, workorder.ErrWorkOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work order readiness evaluated successfully",
		"data":    result,
	})
}

// AllocateWorkOrder handles POST /work-orders/:id/allocate
func (h *WorkOrderHandler) AllocateWorkOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	wo, err := h.workOrderService.Allocate(id)
	if err != nil {
		switch {
		case errors.Is(err, workorder.ErrWorkOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, workorder.ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, inventory.ErrInsufficientStock):
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
		"message": "Work order allocation completed successfully",
		"data":    wo,
	})
}

// StartWorkOrder handles POST /work-orders/:id/start
func (h *WorkOrderHandler) StartWorkOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	result, err := h.workOrderService.Start(id)
	if err != nil {
		switch {
		case errors.Is(err, workorder.ErrWorkOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, workorder.ErrInvalidStatus):
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

	// A not-ready order is a normal outcome; the verdict rides in the body.
	if !result.Started {
		c.JSON(http.StatusOK, gin.H{
			"message": "Work order is not ready to start",
			"data":    result,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work order started successfully",
		"data":    result,
	})
}

// CompleteWorkOrder handles POST /work-orders/:id/complete
func (h *WorkOrderHandler) CompleteWorkOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	var req workorder.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	wo, err := h.workOrderService.Complete(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, workorder.ErrWorkOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, workorder.ErrInvalidStatus):
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
		"message": "Work order completion recorded successfully",
		"data":    wo,
	})
}

// CancelWorkOrder handles POST /work-orders/:id/cancel
func (h *WorkOrderHandler) CancelWorkOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid work order ID",
		})
		return
	}

	wo, err := h.workOrderService.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, workorder.ErrWorkOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, workorder.ErrInvalidStatus):
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
		"message": "Work order cancelled successfully",
		"data":    wo,
	})
}
