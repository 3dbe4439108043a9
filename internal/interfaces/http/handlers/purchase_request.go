// internal/interfaces/http/handlers/purchase_request.go
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

// PurchaseRequestHandler handles purchase request endpoints
type PurchaseRequestHandler struct {
	requestService *purchasing.RequestService
	config         *config.Config
}

// NewPurchaseRequestHandler creates a new purchase request handler
func NewPurchaseRequestHandler(db *gorm.DB, cfg *config.Config) *PurchaseRequestHandler {
	return &PurchaseRequestHandler{
		requestService: purchasing.NewRequestService(db, cfg, clock.New()),
		config:         cfg,
	}
}

// CreateRequest handles POST /purchasing/requests
func (h *PurchaseRequestHandler) CreateRequest(c *gin.Context) {
	var req purchasing.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.requestService.Create(&req)
	if err != nil {
		if errors.Is(err, purchasing.ErrInvalidRequestData) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create purchase request",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase request created successfully",
		"data":    created,
	})
}

// GetRequests handles GET /purchasing/requests
func (h *PurchaseRequestHandler) GetRequests(c *gin.Context) {
	status := purchasing.RequestStatus(c.Query("status"))
	limit, offset := paginationParams(c)

	requests, total, err := h.requestService.List(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve purchase requests",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase requests retrieved successfully",
		"data": gin.H{
			"requests": requests,
			"total":    total,
		},
	})
}

// GetRequest handles GET /purchasing/requests/:id
func (h *PurchaseRequestHandler) GetRequest(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request ID",
		})
		return
	}

	found, err := h.requestService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase request retrieved successfully",
		"data":    found,
	})
}

// CancelRequest handles POST /purchasing/requests/:id/cancel
func (h *PurchaseRequestHandler) CancelRequest(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request ID",
		})
		return
	}

	cancelled, err := h.requestService.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, purchasing.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, purchasing.ErrRequestNotPending):
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
		"message": "Purchase request cancelled successfully",
		"data":    cancelled,
	})
}

// ConvertRequests handles POST /purchasing/requests/convert
func (h *PurchaseRequestHandler) ConvertRequests(c *gin.Context) {
	var req purchasing.ConvertRequestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.requestService.ConvertToPurchaseOrder(&req)
	if err != nil {
		if errors.Is(err, purchasing.ErrNoPendingRequests) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase order created from requests successfully",
		"data":    order,
	})
}
