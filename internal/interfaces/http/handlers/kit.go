// internal/interfaces/http/handlers/kit.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/kit"
	"gorm.io/gorm"
)

// KitHandler handles kit build endpoints
type KitHandler struct {
	kitService *kit.Service
	config     *config.Config
}

// NewKitHandler creates a new kit handler
func NewKitHandler(db *gorm.DB, cfg *config.Config) *KitHandler {
	return &KitHandler{
		kitService: kit.NewService(db, cfg, clock.New(), logrus.StandardLogger()),
		config:     cfg,
	}
}

// CreateKit handles POST /kits
func (h *KitHandler) CreateKit(c *gin.Context) {
	var req kit.CreateKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.kitService.Create(&req)
	if err != nil {
		switch {
		case errors.Is(err, kit.ErrKitNumberExists):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, kit.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create kit",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Kit created successfully",
		"data":    created,
	})
}

// GetKits handles GET /kits
func (h *KitHandler) GetKits(c *gin.Context) {
	status := kit.Status(c.Query("status"))
	limit, offset := paginationParams(c)

	kits, total, err := h.kitService.List(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve kits",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Kits retrieved successfully",
		"data": gin.H{
			"kits":  kits,
			"total": total,
		},
	})
}

// GetKit handles GET /kits/:id
func (h *KitHandler) GetKit(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid kit ID",
		})
		return
	}

	found, err := h.kitService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Kit retrieved successfully",
		"data":    found,
	})
}

// ReserveKit handles POST /kits/:id/reserve
func (h *KitHandler) ReserveKit(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid kit ID",
		})
		return
	}

	result, err := h.kitService.Reserve(id)
	if err != nil {
		switch {
		case errors.Is(err, kit.ErrKitNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, kit.ErrInvalidStatus):
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
		"message": "Kit components reserved successfully",
		"data":    result,
	})
}

// CompleteKitBuild handles POST /kits/:id/complete
func (h *KitHandler) CompleteKitBuild(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid kit ID",
		})
		return
	}

	var req kit.CompleteBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	built, err := h.kitService.CompleteBuild(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, kit.ErrKitNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, kit.ErrInvalidStatus):
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
		"message": "Kit build recorded successfully",
		"data":    built,
	})
}

// CancelKit handles POST /kits/:id/cancel
func (h *KitHandler) CancelKit(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid kit ID",
		})
		return
	}

	cancelled, err := h.kitService.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, kit.ErrKitNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, kit.ErrInvalidStatus):
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
		"message": "Kit cancelled successfully",
		"data":    cancelled,
	})
}
