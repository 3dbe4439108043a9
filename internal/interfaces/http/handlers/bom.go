// internal/interfaces/http/handlers/bom.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/bom"
	"gorm.io/gorm"
)

// BOMHandler handles bill of materials endpoints
type BOMHandler struct {
	bomService *bom.Service
	config     *config.Config
}

// NewBOMHandler creates a new BOM handler
func NewBOMHandler(db *gorm.DB, cfg *config.Config) *BOMHandler {
	return &BOMHandler{
		bomService: bom.NewService(db, cfg),
		config:     cfg,
	}
}

// CreateBOM handles POST /boms
func (h *BOMHandler) CreateBOM(c *gin.Context) {
	var req bom.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.bomService.Create(&req)
	if err != nil {
		switch {
		case errors.Is(err, bom.ErrDuplicateActive):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, bom.ErrSelfReference),
			errors.Is(err, bom.ErrCycleDetected),
			errors.Is(err, bom.ErrNoComponents):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create bill of materials",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bill of materials created successfully",
		"data":    created,
	})
}

// GetBOMs handles GET /boms
func (h *BOMHandler) GetBOMs(c *gin.Context) {
	finishedItemID := parseUintQuery(c, "finished_item_id")
	limit, offset := paginationParams(c)

	boms, total, err := h.bomService.List(finishedItemID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve bills of materials",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bills of materials retrieved successfully",
		"data": gin.H{
			"boms":  boms,
			"total": total,
		},
	})
}

// GetBOM handles GET /boms/:id
func (h *BOMHandler) GetBOM(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid BOM ID",
		})
		return
	}

	found, err := h.bomService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bill of materials retrieved successfully",
		"data":    found,
	})
}

// UpdateBOM handles PUT /boms/:id
func (h *BOMHandler) UpdateBOM(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid BOM ID",
		})
		return
	}

	var req bom.UpdateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.bomService.Update(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, bom.ErrBOMNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, bom.ErrSelfReference),
			errors.Is(err, bom.ErrCycleDetected),
			errors.Is(err, bom.ErrNoComponents):
			c.JSON(http.StatusBadRequest, gin.H{
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
		"message": "Bill of materials updated successfully",
		"data":    updated,
	})
}

// DeactivateBOM handles DELETE /boms/:id
func (h *BOMHandler) DeactivateBOM(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid BOM ID",
		})
		return
	}

	if err := h.bomService.Deactivate(id); err != nil {
		if errors.Is(err, bom.ErrBOMNotFound) {
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
		"message": "Bill of materials deactivated successfully",
	})
}
