// internal/interfaces/http/handlers/item.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/item"
	"gorm.io/gorm"
)

// ItemHandler handles item catalog endpoints
type ItemHandler struct {
	itemService *item.Service
	config      *config.Config
}

// NewItemHandler creates a new item handler
func NewItemHandler(db *gorm.DB, cfg *config.Config) *ItemHandler {
	return &ItemHandler{
		itemService: item.NewService(db, cfg),
		config:      cfg,
	}
}

// CreateItem handles POST /items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req item.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.itemService.Create(&req)
	if err != nil {
		if errors.Is(err, item.ErrCodeExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create item",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item created successfully",
		"data":    created,
	})
}

// GetItems handles GET /items
func (h *ItemHandler) GetItems(c *gin.Context) {
	search := c.Query("search")
	category := c.Query("category")
	limit, offset := paginationParams(c)

	items, total, err := h.itemService.List(search, category, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Items retrieved successfully",
		"data": gin.H{
			"items": items,
			"total": total,
		},
	})
}

// GetItem handles GET /items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	found, err := h.itemService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item retrieved successfully",
		"data":    found,
	})
}

// GetItemByCode handles GET /items/code/:code
func (h *ItemHandler) GetItemByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Item code is required",
		})
		return
	}

	found, err := h.itemService.GetByCode(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item retrieved successfully",
		"data":    found,
	})
}

// UpdateItem handles PUT /items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	var req item.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.itemService.Update(id, &req)
	if err != nil {
		if errors.Is(err, item.ErrItemNotFound) {
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
		"message": "Item updated successfully",
		"data":    updated,
	})
}

// DeleteItem handles DELETE /items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	if err := h.itemService.Delete(id); err != nil {
		if errors.Is(err, item.ErrItemNotFound) {
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
		"message": "Item deactivated successfully",
	})
}

// parseIDParam parses the :id path parameter as an unsigned integer.
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// paginationParams reads limit/offset query parameters with sane defaults.
func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
