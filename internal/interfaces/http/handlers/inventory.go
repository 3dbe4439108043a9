// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// InventoryHandler handles inventory lot and ledger endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(db *gorm.DB, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventory.NewService(db, cfg, clock.New()),
		config:           cfg,
	}
}

// GetLots handles GET /inventory/lots
func (h *InventoryHandler) GetLots(c *gin.Context) {
	itemID := parseUintQuery(c, "item_id")
	limit, offset := paginationParams(c)

	lots, total, err := h.inventoryService.ListLots(itemID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve lots",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lots retrieved successfully",
		"data": gin.H{
			"lots":  lots,
			"total": total,
		},
	})
}

// GetLot handles GET /inventory/lots/:id
func (h *InventoryHandler) GetLot(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid lot ID",
		})
		return
	}

	lot, err := h.inventoryService.GetLot(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot retrieved successfully",
		"data":    lot,
	})
}

// GetTransactions handles GET /inventory/transactions
func (h *InventoryHandler) GetTransactions(c *gin.Context) {
	itemID := parseUintQuery(c, "item_id")
	lotID := parseUintQuery(c, "lot_id")
	limit, offset := paginationParams(c)

	transactions, total, err := h.inventoryService.ListTransactions(itemID, lotID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve transactions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data": gin.H{
			"transactions": transactions,
			"total":        total,
		},
	})
}

// GetAvailability handles GET /inventory/availability/:id
func (h *InventoryHandler) GetAvailability(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	available, err := h.inventoryService.AvailableByItem(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to compute availability",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Availability retrieved successfully",
		"data": gin.H{
			"item_id":   id,
			"available": available,
		},
	})
}

// AdjustLot handles POST /inventory/lots/:id/adjust
func (h *InventoryHandler) AdjustLot(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid lot ID",
		})
		return
	}

	var req inventory.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	lot, err := h.inventoryService.Adjust(id, &req)
	if err != nil {
		if errors.Is(err, inventory.ErrLotNotFound) {
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
		"message": "Lot adjusted successfully",
		"data":    lot,
	})
}

// parseUintQuery reads an optional numeric query parameter, zero when absent.
func parseUintQuery(c *gin.Context, name string) uint {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}
