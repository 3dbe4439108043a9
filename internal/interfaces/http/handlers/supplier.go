// internal/interfaces/http/handlers/supplier.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/supplier"
	"gorm.io/gorm"
)

// SupplierHandler handles supplier endpoints
type SupplierHandler struct {
	supplierService *supplier.Service
	config          *config.Config
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(db *gorm.DB, cfg *config.Config) *SupplierHandler {
	return &SupplierHandler{
		supplierService: supplier.NewService(db, cfg),
		config:          cfg,
	}
}

// CreateSupplier handles POST /suppliers
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req supplier.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.supplierService.Create(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create supplier",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Supplier created successfully",
		"data":    created,
	})
}

// GetSuppliers handles GET /suppliers
func (h *SupplierHandler) GetSuppliers(c *gin.Context) {
	search := c.Query("search")
	limit, offset := paginationParams(c)

	suppliers, total, err := h.supplierService.List(search, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve suppliers",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Suppliers retrieved successfully",
		"data": gin.H{
			"suppliers": suppliers,
			"total":     total,
		},
	})
}

// GetSupplier handles GET /suppliers/:id
func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid supplier ID",
		})
		return
	}

	found, err := h.supplierService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Supplier retrieved successfully",
		"data":    found,
	})
}

// UpdateSupplier handles PUT /suppliers/:id
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid supplier ID",
		})
		return
	}

	var req supplier.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.supplierService.Update(id, &req)
	if err != nil {
		if errors.Is(err, supplier.ErrSupplierNotFound) {
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
		"message": "Supplier updated successfully",
		"data":    updated,
	})
}

// DeleteSupplier handles DELETE /suppliers/:id
func (h *SupplierHandler) DeleteSupplier(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid supplier ID",
		})
		return
	}

	if err := h.supplierService.Delete(id); err != nil {
		if errors.Is(err, supplier.ErrSupplierNotFound) {
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
		"message": "Supplier deactivated successfully",
	})
}
