// internal/interfaces/http/handlers/company.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/company"
	"gorm.io/gorm"
)

// CompanyHandler handles company info endpoints
type CompanyHandler struct {
	companyService *company.Service
	config         *config.Config
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(db *gorm.DB, cfg *config.Config) *CompanyHandler {
	return &CompanyHandler{
		companyService: company.NewService(db, cfg),
		config:         cfg,
	}
}

// GetCompany handles GET /company
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	info, err := h.companyService.Get()
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve company info",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Company info retrieved successfully",
		"data":    info,
	})
}

// UpsertCompany handles PUT /company
func (h *CompanyHandler) UpsertCompany(c *gin.Context) {
	var req company.UpsertCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	info, err := h.companyService.Upsert(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save company info",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Company info saved successfully",
		"data":    info,
	})
}
