// internal/interfaces/http/handlers/dashboard.go
package handlers

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/dashboard"
	"github.com/your-org/erp-backend/internal/infrastructure/database/redis"
	"gorm.io/gorm"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *dashboard.Service
	config           *config.Config
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboard.NewService(db, redisClient, cfg, clock.New()),
		config:           cfg,
	}
}

// GetSummary handles GET /dashboard/summary
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboardService.GetSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to compute dashboard summary",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard summary retrieved successfully",
		"data":    summary,
	})
}
