// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type AdminHandler struct {
	statsService *services.StatsService
}

func NewAdminHandler(statsService *services.StatsService) *AdminHandler {
	return &AdminHandler{
		statsService: statsService,
	}
}

// GET /admin/dashboard
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.statsService.Dashboard(c.Request.Context())
	if err != nil {
		handleServiceError(c, "AdminHandler.GetDashboard", err)
		return
	}

	utils.SuccessResponse(c, dashboard)
}
