package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/pkg/response"
	"github.com/xxxsen/mailwing/internal/service"
)

type DashboardHandler struct {
	stats *service.StatsService
}

func NewDashboardHandler(stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context(), getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
