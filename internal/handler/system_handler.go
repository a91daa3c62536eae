package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/pkg/response"
	"github.com/xxxsen/mailwing/internal/service"
)

type SystemHandler struct {
	stats *service.StatsService
}

func NewSystemHandler(stats *service.StatsService) *SystemHandler {
	return &SystemHandler{stats: stats}
}

func (h *SystemHandler) Status(c *gin.Context) {
	status, err := h.stats.SystemStatus(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *SystemHandler) UserStats(c *gin.Context) {
	stats, err := h.stats.UserStats(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
