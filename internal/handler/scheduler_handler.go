package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/pkg/response"
	"github.com/xxxsen/mailwing/internal/service"
)

type SchedulerHandler struct {
	emails *service.EmailService
	stats  *service.StatsService
}

func NewSchedulerHandler(emails *service.EmailService, stats *service.StatsService) *SchedulerHandler {
	return &SchedulerHandler{emails: emails, stats: stats}
}

func (h *SchedulerHandler) Stats(c *gin.Context) {
	stats, err := h.stats.ScheduledStats(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *SchedulerHandler) Cancel(c *gin.Context) {
	emailID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid email id")
		return
	}
	if err := h.emails.Cancel(c.Request.Context(), getUserID(c), emailID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "scheduled email cancelled", "emailId": emailID})
}
