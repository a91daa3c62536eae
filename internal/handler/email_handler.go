package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/pkg/response"
	"github.com/xxxsen/mailwing/internal/service"
)

type EmailHandler struct {
	emails *service.EmailService
}

func NewEmailHandler(emails *service.EmailService) *EmailHandler {
	return &EmailHandler{emails: emails}
}

type sendRequest struct {
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	Attachment   string `json:"attachment"`
	ScheduledFor string `json:"scheduled_for"`
}

func (h *EmailHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	req.Recipient = normalizeEmail(req.Recipient)
	if msg := validateEmail(req.Recipient); msg != "" {
		response.Error(c, http.StatusBadRequest, "recipient "+msg)
		return
	}
	if req.Subject == "" {
		response.Error(c, http.StatusBadRequest, "subject is required")
		return
	}
	if req.Message == "" {
		response.Error(c, http.StatusBadRequest, "message is required")
		return
	}
	input := service.SubmitInput{
		Recipient:  req.Recipient,
		Subject:    req.Subject,
		Message:    req.Message,
		Attachment: req.Attachment,
	}
	if req.ScheduledFor != "" {
		scheduledFor, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "scheduled_for must be an RFC3339 timestamp")
			return
		}
		input.ScheduledFor = &scheduledFor
	}
	emailID, err := h.emails.Submit(c.Request.Context(), getUserID(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"id": emailID})
}

func (h *EmailHandler) List(c *gin.Context) {
	emails, err := h.emails.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"emails": emails})
}
