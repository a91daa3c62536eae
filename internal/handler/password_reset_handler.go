package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/pkg/response"
	"github.com/xxxsen/mailwing/internal/service"
)

type PasswordResetHandler struct {
	resets *service.PasswordResetService
}

func NewPasswordResetHandler(resets *service.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets}
}

type resetRequestBody struct {
	Email string `json:"email"`
}

// Request always answers 200 so the endpoint cannot be used to probe which
// addresses exist.
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req resetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if msg := validateEmail(req.Email); msg != "" {
		response.Error(c, http.StatusBadRequest, msg)
		return
	}
	if err := h.resets.Request(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "if the email exists, a recovery link has been sent"})
}

func (h *PasswordResetHandler) Validate(c *gin.Context) {
	maskedEmail, err := h.resets.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, appErr.ErrInvalid) {
			response.Error(c, http.StatusBadRequest, "recovery token is invalid or expired")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"valid": true, "email": maskedEmail})
}

type resetBody struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *PasswordResetHandler) Reset(c *gin.Context) {
	var req resetBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Token == "" {
		response.Error(c, http.StatusBadRequest, "recovery token is required")
		return
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		response.Error(c, http.StatusBadRequest, msg)
		return
	}
	if req.ConfirmPassword != req.NewPassword {
		response.Error(c, http.StatusBadRequest, "passwords do not match")
		return
	}
	if err := h.resets.Reset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, appErr.ErrInvalid) {
			response.Error(c, http.StatusBadRequest, "recovery token is invalid or expired")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password updated"})
}
