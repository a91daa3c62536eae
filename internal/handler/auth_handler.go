package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/middleware"
	"github.com/xxxsen/mailwing/internal/pkg/response"
	"github.com/xxxsen/mailwing/internal/service"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	auth         *service.AuthService
	refreshTTL   time.Duration
	cookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, refreshTTL: refreshTTL, cookieSecure: cookieSecure}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if msg := validateEmail(req.Email); msg != "" {
		response.Error(c, http.StatusBadRequest, msg)
		return
	}
	if msg := validatePassword(req.Password); msg != "" {
		response.Error(c, http.StatusBadRequest, msg)
		return
	}
	userID, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"userId": userID})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if msg := validateEmail(req.Email); msg != "" {
		response.Error(c, http.StatusBadRequest, msg)
		return
	}
	if req.Password == "" {
		response.Error(c, http.StatusBadRequest, "password is required")
		return
	}
	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	middleware.MarkLoginOK(c)
	h.setRefreshCookie(c, pair.RefreshToken)
	response.Success(c, gin.H{"accessToken": pair.AccessToken})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(refreshCookieName)
	if err != nil || token == "" {
		response.Error(c, http.StatusUnauthorized, "refresh token not found")
		return
	}
	accessToken, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"accessToken": accessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(refreshCookieName); err == nil && token != "" {
		h.auth.Logout(c.Request.Context(), token)
	}
	h.clearRefreshCookie(c)
	response.Success(c, gin.H{"message": "logged out"})
}

// Profile returns the verified access-token claims.
func (h *AuthHandler) Profile(c *gin.Context) {
	profile := gin.H{
		"id":    getUserID(c),
		"email": getUserEmail(c),
	}
	if name := getUserName(c); name != "" {
		profile["name"] = name
	}
	response.Success(c, profile)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(h.refreshTTL.Seconds()), "/api", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/api", "", h.cookieSecure, true)
}
