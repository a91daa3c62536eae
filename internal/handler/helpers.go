package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mailwing/internal/middleware"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/pkg/response"
)

func getUserID(c *gin.Context) int64 {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(int64)
	return userID
}

func getUserEmail(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserEmailKey)
	email, _ := value.(string)
	return email
}

func getUserName(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserNameKey)
	name, _ := value.(string)
	return name
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int64("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, "invalid request")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not found")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, "already exists")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, "too many requests")
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
