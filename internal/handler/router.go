package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/middleware"
	"github.com/xxxsen/mailwing/internal/pkg/response"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Emails        *EmailHandler
	Scheduler     *SchedulerHandler
	Dashboard     *DashboardHandler
	System        *SystemHandler
	PasswordReset *PasswordResetHandler
	Files         *FileHandler

	AccessSecret    []byte
	LoginRateWindow time.Duration
	LoginRateMax    int
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", healthCheck)

	api.POST("/register", deps.Auth.Register)
	api.POST("/login", middleware.LoginRateLimit(deps.LoginRateWindow, deps.LoginRateMax), deps.Auth.Login)
	api.POST("/refresh", deps.Auth.Refresh)
	api.POST("/logout", deps.Auth.Logout)

	api.POST("/password-reset/request", deps.PasswordReset.Request)
	api.GET("/password-reset/validate/:token", deps.PasswordReset.Validate)
	api.POST("/password-reset/reset", deps.PasswordReset.Reset)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.AccessSecret))
	authGroup.GET("/profile", deps.Auth.Profile)

	authGroup.GET("/emails", deps.Emails.List)
	authGroup.POST("/emails", deps.Emails.Send)

	authGroup.GET("/scheduler/stats", deps.Scheduler.Stats)
	authGroup.DELETE("/scheduler/cancel/:id", deps.Scheduler.Cancel)

	authGroup.GET("/dashboard/stats", deps.Dashboard.Stats)
	authGroup.GET("/system/status", deps.System.Status)
	authGroup.GET("/system/user-stats", deps.System.UserStats)

	authGroup.POST("/files/upload", deps.Files.Upload)
}

func healthCheck(c *gin.Context) {
	response.Success(c, gin.H{"status": "OK", "timestamp": time.Now().UTC()})
}
