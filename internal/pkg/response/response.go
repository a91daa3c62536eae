package response

import (
	"github.com/gin-gonic/gin"
)

// Success writes the payload as-is with a 200 status.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, data)
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
