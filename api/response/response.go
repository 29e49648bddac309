package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes a 200 with the payload as-is.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Fail writes an error payload with a real HTTP status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
