package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response holds the action-specific fields of a success payload.
type Response map[string]interface{}

// Success writes {"success": true, ...data}. The client re-renders from
// these payloads, so field names follow the original wire contract.
func Success(c *gin.Context, data Response) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error writes {"success": false, "message": msg}.
func Error(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, gin.H{
		"success": false,
		"message": msg,
	})
}
