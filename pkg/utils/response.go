package utils

import (
	"github.com/gin-gonic/gin"
)

// Response is the standard envelope returned by the v1 API.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func APIResponse(c *gin.Context, code int, success bool, message string, data interface{}) {
	c.JSON(code, Response{
		Success: success,
		Message: message,
		Data:    data,
	})
}

// ErrorJSON answers with the bare {"error": msg} shape used by the upload and
// account endpoints.
func ErrorJSON(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}
