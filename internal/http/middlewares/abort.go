package middlewares

import (
	"github.com/gin-gonic/gin"
)

// abortJSON stops the chain with the same error envelope the handlers use.
func abortJSON(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	}
	if id := c.GetString(CtxRequestID); id != "" {
		body["requestId"] = id
	}
	c.AbortWithStatusJSON(status, body)
}
