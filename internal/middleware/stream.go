package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// StreamContext ends the request context of long-lived streams when done is
// cancelled, so server shutdown does not wait for clients to disconnect.
func StreamContext(done context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()
		stop := context.AfterFunc(done, cancel)
		defer stop()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
