package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Same value gin's SSEvent renderer writes, so the header never changes mid-stream.
const sseContentType = "text/event-stream;charset=utf-8"

func sseHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", sseContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

// sendEvent writes one event and flushes it. It fails once the client is
// gone so producers stop.
func sendEvent(c *gin.Context, name string, data interface{}) error {
	if err := c.Request.Context().Err(); err != nil {
		return err
	}
	c.SSEvent(name, data)
	c.Writer.Flush()
	return nil
}
