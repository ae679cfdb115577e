package handlers

import (
	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetConversation(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	msgs, err := h.app.Messages.Conversation(c.Request.Context(), sess, c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.SendMessageInput
	if !bindJSON(c, &input) {
		return
	}

	msg, err := h.app.Messages.Send(c.Request.Context(), sess, c.Param("userId"), input.Content)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Message sent", msg)
}

func (h *Handler) MarkMessagesRead(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	n, err := h.app.Messages.MarkRead(c.Request.Context(), sess, c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", gin.H{"updated": n})
}

// StreamConversation sends the conversation snapshot and then each new
// message as "message" events.
func (h *Handler) StreamConversation(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	ctx := c.Request.Context()
	other := c.Param("userId")

	// Resolve the partner before committing to a stream so a bad id is a 404
	if _, err := h.app.Profiles.Get(ctx, other); err != nil {
		fail(c, err)
		return
	}

	sseHeaders(c)
	err := h.app.Messages.Stream(ctx, sess, other, func(m models.Message) error {
		return sendEvent(c, "message", m)
	})
	if err != nil && ctx.Err() == nil {
		_ = sendEvent(c, "error", gin.H{"message": svcErr.Message(err)})
	}
}
