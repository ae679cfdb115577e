package handlers

import (
	"errors"
	"net/http"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/services/assistant"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader lets a client supply its own provider key.
const APIKeyHeader = "X-AI-Key"

// AssistantChat streams the reply to the posted transcript as SSE: "delta"
// events while generating, then "done" with the final message, or "error"
// carrying the apology message when every model failed.
func (h *Handler) AssistantChat(c *gin.Context) {
	if _, authed := currentSession(c); !authed {
		return
	}
	var input models.AssistantChatInput
	if !bindJSON(c, &input) {
		return
	}
	if h.app.Assistant == nil {
		utils.APIResponse(c, http.StatusServiceUnavailable, false, "The assistant is not available", nil)
		return
	}

	sseHeaders(c)
	ctx := c.Request.Context()
	reply, err := h.app.Assistant.Stream(ctx, c.GetHeader(APIKeyHeader), input.Messages, func(d assistant.Delta) error {
		return sendEvent(c, "delta", d)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("assistant chat failed", "error", err)

		detail := svcErr.Message(err)
		var se *svcErr.Error
		if errors.As(err, &se) && se.Err != nil {
			detail = se.Err.Error()
		}
		_ = sendEvent(c, "error", models.ChatMessage{
			Role:    "assistant",
			Content: assistant.FailureReply(detail),
		})
		return
	}
	_ = sendEvent(c, "done", reply)
}

func (h *Handler) ListChatHistories(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	rows, err := h.app.Histories.List(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", rows)
}

func (h *Handler) SaveChatHistory(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.SaveChatHistoryInput
	if !bindJSON(c, &input) {
		return
	}

	rec, err := h.app.Histories.Save(c.Request.Context(), sess, input)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Chat history saved", rec)
}

func (h *Handler) DeleteChatHistory(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	if err := h.app.Histories.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Chat history deleted", nil)
}
