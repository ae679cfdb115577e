package handlers

import (
	"net/http"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/middleware"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type deleteAccountInput struct {
	UserID string `json:"userId"`
}

// DeleteAccount answers {success: true} or {error}.
func (h *Handler) DeleteAccount(c *gin.Context) {
	sess, authed := middleware.CurrentSession(c)
	if !authed {
		utils.ErrorJSON(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input deleteAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.app.Accounts.Delete(c.Request.Context(), sess, input.UserID); err != nil {
		if svcErr.Is(err, svcErr.KindBackend) {
			logger.Error("account deletion failed", "user_id", input.UserID, "error", err)
		}
		utils.ErrorJSON(c, svcErr.HTTPStatus(err), svcErr.Message(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
