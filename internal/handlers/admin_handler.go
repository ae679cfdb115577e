package handlers

import (
	"aigyoo-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ListPendingVerifications is the admin review queue.
func (h *Handler) ListPendingVerifications(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	rows, err := h.app.Verification.Pending(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", rows)
}

func (h *Handler) ReviewVerification(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.ReviewInput
	if !bindJSON(c, &input) {
		return
	}

	row, err := h.app.Verification.Review(c.Request.Context(), sess, c.Param("id"), input.Action == "approve")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Verification "+string(row.Status), row)
}

// ReconcileVerifications runs the profile flag repair on demand.
func (h *Handler) ReconcileVerifications(c *gin.Context) {
	n, err := h.app.Verification.ReconcileProfiles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Reconciled", gin.H{"repaired": n})
}
