package handlers

import (
	"aigyoo-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetProfile(c *gin.Context) {
	view, err := h.app.Profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", view)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.UpdateProfileInput
	if !bindJSON(c, &input) {
		return
	}

	view, err := h.app.Profiles.Update(c.Request.Context(), sess, input)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Profile updated", view)
}

func (h *Handler) Suggestions(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	people, err := h.app.Profiles.Suggestions(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", people)
}

func (h *Handler) SearchUsers(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	people, err := h.app.Profiles.Search(c.Request.Context(), sess, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", people)
}

// Specializations lists the values accepted for a doctor's specialization.
func (h *Handler) Specializations(c *gin.Context) {
	ok(c, "OK", models.Specializations)
}
