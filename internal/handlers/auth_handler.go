package handlers

import (
	"aigyoo-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Register creates a user and its profile.
func (h *Handler) Register(c *gin.Context) {
	var input models.RegisterInput
	if !bindJSON(c, &input) {
		return
	}

	profile, err := h.app.Sessions.SignUp(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}

	created(c, "Registration successful, please log in.", gin.H{
		"profile":            profile,
		"email_redirect_url": h.app.Config.EmailRedirectURL,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input models.LoginInput
	if !bindJSON(c, &input) {
		return
	}

	token, sess, err := h.app.Sessions.SignIn(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, "Login successful", gin.H{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"user":       sess,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	if err := h.app.Sessions.SignOut(c.Request.Context(), sess); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Logged out", nil)
}

// Me returns the caller's session, profile and verification badge.
func (h *Handler) Me(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	ctx := c.Request.Context()

	profile, err := h.app.Profiles.Get(ctx, sess.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	status, err := h.app.Verification.Status(ctx, sess.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, "OK", gin.H{
		"user":         sess,
		"profile":      profile,
		"verification": status,
	})
}
