// Package handlers exposes the services over HTTP.
package handlers

import (
	"net/http"

	"aigyoo-backend/internal/app"
	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/middleware"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	app *app.Context
}

func New(a *app.Context) *Handler {
	return &Handler{app: a}
}

// currentSession returns the session set by the auth middleware. Routes
// without it answer 401.
func currentSession(c *gin.Context) (*session.Session, bool) {
	sess, found := middleware.CurrentSession(c)
	if !found {
		utils.APIResponse(c, http.StatusUnauthorized, false, "Unauthorized", nil)
	}
	return sess, found
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid input", err.Error())
		return false
	}
	return true
}

// fail answers with the taxonomy status and logs backend failures.
func fail(c *gin.Context, err error) {
	if svcErr.Is(err, svcErr.KindBackend) {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	utils.APIResponse(c, svcErr.HTTPStatus(err), false, svcErr.Message(err), nil)
}

func ok(c *gin.Context, message string, data interface{}) {
	utils.APIResponse(c, http.StatusOK, true, message, data)
}

func created(c *gin.Context, message string, data interface{}) {
	utils.APIResponse(c, http.StatusCreated, true, message, data)
}

// Ping is the liveness probe.
func (h *Handler) Ping(c *gin.Context) {
	ok(c, "Server OK!", nil)
}
