package middleware

import (
	"net/http"
	"strings"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SessionKey is the gin context key holding the *session.Session.
const SessionKey = "session"

// AuthMiddleware resolves the bearer token into a session and answers with
// the standard envelope when it cannot.
func AuthMiddleware(p session.Provider) gin.HandlerFunc {
	return authenticate(p, func(c *gin.Context, err error) {
		utils.APIResponse(c, http.StatusUnauthorized, false, svcErr.Message(err), nil)
	})
}

// AuthErrorMiddleware is AuthMiddleware for the endpoints answering with a
// bare {"error": msg} body.
func AuthErrorMiddleware(p session.Provider) gin.HandlerFunc {
	return authenticate(p, func(c *gin.Context, err error) {
		utils.ErrorJSON(c, http.StatusUnauthorized, svcErr.Message(err))
	})
}

func authenticate(p session.Provider, fail func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}

		sess, err := p.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if !svcErr.Is(err, svcErr.KindAuthRequired) {
				err = svcErr.Wrap(svcErr.KindAuthRequired, "Unauthorized", err)
			}
			fail(c, err)
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		c.Next()
	}
}

// bearerToken reads "Authorization: Bearer <token>". EventSource clients
// cannot set headers, so the access_token query parameter is accepted too.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query("access_token"); q != "" {
			return q, nil
		}
		return "", svcErr.AuthRequired("Unauthorized")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", svcErr.AuthRequired("Malformed authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// CurrentSession returns the session set by AuthMiddleware.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok || !sess.IsAdmin() {
			utils.APIResponse(c, http.StatusForbidden, false, "Access denied: admins only", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
