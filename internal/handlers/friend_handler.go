package handlers

import (
	"aigyoo-backend/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func (h *Handler) SendFriendRequest(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.FriendRequestInput
	if !bindJSON(c, &input) {
		return
	}

	edge, err := h.app.Social.SendRequest(c.Request.Context(), sess, input.ReceiverID)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Friend request sent", edge)
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	edge, err := h.app.Social.AcceptRequest(c.Request.Context(), sess, c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Friend request accepted", edge)
}

func (h *Handler) CancelFriendRequest(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	if err := h.app.Social.CancelRequest(c.Request.Context(), sess, c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Friend request canceled", nil)
}

func (h *Handler) ListFriends(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	friends, err := h.app.Social.Friends(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", friends)
}

// ListFriendRequests returns incoming and sent pending requests.
func (h *Handler) ListFriendRequests(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}

	var incoming, sent interface{}
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		rows, err := h.app.Social.IncomingRequests(ctx, sess)
		incoming = rows
		return err
	})
	g.Go(func() error {
		rows, err := h.app.Social.SentRequests(ctx, sess)
		sent = rows
		return err
	})
	if err := g.Wait(); err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", gin.H{"incoming": incoming, "sent": sent})
}

func (h *Handler) FriendStatus(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	rel, err := h.app.Social.RelationTo(c.Request.Context(), sess, c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", gin.H{"status": rel})
}
