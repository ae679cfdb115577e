package handlers

import (
	"strconv"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/services/feed"

	"github.com/gin-gonic/gin"
)

// ListPosts takes optional limit, before (RFC 3339), before_id and user_id
// queries. before and before_id come from the last post of the previous page.
func (h *Handler) ListPosts(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}

	f := feed.ListFilter{UserID: c.Query("user_id")}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(c, svcErr.Validation("limit must be a number"))
			return
		}
		f.Limit = n
	}
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fail(c, svcErr.Validation("before must be an RFC 3339 timestamp"))
			return
		}
		t = t.UTC()
		f.Before = &t
		f.BeforeID = c.Query("before_id")
	}

	posts, err := h.app.Posts.ListPosts(c.Request.Context(), sess, f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", posts)
}

func (h *Handler) CreatePost(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.CreatePostInput
	if !bindJSON(c, &input) {
		return
	}

	post, err := h.app.Posts.CreatePost(c.Request.Context(), sess, input.Content)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Post created", post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	if err := h.app.Posts.DeletePost(c.Request.Context(), sess, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Post deleted", nil)
}

func (h *Handler) ToggleLike(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	res, err := h.app.Posts.ToggleLike(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", res)
}

func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.app.Posts.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", comments)
}

func (h *Handler) AddComment(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	var input models.CreateCommentInput
	if !bindJSON(c, &input) {
		return
	}

	comment, err := h.app.Posts.AddComment(c.Request.Context(), sess, c.Param("id"), input.Content)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Comment added", comment)
}
