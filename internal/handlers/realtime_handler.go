package handlers

import (
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/services/feed"
	"aigyoo-backend/internal/services/messaging"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

var keepAliveInterval = 25 * time.Second

// Subscribe streams change events of one table as SSE until the client
// disconnects. The filter query narrows the topic:
//   - posts: ignored, every post
//   - likes, comments: a post id
//   - profiles: a user id
//   - messages: the other participant's id
//   - friendships, doctor_verifications: the caller's id (admins may pass any)
func (h *Handler) Subscribe(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	if h.app.Realtime == nil {
		fail(c, svcErr.Backend("realtime is not available", nil))
		return
	}

	topic, err := topicFor(sess, c.Param("table"), c.Query("filter"))
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	sub, err := h.app.Realtime.Subscribe(ctx, topic)
	if err != nil {
		fail(c, svcErr.Backend("failed to subscribe", err))
		return
	}
	defer sub.Close()

	sseHeaders(c)
	if sendEvent(c, "ready", gin.H{"table": topic.Table, "filter": topic.Filter}) != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			if sendEvent(c, string(ev.Type), ev) != nil {
				return
			}
		case <-ticker.C:
			if sendEvent(c, "ping", gin.H{"at": time.Now().UTC()}) != nil {
				return
			}
		}
	}
}

func topicFor(sess *session.Session, table, filter string) (realtime.Topic, error) {
	switch table {
	case realtime.TablePosts:
		return realtime.Topic{Table: table, Filter: feed.AllFilter}, nil
	case realtime.TableLikes, realtime.TableComments, realtime.TableProfiles:
		if !utils.IsUUID(filter) {
			return realtime.Topic{}, svcErr.Validation("filter must be a valid id")
		}
		return realtime.Topic{Table: table, Filter: filter}, nil
	case realtime.TableMessages:
		if !utils.IsUUID(filter) {
			return realtime.Topic{}, svcErr.Validation("filter must be a valid id")
		}
		return messaging.Topic(sess.UserID, filter), nil
	case realtime.TableFriendships, realtime.TableVerifications:
		if filter == "" {
			filter = sess.UserID
		}
		if filter != sess.UserID && !sess.IsAdmin() {
			return realtime.Topic{}, svcErr.Forbidden("You can only subscribe to your own changes")
		}
		return realtime.Topic{Table: table, Filter: filter}, nil
	default:
		return realtime.Topic{}, svcErr.NotFound("Unknown table")
	}
}
