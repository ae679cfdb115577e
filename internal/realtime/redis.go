package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"aigyoo-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Redis fans events out through Redis pub/sub so every API instance sees
// them.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, topic Topic, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.client.Publish(ctx, topic.Channel(), payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	ps := r.client.Subscribe(ctx, topic.Channel())

	// Wait for the subscription to be confirmed so no publish is missed
	// between Subscribe returning and the first read.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic.Channel(), err)
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	sub := newSubscription(out, func() { close(done) })

	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Warn("realtime: malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	return sub, nil
}
