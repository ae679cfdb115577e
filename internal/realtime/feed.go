// Package realtime carries change events keyed by table and filter. Delivery
// is at-least-once, so consumers deduplicate by Event.ID.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Tables that may be subscribed to.
const (
	TablePosts         = "posts"
	TableLikes         = "likes"
	TableComments      = "comments"
	TableMessages      = "messages"
	TableFriendships   = "friendships"
	TableProfiles      = "profiles"
	TableVerifications = "doctor_verifications"
)

// Topic scopes a subscription to one table and one filter value, e.g. the
// pair key of a conversation or a user id.
type Topic struct {
	Table  string
	Filter string
}

func (t Topic) Channel() string {
	return fmt.Sprintf("realtime:%s:%s", t.Table, t.Filter)
}

type Event struct {
	Type      EventType       `json:"type"`
	Table     string          `json:"table"`
	ID        string          `json:"id"`
	Record    json.RawMessage `json:"record,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an event carrying record as its JSON payload.
func NewEvent(typ EventType, table, id string, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s record: %w", table, err)
	}
	return Event{Type: typ, Table: table, ID: id, Record: raw, Timestamp: time.Now().UTC()}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Record, v)
}

// Feed is the subscribe/publish capability. A subscription lives until its
// context is done or Close is called, whichever comes first.
type Feed interface {
	Publish(ctx context.Context, topic Topic, ev Event) error
	Subscribe(ctx context.Context, topic Topic) (*Subscription, error)
}

// Subscription is a cancellable stream of events. C is closed once the
// subscription ends.
type Subscription struct {
	C <-chan Event

	once    sync.Once
	closeFn func()
}

func newSubscription(c <-chan Event, closeFn func()) *Subscription {
	return &Subscription{C: c, closeFn: closeFn}
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.closeFn)
}
