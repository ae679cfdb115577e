package realtime

import (
	"context"
	"sync"

	"aigyoo-backend/internal/logger"
)

const subscriberBuffer = 64

// Memory is an in-process Feed, used in tests and single instance setups.
type Memory struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySub]struct{}
}

type memorySub struct {
	ch   chan Event
	done chan struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[*memorySub]struct{})}
}

func (m *Memory) Publish(ctx context.Context, topic Topic, ev Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for s := range m.subs[topic.Channel()] {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		default:
			logger.Warn("realtime subscriber buffer full, event dropped", "channel", topic.Channel(), "id", ev.ID)
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	s := &memorySub{ch: make(chan Event, subscriberBuffer), done: make(chan struct{})}
	key := topic.Channel()

	m.mu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[*memorySub]struct{})
	}
	m.subs[key][s] = struct{}{}
	m.mu.Unlock()

	sub := newSubscription(s.ch, func() {
		close(s.done)
		m.mu.Lock()
		delete(m.subs[key], s)
		if len(m.subs[key]) == 0 {
			delete(m.subs, key)
		}
		m.mu.Unlock()
		close(s.ch)
	})

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-s.done:
		}
	}()
	return sub, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (m *Memory) Subscribers(topic Topic) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[topic.Channel()])
}
