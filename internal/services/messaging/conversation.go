package messaging

import (
	"sort"
	"sync"

	"aigyoo-backend/internal/models"
)

// Conversation is the ordered union of messages between two users. Append
// ignores ids it has already seen, so redelivered events show up once.
type Conversation struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	messages []models.Message
}

func NewConversation(initial []models.Message) *Conversation {
	c := &Conversation{seen: make(map[string]struct{}, len(initial))}
	c.Merge(initial)
	return c
}

// Append adds m unless its id was seen before. Reports whether it was added.
func (c *Conversation) Append(m models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[m.ID]; ok {
		return false
	}
	c.seen[m.ID] = struct{}{}
	c.messages = append(c.messages, m)

	// Events usually arrive in order; only sort when they did not
	if n := len(c.messages); n > 1 && less(c.messages[n-1], c.messages[n-2]) {
		sortMessages(c.messages)
	}
	return true
}

// Merge appends every unseen message and keeps created_at order.
func (c *Conversation) Merge(ms []models.Message) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, m := range ms {
		if _, ok := c.seen[m.ID]; ok {
			continue
		}
		c.seen[m.ID] = struct{}{}
		c.messages = append(c.messages, m)
		added++
	}
	sortMessages(c.messages)
	return added
}

// Messages returns a copy of the ordered messages.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.messages...)
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func sortMessages(ms []models.Message) {
	sort.SliceStable(ms, func(i, j int) bool { return less(ms[i], ms[j]) })
}

func less(a, b models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
