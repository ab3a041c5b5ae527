// Package projection builds local timelines from observed messages.
// Handles ordering and deduplication. Does not emit events or interact
// with transports directly.
package projection

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"moonchat/domain/chat"
)

// Timeline is an idempotent render model: inserting the same message id
// twice yields a single row, and rows are kept in non-decreasing
// CreatedAt order (ties by id) regardless of arrival order. History
// pages and fan-out deliveries can therefore be mixed freely.
type Timeline struct {
	mu       sync.Mutex
	seen     map[uuid.UUID]struct{}
	messages []chat.Message
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uuid.UUID]struct{})}
}

// Insert adds a message at its ordered position and reports whether it
// was new. Duplicates (optimistic echo, resubscribe overlap) are no-ops.
func (t *Timeline) Insert(message chat.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[message.ID]; ok {
		return false
	}
	t.seen[message.ID] = struct{}{}

	at := sort.Search(len(t.messages), func(i int) bool {
		return message.Before(t.messages[i])
	})
	t.messages = append(t.messages, chat.Message{})
	copy(t.messages[at+1:], t.messages[at:])
	t.messages[at] = message
	return true
}

// InsertAll bulk-inserts a history page.
func (t *Timeline) InsertAll(messages []chat.Message) {
	for _, message := range messages {
		t.Insert(message)
	}
}

// Snapshot returns the ordered messages.
func (t *Timeline) Snapshot() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]chat.Message(nil), t.messages...)
}

// Len returns the number of distinct messages.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
