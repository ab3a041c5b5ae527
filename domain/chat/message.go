// Package chat contains core concepts of the chat system.
// Messages are immutable and created only by the message store,
// which assigns their identifier and timestamp server-side.
package chat

import (
	"time"

	"github.com/google/uuid"
)

type RoomID int

// DefaultRoom is the single implicit room every session joins.
const DefaultRoom RoomID = 1

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID
	AuthorID  string
	Body      string
	CreatedAt time.Time
	Room      RoomID
}

// Before reports whether m sorts strictly before other.
// Ordering is by CreatedAt, ties broken by ID so that every
// viewer observes the same total order.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID.String() < other.ID.String()
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
