package event

import (
	"time"

	"moonchat/domain/chat"
)

type DomainEvent interface {
	RoomID() chat.RoomID
}

// MessageStored is emitted once a message has been appended to the
// canonical log. Only stored messages are fanned out; drafts and
// rejected attempts never become events.
type MessageStored struct {
	Message chat.Message
	At      time.Time
}

func (m MessageStored) RoomID() chat.RoomID {
	return m.Message.Room
}
