package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"moonchat/domain/chat"
	"moonchat/domain/event"
)

type Sink struct {
	name string
}

func (s Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_One_Room_One_Participant(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	roomID := chat.RoomID(1)
	sink := Sink{name: "a"}

	// Given no user is connected
	// And no room exists
	req.Empty(registry.GetSinksForRoom(roomID))

	// When a participant subscribes a room
	registry.Subscribe(participantID, roomID, sink)

	// Then
	req.Len(registry.GetSinksForRoom(roomID), 1)
	req.Contains(registry.GetSinksForRoom(roomID), sink)
}

func TestRegistry_Subscribe_One_Room_Multiple_Participants(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID1 := uuid.NewString()
	participantID2 := uuid.NewString()
	roomID := chat.RoomID(1)
	sink1 := Sink{name: "a"}
	sink2 := Sink{name: "b"}

	// When participants subscribe a room
	registry.Subscribe(participantID1, roomID, sink1)
	registry.Subscribe(participantID2, roomID, sink2)

	// Then
	sinks := registry.GetSinksForRoom(roomID)
	req.Len(sinks, 2)
	req.Contains(sinks, sink1)
	req.Contains(sinks, sink2)
}

func TestRegistry_Subscribe_Resubscribe_Replaces_Sink(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	roomID := chat.RoomID(1)

	// Given a participant connected with a first sink
	req.False(registry.Subscribe(participantID, roomID, Sink{name: "old"}))

	// When the same participant reconnects with a new sink
	req.True(registry.Subscribe(participantID, roomID, Sink{name: "new"}))

	// Then only the latest sink receives events
	sinks := registry.GetSinksForRoom(roomID)
	req.Len(sinks, 1)
	req.Contains(sinks, Sink{name: "new"})
}

func TestRegistry_Unsubscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID1 := uuid.NewString()
	participantID2 := uuid.NewString()
	roomID := chat.RoomID(1)

	registry.Subscribe(participantID1, roomID, Sink{name: "a"})
	registry.Subscribe(participantID2, roomID, Sink{name: "b"})

	// When one participant leaves
	registry.Unsubscribe(participantID1, roomID, Sink{name: "a"})

	// Then the other still receives events
	sinks := registry.GetSinksForRoom(roomID)
	req.Len(sinks, 1)
	req.Contains(sinks, Sink{name: "b"})

	// And removing the last member drops the room entirely
	registry.Unsubscribe(participantID2, roomID, Sink{name: "b"})
	req.Empty(registry.GetSinksForRoom(roomID))
}

// A half-open connection can keep a stale session alive long after the
// client reconnected. Its late teardown must not evict the new sink.
func TestRegistry_StaleUnsubscribe_Keeps_Resubscribed_Sink(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	roomID := chat.RoomID(1)
	stale := Sink{name: "stale"}
	live := Sink{name: "live"}

	// Given a participant whose first connection went dark
	registry.Subscribe(participantID, roomID, stale)
	// And the client reconnected before the server noticed
	req.True(registry.Subscribe(participantID, roomID, live))

	// When the stale session finally tears down
	registry.Unsubscribe(participantID, roomID, stale)

	// Then the live connection keeps receiving events
	sinks := registry.GetSinksForRoom(roomID)
	req.Len(sinks, 1)
	req.Contains(sinks, live)

	// And the live session's own teardown still works
	registry.Unsubscribe(participantID, roomID, live)
	req.Empty(registry.GetSinksForRoom(roomID))
}

func TestRegistry_GetSinksForRoom_Unknown_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.Nil(registry.GetSinksForRoom(chat.RoomID(42)))
}
