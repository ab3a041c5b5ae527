package runtime

import (
	"sync"

	"moonchat/contract"
	"moonchat/domain/chat"
)

type Set map[string]struct{}

// Registry tracks which participant sinks are live in which room.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // map participant -> Sink
	roomMembers map[chat.RoomID]Set           // map room to users
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[chat.RoomID]Set),
	}
}

// GetSinksForRoom retrieves all active communication channels for a specific room.
// It performs a two-step lookup:
// 1. Identifies participant IDs associated with the room via roomMembers.
// 2. Resolves those IDs into actual EventSinks using the sessions map.
//
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) GetSinksForRoom(roomID chat.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for participantID := range members {
		if sink, exists := r.sessions[participantID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a participant's active connection and assigns them to a specific room.
// If the room does not yet exist in the registry, it is initialized on the fly.
// Returns true when the participant was already registered, meaning this
// call replaced a previous sink (a resubscribe after a dropped connection).
func (r *Registry) Subscribe(participantID string, roomID chat.RoomID, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, resubscribed := r.sessions[participantID]
	r.sessions[participantID] = sink

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][participantID] = struct{}{}

	return resubscribed
}

// Unsubscribe removes a participant from the registry and their current room.
// It cleans up the session and ensures no empty sets are left in the room map
// to prevent memory leaks over time.
//
// Removal happens only if sink is still the participant's registered sink.
// A half-open connection can keep a stale session alive for minutes after the
// client has already reconnected; when that stale session finally tears down,
// it must not evict the replacement sink installed by the resubscribe.
func (r *Registry) Unsubscribe(participantID string, roomID chat.RoomID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[participantID]; !ok || current != sink {
		return
	}
	delete(r.sessions, participantID)

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, participantID)

		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}
