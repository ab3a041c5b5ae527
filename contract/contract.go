package contract

import (
	"context"
	"reflect"

	"moonchat/domain/chat"
	"moonchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	GetSinksForRoom(roomID chat.RoomID) []EventSink
	// Subscribe reports whether the participant was already registered,
	// i.e. this is a resubscribe replacing a previous sink.
	Subscribe(participantID string, roomID chat.RoomID, sink EventSink) bool
	// Unsubscribe only removes the participant if sink is still their
	// registered sink; a stale session tearing down after a resubscribe
	// must not evict the replacement connection.
	Unsubscribe(participantID string, roomID chat.RoomID, sink EventSink)
}
