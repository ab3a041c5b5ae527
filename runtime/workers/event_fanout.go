package workers

import (
	"context"
	"log/slog"
	"time"

	"moonchat/contract"
	"moonchat/domain/event"
	"moonchat/observability"
)

// EventFanout broadcasts stored-message events to the room's live
// participant sinks plus the permanent sinks (search index, counters).
//
// Delivery is sequential per event so every subscriber observes
// insertion order; a per-sink timeout keeps one slow consumer from
// stalling the room forever. EventFanout is not a message broker: no
// durability, no retries.
type EventFanout struct {
	log            *slog.Logger
	permanentSinks []contract.EventSink
	registry       contract.IRegistry
	events         chan event.DomainEvent
	sinkTimeout    time.Duration
	stats          *observability.PipelineStats
}

func NewEventFanout(log *slog.Logger, permanentSinks []contract.EventSink,
	registry contract.IRegistry, events chan event.DomainEvent,
	sinkTimeout time.Duration, stats *observability.PipelineStats) *EventFanout {
	return &EventFanout{
		log:            log,
		permanentSinks: permanentSinks,
		registry:       registry,
		events:         events,
		sinkTimeout:    sinkTimeout,
		stats:          stats,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			w.Fanout(evt)
		}
	}
}

// Fanout delivers one event to every sink, permanent sinks first.
func (w *EventFanout) Fanout(evt event.DomainEvent) {
	sinks := append([]contract.EventSink(nil), w.permanentSinks...)
	sinks = append(sinks, w.registry.GetSinksForRoom(evt.RoomID())...)

	for _, sink := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), w.sinkTimeout)
		if err := sink.Consume(ctx, evt); err != nil {
			w.stats.IncrDropped()
			w.log.Warn("Sink consumption failed", "error", err)
		} else {
			w.stats.IncrDelivered()
		}
		cancel()
	}
}
