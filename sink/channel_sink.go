package sink

import (
	"context"

	"moonchat/domain/event"
)

// ChannelSink bridges the fanout worker and one connected session.
// The session's write pump owns the receiving side.
type ChannelSink struct {
	Events chan event.DomainEvent
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by fanout.
// Redirect the event through the concerned owner of the channel.
// A full buffer counts as a failed delivery: the consumer is expected
// to dedupe and backfill from history after it catches up.
func (s *ChannelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
