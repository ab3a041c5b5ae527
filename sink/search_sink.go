package sink

import (
	"context"
	"fmt"
	"log/slog"

	"moonchat/domain/event"
	"moonchat/search"
)

// SearchSink indexes every stored message. Registered as a permanent
// sink so indexing lags live delivery by at most one fanout pass.
type SearchSink struct {
	index *search.Index
	log   *slog.Logger
}

func NewSearchSink(index *search.Index, log *slog.Logger) *SearchSink {
	return &SearchSink{index: index, log: log}
}

func (s *SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageStored:
		return s.index.IndexMessage(evt.Message)
	default:
		s.log.Debug(fmt.Sprintf("Not indexed event : %v", evt))
		return nil
	}
}
