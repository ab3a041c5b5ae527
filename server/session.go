package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"moonchat/composer"
	"moonchat/domain/chat"
	"moonchat/domain/event"
	apperrors "moonchat/errors"
	"moonchat/observability"
	"moonchat/profiles"
	"moonchat/services"
	"moonchat/sink"
)

// Session ties one WebSocket connection to its composer pipeline.
// A single write pump owns the connection's write side; the read loop,
// the draft validator callback, and the fanout sink all funnel their
// frames through the outbound channel.
type Session struct {
	user      chat.Profile
	conn      *websocket.Conn
	service   services.IChatService
	cache     *profiles.Cache
	validator *composer.DraftValidator
	gate      *composer.SendGate
	sink      *sink.ChannelSink
	outbound  chan any
	stats     *observability.PipelineStats
	log       *slog.Logger
}

func NewSession(user chat.Profile, conn *websocket.Conn,
	service services.IChatService, cache *profiles.Cache,
	validator *composer.DraftValidator, gate *composer.SendGate,
	channelSink *sink.ChannelSink, outbound chan any,
	stats *observability.PipelineStats, log *slog.Logger) *Session {
	return &Session{
		user:      user,
		conn:      conn,
		service:   service,
		cache:     cache,
		validator: validator,
		gate:      gate,
		sink:      channelSink,
		outbound:  outbound,
		stats:     stats,
		log:       log,
	}
}

// Run blocks until the client disconnects or the server shuts down.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.validator.Close()

	if err := s.service.EnsureProfile(s.user); err != nil {
		s.log.Warn("Profile mirror failed", "user_id", s.user.ID, "error", err)
	}

	s.service.JoinRoom(s.user.ID, s.sink)
	// Teardown passes the sink so a stale session that lingered on a
	// half-open connection cannot evict a resubscribed replacement.
	defer s.service.LeaveRoom(s.user.ID, s.sink)

	go s.writePump(ctx)
	go s.eventPump(ctx)

	s.readLoop(ctx, cancel)
}

// Enqueue pushes a frame towards the write pump without blocking the
// caller; advisory frames may be dropped under pressure.
func (s *Session) Enqueue(frame any) {
	select {
	case s.outbound <- frame:
	default:
		s.log.Debug("Outbound buffer full, dropping frame", "user_id", s.user.ID)
	}
}

func (s *Session) readLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	for {
		var frame InboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.log.Debug("Client disconnected", "user_id", s.user.ID, "error", err)
			return
		}
		if err := validate.Struct(frame); err != nil {
			s.log.Debug("Dropping invalid frame", "user_id", s.user.ID, "error", err)
			continue
		}

		switch frame.Type {
		case "draft":
			s.validator.OnInput(frame.Text)
		case "send":
			// Submit blocks up to the send budget; the read loop must
			// stay responsive so newer drafts keep flowing. The gate's
			// re-entrancy guard turns concurrent submits into no-ops.
			go s.handleSend(ctx, frame.Text)
		}
	}
}

func (s *Session) handleSend(ctx context.Context, text string) {
	result, err := s.gate.Submit(ctx, s.user.ID, text)
	switch {
	case errors.Is(err, apperrors.ErrSubmitInFlight):
		return
	case errors.Is(err, apperrors.ErrEmptyMessage):
		return
	}

	switch result.Outcome {
	case composer.OutcomeUnavailable:
		s.stats.IncrUnavailable()
		s.Enqueue(newModerationRoadblock())
	case composer.OutcomeRejected:
		s.stats.IncrRejected()
		s.Enqueue(SendResultFrame{Type: frameSendResult, Outcome: string(result.Outcome), Reason: result.Reason})
	case composer.OutcomeStoreError:
		s.Enqueue(SendResultFrame{Type: frameSendResult, Outcome: string(result.Outcome), Reason: result.Reason})
	case composer.OutcomeAccepted:
		// The stored row arrives through fanout like everyone else's;
		// the ack only clears the composer.
		s.Enqueue(SendResultFrame{
			Type:      frameSendResult,
			Outcome:   string(result.Outcome),
			MessageID: result.Message.ID.String(),
		})
	}
}

// eventPump converts fanout deliveries into message frames with the
// author's profile attached.
func (s *Session) eventPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.sink.Events:
			stored, ok := evt.(event.MessageStored)
			if !ok {
				continue
			}
			profile := s.cache.ResolveOne(stored.Message.AuthorID)
			select {
			case s.outbound <- newMessageFrame(stored.Message, profile):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
			return
		case frame := <-s.outbound:
			if err := s.conn.WriteJSON(frame); err != nil {
				s.log.Debug(fmt.Sprintf("Write failed for %s, closing", s.user.ID), "error", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}
