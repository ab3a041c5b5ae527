// Package client is the Go consumer of the chat's WebSocket feed. It
// reconnects on failure and deduplicates redeliveries, so callers see
// each message exactly once no matter how often the link drops.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second

	// maxSeen bounds the duplicate filter. Replays after a reconnect
	// only ever cover recent messages, so remembering the last window
	// of ids is enough; older entries are evicted oldest-first.
	maxSeen = 512
)

// Message is the subset of the wire frame a consumer needs.
type Message struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Profile   struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
	} `json:"profile"`
}

type frameEnvelope struct {
	Type string `json:"type"`
	Message
}

// Subscriber maintains a live subscription to the room feed. On
// reconnect the server replays from its buffer, so Subscriber keeps the
// set of delivered ids and drops anything it has already handed out.
type Subscriber struct {
	endpoint string
	token    string
	log      *slog.Logger
	backoff  time.Duration

	seen  map[string]struct{}
	order []string
}

func NewSubscriber(baseURL, token string, log *slog.Logger) (*Subscriber, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	parsed.Path = "/ws"
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()

	return &Subscriber{
		endpoint: parsed.String(),
		token:    token,
		log:      log,
		backoff:  initialBackoff,
		seen:     make(map[string]struct{}),
	}, nil
}

// markSeen records an id in the bounded duplicate filter and reports
// whether it was new.
func (s *Subscriber) markSeen(id string) bool {
	if _, duplicate := s.seen[id]; duplicate {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > maxSeen {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

// Listen blocks, invoking handle once per distinct message, until ctx
// is cancelled. Connection failures are retried with exponential
// backoff; handle is never called twice for the same message id.
func (s *Subscriber) Listen(ctx context.Context, handle func(Message)) error {
	wait := s.backoff
	failures := 0
	for {
		connected, err := s.consume(ctx, handle)
		if connected {
			failures = 0
			wait = s.backoff
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if failures >= 3 {
				s.log.Error("Live updates paused, still retrying", "failures", failures, "error", err)
			} else {
				s.log.Warn("Feed dropped, reconnecting", "backoff", wait, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = min(wait*2, maxBackoff)
	}
}

// consume runs one connection to exhaustion. The first return value
// reports whether the dial succeeded, so the caller can reset its
// failure accounting.
func (s *Subscriber) consume(ctx context.Context, handle func(Message)) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	// Tear the connection down when the caller gives up; ReadMessage
	// has no context of its own.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	s.log.Info("Subscribed to feed", "endpoint", s.endpoint)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read frame: %w", err)
		}

		var frame frameEnvelope
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.log.Debug("Skipping unparseable frame", "error", err)
			continue
		}
		if frame.Type != "message" {
			continue
		}
		if !s.markSeen(frame.ID) {
			continue
		}
		handle(frame.Message)
	}
}
