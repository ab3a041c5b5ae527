package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"moonchat/domain/chat"
	apperrors "moonchat/errors"
	"moonchat/moderation"
)

type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeRejected    Outcome = "blocked_profanity"
	OutcomeUnavailable Outcome = "blocked_unavailable"
	OutcomeStoreError  Outcome = "blocked_store_error"
)

// ReasonUnavailable is the user-facing copy for the fail-closed roadblock.
const ReasonUnavailable = "We couldn't connect to our profanity checker. You are unable to send messages right now."

type SendResult struct {
	Outcome Outcome
	Message chat.Message
	Reason  string
}

// MessageAppender persists an approved message. By the time Append is
// called the body has already passed moderation; the store never
// re-checks.
type MessageAppender interface {
	Append(ctx context.Context, authorID, body string) (chat.Message, error)
}

// SendGate runs the authoritative moderation check on submit.
//
// Unlike the draft validator it fails closed: if the provider cannot be
// reached within the budget, nothing is stored and the gate raises a
// persistent blocking state that only a later successful check lifts.
// At most one attempt is in flight per composer; concurrent submits
// coalesce into a no-op.
type SendGate struct {
	classifier  moderation.IClassifier
	store       MessageAppender
	log         *slog.Logger
	checkBudget time.Duration
	graceWindow time.Duration

	inFlight atomic.Bool

	mu            sync.Mutex
	blocked       bool
	lastCleanBody string
	lastCleanAt   time.Time
}

func NewSendGate(classifier moderation.IClassifier, store MessageAppender,
	checkBudget, graceWindow time.Duration, log *slog.Logger) *SendGate {
	return &SendGate{
		classifier:  classifier,
		store:       store,
		log:         log,
		checkBudget: checkBudget,
		graceWindow: graceWindow,
	}
}

// Submit runs one send attempt to completion. The returned SendResult
// always carries the outcome; the error classifies the non-accepted
// outcomes (ErrMessageRejected, ErrModerationUnavailable, or the store
// failure) so callers can branch with errors.Is.
//
// The classification deadline is derived from a context detached from
// the caller's: once an attempt is past the re-entrancy guard it is
// never silently cancelled, it either completes or times out on its own
// budget. A store failure after a clean verdict opens a short grace
// window during which resubmitting the identical body skips
// re-moderation.
func (g *SendGate) Submit(ctx context.Context, authorID, body string) (SendResult, error) {
	if strings.TrimSpace(body) == "" {
		return SendResult{}, apperrors.ErrEmptyMessage
	}
	if !g.inFlight.CompareAndSwap(false, true) {
		return SendResult{}, apperrors.ErrSubmitInFlight
	}
	defer g.inFlight.Store(false)

	if !g.withinGrace(body) {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.checkBudget)
		verdict, err := g.classifier.Classify(checkCtx, body)
		cancel()

		if err != nil {
			g.setBlocked(true)
			g.log.Warn("Send-time moderation unavailable, failing closed", "author", authorID, "error", err)
			return SendResult{Outcome: OutcomeUnavailable, Reason: ReasonUnavailable},
				fmt.Errorf("%w: %w", apperrors.ErrModerationUnavailable, err)
		}
		// Any completed check, whatever the verdict, lifts the roadblock.
		g.setBlocked(false)

		if verdict.Profane {
			return SendResult{Outcome: OutcomeRejected, Reason: ReasonProfane}, apperrors.ErrMessageRejected
		}
		g.rememberClean(body)
	}

	message, err := g.store.Append(ctx, authorID, body)
	if err != nil {
		// Transient send failure, not a moderation failure. The clean
		// verdict stays valid inside the grace window for a prompt retry.
		g.log.Error("Store append failed after clean verdict", "author", authorID, "error", err)
		return SendResult{Outcome: OutcomeStoreError, Reason: "Failed to send message"}, err
	}

	g.forgetClean()
	return SendResult{Outcome: OutcomeAccepted, Message: message}, nil
}

// Blocked reports whether the fail-closed roadblock is active.
func (g *SendGate) Blocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blocked
}

func (g *SendGate) setBlocked(blocked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked = blocked
}

func (g *SendGate) withinGrace(body string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCleanBody == body && time.Since(g.lastCleanAt) < g.graceWindow
}

func (g *SendGate) rememberClean(body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastCleanBody = body
	g.lastCleanAt = time.Now()
}

func (g *SendGate) forgetClean() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastCleanBody = ""
	g.lastCleanAt = time.Time{}
}
