package composer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"moonchat/domain/chat"
	apperrors "moonchat/errors"
	"moonchat/moderation"
)

type fakeStore struct {
	mu      sync.Mutex
	appends int
	fail    bool
}

func (f *fakeStore) Append(_ context.Context, authorID, body string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.fail {
		return chat.Message{}, fmt.Errorf("disk on fire")
	}
	return chat.Message{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Room:      chat.DefaultRoom,
	}, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

type verdictClassifier struct {
	calls   atomic.Int64
	profane bool
	err     error
	block   chan struct{}
}

func (c *verdictClassifier) Classify(ctx context.Context, _ string) (moderation.Verdict, error) {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return moderation.Verdict{}, &moderation.Failure{Kind: moderation.FailureTimeout, Err: ctx.Err()}
		}
	}
	if c.err != nil {
		return moderation.Verdict{}, c.err
	}
	return moderation.Verdict{Profane: c.profane}, nil
}

func TestSendGate_CleanVerdictAppends(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	gate := NewSendGate(&verdictClassifier{}, store, time.Second, 15*time.Second, slog.Default())

	result, err := gate.Submit(context.Background(), "alice", "good evening")
	req.NoError(err)
	req.Equal(OutcomeAccepted, result.Outcome)
	req.Equal("good evening", result.Message.Body)
	req.Equal(1, store.count())
	req.False(gate.Blocked())
}

func TestSendGate_EmptyBody(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	gate := NewSendGate(&verdictClassifier{}, store, time.Second, 15*time.Second, slog.Default())

	_, err := gate.Submit(context.Background(), "alice", "   ")
	req.ErrorIs(err, apperrors.ErrEmptyMessage)
	req.Zero(store.count())
}

func TestSendGate_ProfaneVerdictRejectsWithoutStoring(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	gate := NewSendGate(&verdictClassifier{profane: true}, store, time.Second, 15*time.Second, slog.Default())

	result, err := gate.Submit(context.Background(), "alice", "something rude")
	req.ErrorIs(err, apperrors.ErrMessageRejected)
	req.Equal(OutcomeRejected, result.Outcome)
	req.Equal(ReasonProfane, result.Reason)
	req.Zero(store.count(), "rejected attempts must never reach the store")
	req.False(gate.Blocked(), "rejection is recoverable, not a roadblock")
}

// Fail-closed: a classify timeout at send time must block and must not store.
func TestSendGate_TimeoutFailsClosed(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	classifier := &verdictClassifier{block: make(chan struct{})}
	defer close(classifier.block)

	gate := NewSendGate(classifier, store, 20*time.Millisecond, 15*time.Second, slog.Default())

	result, err := gate.Submit(context.Background(), "alice", "hello out there")
	req.ErrorIs(err, apperrors.ErrModerationUnavailable)
	req.Equal(OutcomeUnavailable, result.Outcome)
	req.Equal(ReasonUnavailable, result.Reason)
	req.Zero(store.count(), "nothing may be stored when moderation is unreachable")
	req.True(gate.Blocked())
}

func TestSendGate_SuccessfulCheckLiftsRoadblock(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	classifier := &verdictClassifier{err: &moderation.Failure{Kind: moderation.FailureTransport, Err: fmt.Errorf("dns")}}
	gate := NewSendGate(classifier, store, time.Second, 15*time.Second, slog.Default())

	_, err := gate.Submit(context.Background(), "alice", "hello")
	req.ErrorIs(err, apperrors.ErrModerationUnavailable)
	req.True(gate.Blocked())

	classifier.err = nil
	result, err := gate.Submit(context.Background(), "alice", "hello")
	req.NoError(err)
	req.Equal(OutcomeAccepted, result.Outcome)
	req.False(gate.Blocked())
}

// Two submits issued back-to-back must coalesce into exactly one append.
func TestSendGate_AtMostOneInFlightAttempt(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	classifier := &verdictClassifier{block: make(chan struct{})}
	gate := NewSendGate(classifier, store, time.Second, 15*time.Second, slog.Default())

	done := make(chan SendResult, 1)
	go func() {
		result, _ := gate.Submit(context.Background(), "alice", "hello")
		done <- result
	}()

	// Wait for the first attempt to be inside the classifier.
	deadline := time.Now().Add(2 * time.Second)
	for classifier.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	_, err := gate.Submit(context.Background(), "alice", "hello")
	req.ErrorIs(err, apperrors.ErrSubmitInFlight)

	close(classifier.block)
	result := <-done
	req.Equal(OutcomeAccepted, result.Outcome)
	req.Equal(1, store.count())
	req.Equal(int64(1), classifier.calls.Load())
}

// A store error after a clean verdict is retryable within the grace window
// without burning a second moderation round-trip.
func TestSendGate_GraceWindowSkipsRevalidation(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{fail: true}
	classifier := &verdictClassifier{}
	gate := NewSendGate(classifier, store, time.Second, 15*time.Second, slog.Default())

	result, err := gate.Submit(context.Background(), "alice", "hello")
	req.Error(err)
	req.Equal(OutcomeStoreError, result.Outcome)
	req.Equal(int64(1), classifier.calls.Load())

	store.fail = false
	result, err = gate.Submit(context.Background(), "alice", "hello")
	req.NoError(err)
	req.Equal(OutcomeAccepted, result.Outcome)
	req.Equal(int64(1), classifier.calls.Load(), "identical prompt retry must skip re-moderation")
}

func TestSendGate_ChangedBodyRevalidates(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{fail: true}
	classifier := &verdictClassifier{}
	gate := NewSendGate(classifier, store, time.Second, 15*time.Second, slog.Default())

	_, err := gate.Submit(context.Background(), "alice", "hello")
	req.Error(err)

	store.fail = false
	result, err := gate.Submit(context.Background(), "alice", "hello edited")
	req.NoError(err)
	req.Equal(OutcomeAccepted, result.Outcome)
	req.Equal(int64(2), classifier.calls.Load(), "edited text must be re-validated")
}

func TestSendGate_ExpiredGraceRevalidates(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{fail: true}
	classifier := &verdictClassifier{}
	gate := NewSendGate(classifier, store, time.Second, 10*time.Millisecond, slog.Default())

	_, err := gate.Submit(context.Background(), "alice", "hello")
	req.Error(err)

	time.Sleep(20 * time.Millisecond)
	store.fail = false
	result, err := gate.Submit(context.Background(), "alice", "hello")
	req.NoError(err)
	req.Equal(OutcomeAccepted, result.Outcome)
	req.Equal(int64(2), classifier.calls.Load())
}
