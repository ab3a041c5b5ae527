package composer

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"moonchat/moderation"
)

const (
	testDebounce = 5 * time.Millisecond
	testBudget   = 2 * time.Second
)

// scriptedClassifier records every Classify call and blocks it until the
// test releases it, which makes result ordering fully deterministic.
type scriptedClassifier struct {
	mu    sync.Mutex
	calls []*classifyCall
}

type classifyCall struct {
	text    string
	ctx     context.Context
	release chan struct{}
	verdict moderation.Verdict
	err     error
}

func (s *scriptedClassifier) Classify(ctx context.Context, text string) (moderation.Verdict, error) {
	call := &classifyCall{text: text, ctx: ctx, release: make(chan struct{})}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	select {
	case <-call.release:
		return call.verdict, call.err
	case <-ctx.Done():
		return moderation.Verdict{}, &moderation.Failure{Kind: moderation.FailureTimeout, Err: ctx.Err()}
	}
}

func (s *scriptedClassifier) waitCalls(t *testing.T, n int) []*classifyCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.calls) >= n {
			calls := append([]*classifyCall(nil), s.calls...)
			s.mu.Unlock()
			return calls
		}
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d classify calls", n)
	return nil
}

func (c *classifyCall) respond(verdict moderation.Verdict, err error) {
	c.verdict = verdict
	c.err = err
	close(c.release)
}

func waitState(t *testing.T, v *DraftValidator, expected DraftState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, _ := v.State(); state == expected {
			return
		}
		time.Sleep(time.Millisecond)
	}
	state, _ := v.State()
	t.Fatalf("expected state %s, got %s", expected, state)
}

func TestDraftValidator_CleanVerdictEnablesSending(t *testing.T) {
	req := require.New(t)
	classifier := &scriptedClassifier{}
	v := NewDraftValidator(classifier, testDebounce, testBudget, nil, slog.Default())
	defer v.Close()

	v.OnInput("hello")
	calls := classifier.waitCalls(t, 1)
	calls[0].respond(moderation.Verdict{Profane: false}, nil)

	waitState(t, v, StateSafe)
	_, canSend := v.State()
	req.True(canSend)
}

func TestDraftValidator_ProfaneVerdictDisablesSending(t *testing.T) {
	req := require.New(t)
	classifier := &scriptedClassifier{}

	var updates []DraftUpdate
	v := NewDraftValidator(classifier, testDebounce, testBudget, func(u DraftUpdate) {
		updates = append(updates, u)
	}, slog.Default())
	defer v.Close()

	v.OnInput("something rude")
	classifier.waitCalls(t, 1)[0].respond(moderation.Verdict{Profane: true}, nil)

	waitState(t, v, StateUnsafe)
	_, canSend := v.State()
	req.False(canSend)

	last := updates[len(updates)-1]
	req.Equal(ReasonProfane, last.Reason)
}

func TestDraftValidator_EmptyDraftForcesIdleWithoutCheck(t *testing.T) {
	req := require.New(t)
	classifier := &scriptedClassifier{}
	v := NewDraftValidator(classifier, testDebounce, testBudget, nil, slog.Default())
	defer v.Close()

	v.OnInput("   ")
	time.Sleep(5 * testDebounce)

	state, canSend := v.State()
	req.Equal(StateIdle, state)
	req.False(canSend)
	req.Empty(classifier.calls, "empty draft must not reach the classifier")
}

func TestDraftValidator_FailureIsFailOpen(t *testing.T) {
	req := require.New(t)
	classifier := &scriptedClassifier{}
	v := NewDraftValidator(classifier, testDebounce, testBudget, nil, slog.Default())
	defer v.Close()

	v.OnInput("hello")
	classifier.waitCalls(t, 1)[0].respond(moderation.Verdict{},
		&moderation.Failure{Kind: moderation.FailureTransport, Err: context.DeadlineExceeded})

	waitState(t, v, StateUnavailable)
	_, canSend := v.State()
	req.True(canSend, "advisory failure must not block the composer")
}

// For generations g1 < g2, applying g2 first must make g1's late result a
// no-op, whatever it says.
func TestDraftValidator_StaleResultIsDiscarded(t *testing.T) {
	req := require.New(t)
	classifier := &scriptedClassifier{}
	v := NewDraftValidator(classifier, testDebounce, testBudget, nil, slog.Default())
	defer v.Close()

	v.OnInput("first draft")
	calls := classifier.waitCalls(t, 1)

	v.OnInput("second draft")
	calls = classifier.waitCalls(t, 2)

	// Newer generation lands first with a clean verdict.
	calls[1].respond(moderation.Verdict{Profane: false}, nil)
	waitState(t, v, StateSafe)
	applied := v.AppliedGeneration()

	// The superseded generation finally answers, claiming profanity.
	calls[0].respond(moderation.Verdict{Profane: true}, nil)
	time.Sleep(20 * time.Millisecond)

	state, canSend := v.State()
	req.Equal(StateSafe, state, "stale result must not overwrite newer state")
	req.True(canSend)
	req.Equal(applied, v.AppliedGeneration(), "applied generation must be monotonically non-decreasing")
}

func TestDraftValidator_KeystrokeCancelsInFlightCheck(t *testing.T) {
	req := require.New(t)
	classifier := &scriptedClassifier{}
	v := NewDraftValidator(classifier, testDebounce, testBudget, nil, slog.Default())
	defer v.Close()

	v.OnInput("first draft")
	calls := classifier.waitCalls(t, 1)

	v.OnInput("second draft")

	select {
	case <-calls[0].ctx.Done():
	case <-time.After(2 * time.Second):
		req.Fail("previous in-flight check was not cancelled")
	}
}
