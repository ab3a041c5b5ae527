// Package composer holds the per-session message pipeline: the advisory
// draft validator that runs while the user types, and the authoritative
// send gate that stands between a submit and the message store.
//
// One composer belongs to exactly one session. Classification calls run
// concurrently with input handling, so both components are safe for the
// single-writer, concurrent-completion pattern they are used in.
package composer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"moonchat/moderation"
)

type DraftState string

const (
	StateIdle        DraftState = "idle"
	StateDebouncing  DraftState = "debouncing"
	StateChecking    DraftState = "checking"
	StateSafe        DraftState = "safe"
	StateUnsafe      DraftState = "unsafe"
	StateUnavailable DraftState = "unavailable"
)

// ReasonProfane is the user-facing copy shown for a profane verdict.
const ReasonProfane = "This message isn't appropriate for moonlight."

type DraftUpdate struct {
	State      DraftState
	CanSend    bool
	Reason     string
	Generation int64
}

// DraftValidator debounces keystrokes and runs cancellable, advisory
// profanity checks against the moderation provider.
//
// Every keystroke bumps a generation token, cancels the previous
// in-flight check, and restarts the debounce timer. A result is applied
// only if it still belongs to the current generation; anything older is
// discarded without touching state. That discard rule is what keeps
// overlapping checks from racing: once a newer result has been applied,
// an older one can never overwrite it.
//
// Failures are swallowed into Unavailable and the composer stays
// enabled: the send gate, not this validator, is the authority.
type DraftValidator struct {
	classifier  moderation.IClassifier
	log         *slog.Logger
	debounce    time.Duration
	checkBudget time.Duration
	onUpdate    func(DraftUpdate)

	mu         sync.Mutex
	generation int64
	applied    int64
	state      DraftState
	canSend    bool
	timer      *time.Timer
	cancel     context.CancelFunc
}

// NewDraftValidator wires a validator to its classifier. onUpdate is
// invoked with the lock held and in state order; it must not call back
// into the validator.
func NewDraftValidator(classifier moderation.IClassifier, debounce, checkBudget time.Duration,
	onUpdate func(DraftUpdate), log *slog.Logger) *DraftValidator {
	if onUpdate == nil {
		onUpdate = func(DraftUpdate) {}
	}
	return &DraftValidator{
		classifier:  classifier,
		log:         log,
		debounce:    debounce,
		checkBudget: checkBudget,
		onUpdate:    onUpdate,
		state:       StateIdle,
	}
}

// OnInput registers a keystroke. An empty draft forces Idle immediately,
// bypassing the debounce, and disables sending.
func (v *DraftValidator) OnInput(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.generation++
	gen := v.generation
	v.cancelInFlightLocked()

	if strings.TrimSpace(text) == "" {
		v.applied = gen
		v.setLocked(StateIdle, false, "", gen)
		return
	}

	v.setLocked(StateDebouncing, false, "", gen)
	v.timer = time.AfterFunc(v.debounce, func() {
		v.beginCheck(gen, text)
	})
}

// State returns the current draft state and whether sending is allowed.
func (v *DraftValidator) State() (DraftState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.canSend
}

// AppliedGeneration returns the generation of the last applied result.
func (v *DraftValidator) AppliedGeneration() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applied
}

// Close cancels any outstanding check and pending debounce.
func (v *DraftValidator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelInFlightLocked()
}

func (v *DraftValidator) beginCheck(gen int64, text string) {
	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), v.checkBudget)
	v.cancel = cancel
	v.setLocked(StateChecking, false, "", gen)
	v.mu.Unlock()

	go func() {
		verdict, err := v.classifier.Classify(ctx, text)
		cancel()
		v.apply(gen, verdict, err)
	}()
}

// apply installs a check result, unless a newer generation exists.
func (v *DraftValidator) apply(gen int64, verdict moderation.Verdict, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation || gen < v.applied {
		return
	}
	v.applied = gen

	switch {
	case err != nil:
		// Fail-open: the advisory check optimizes UX, the send gate
		// holds the real guarantee.
		v.log.Warn("Draft check unavailable", "generation", gen, "error", err)
		v.setLocked(StateUnavailable, true, "", gen)
	case verdict.Profane:
		v.setLocked(StateUnsafe, false, ReasonProfane, gen)
	default:
		v.setLocked(StateSafe, true, "", gen)
	}
}

func (v *DraftValidator) cancelInFlightLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

func (v *DraftValidator) setLocked(state DraftState, canSend bool, reason string, gen int64) {
	v.state = state
	v.canSend = canSend
	v.onUpdate(DraftUpdate{State: state, CanSend: canSend, Reason: reason, Generation: gen})
}
