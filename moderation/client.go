// Package moderation talks to the external profanity classification
// service. The provider is treated as an untrusted black box: it may be
// slow, unreachable, or answer with garbage, and each failure mode is
// reported to the caller so that draft checks can fail open while send
// checks fail closed.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Verdict struct {
	Profane bool
}

type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureTransport FailureKind = "transport"
	FailureBadStatus FailureKind = "bad_status"
)

// Failure describes an unusable answer from the provider. All kinds are
// "moderation unavailable" as far as policy goes; the kind only matters
// for logs.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("moderation %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

type classifyRequest struct {
	Message string `json:"message"`
}

type classifyResponse struct {
	IsProfanity bool `json:"isProfanity"`
}

// IClassifier is the contract shared by the draft validator and the
// send gate. The two callers never share deadlines or cancellation.
type IClassifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient builds a provider client. The deadline of each call is
// supplied by the caller through the context; the embedded http.Client
// carries no timeout of its own so cancellation stays in one place.
func NewClient(endpoint string, log *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		log:        log,
	}
}

// Classify submits the text for classification and returns the verdict.
// Empty or whitespace-only text short-circuits to a clean verdict
// without touching the network. Cancelling the context aborts the
// in-flight request; no late result is ever returned after that.
// Retries are the caller's business, not the client's.
func (c *Client) Classify(ctx context.Context, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return Verdict{Profane: false}, nil
	}

	body, err := json.Marshal(classifyRequest{Message: text})
	if err != nil {
		return Verdict{}, &Failure{Kind: FailureTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, &Failure{Kind: FailureTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		failure := c.toFailure(ctx, err)
		c.log.Warn("Moderation call failed", "kind", failure.Kind, "error", err)
		return Verdict{}, failure
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := &Failure{Kind: FailureBadStatus, Err: fmt.Errorf("status %d", resp.StatusCode)}
		c.log.Warn("Moderation call failed", "kind", failure.Kind, "status", resp.StatusCode)
		return Verdict{}, failure
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Verdict{}, c.toFailure(ctx, err)
	}

	var parsed classifyResponse
	if err = json.Unmarshal(payload, &parsed); err != nil {
		failure := &Failure{Kind: FailureBadStatus, Err: fmt.Errorf("malformed body: %w", err)}
		c.log.Warn("Moderation call failed", "kind", failure.Kind, "error", err)
		return Verdict{}, failure
	}

	return Verdict{Profane: parsed.IsProfanity}, nil
}

// toFailure separates the deadline case from plain transport trouble.
func (c *Client) toFailure(ctx context.Context, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	return &Failure{Kind: FailureTransport, Err: err}
}
