// Package middleware runs ordered request and response hooks around a
// skill invocation.
package middleware

import (
	"context"
	"time"

	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

// Outcome classifies how an invocation finished.
type Outcome string

const (
	OutcomeHandled   Outcome = "handled"
	OutcomeRecovered Outcome = "recovered"
	OutcomeFailed    Outcome = "failed"
)

// CallInfo describes the current invocation for hook processing.
// Response hooks see the fields filled in by dispatch.
type CallInfo struct {
	Request *envelope.RequestEnvelope
	Started time.Time

	// Set after dispatch.
	Handler  string
	Response *response.Envelope
	Err      error
	Outcome  Outcome
}

// Duration returns the time elapsed since the call started.
func (c *CallInfo) Duration() time.Duration {
	if c.Started.IsZero() {
		return 0
	}
	return time.Since(c.Started)
}

// Hook processes a call. Returning an error stops the chain.
type Hook func(ctx context.Context, info *CallInfo) (context.Context, error)

// Chain holds ordered request and response hooks.
type Chain struct {
	Request  []Hook
	Response []Hook
}

// RunRequest executes request hooks in order. Stops on first error.
func (c *Chain) RunRequest(ctx context.Context, info *CallInfo) (context.Context, error) {
	return run(ctx, c.Request, info)
}

// RunResponse executes response hooks in order. Stops on first error.
func (c *Chain) RunResponse(ctx context.Context, info *CallInfo) (context.Context, error) {
	return run(ctx, c.Response, info)
}

func run(ctx context.Context, hooks []Hook, info *CallInfo) (context.Context, error) {
	for _, h := range hooks {
		var err error
		ctx, err = h(ctx, info)
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}
