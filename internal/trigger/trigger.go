// Package trigger starts download worker invocations, either in-process,
// over HTTP, or through a Redis list consumed by a worker process.
package trigger

import (
	"context"

	"github.com/timmy/reelvault/internal/logger"
)

// Invocation is the payload of one worker run request.
// Depth counts how many times the worker has chained itself without a fresh
// external trigger.
type Invocation struct {
	Depth  int    `json:"depth"`
	Reason string `json:"reason,omitempty"`
}

// Next returns the invocation a worker fires to continue its own chain.
func (i Invocation) Next() Invocation {
	return Invocation{Depth: i.Depth + 1, Reason: "chain"}
}

// Trigger requests a worker invocation. Implementations must return once the
// request is handed off; they never wait for the worker to finish.
type Trigger interface {
	Fire(ctx context.Context, inv Invocation) error
}

// RunFunc executes one worker invocation in-process.
type RunFunc func(ctx context.Context, inv Invocation) error

// FireAsync fires inv on a detached goroutine. The caller's cancellation does
// not reach the trigger and failures are only logged.
func FireAsync(ctx context.Context, t Trigger, inv Invocation) {
	if t == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := t.Fire(detached, inv); err != nil {
			logger.FromContext(detached).WithError(err).WithFields(logger.Fields{
				logger.FieldChainDepth: inv.Depth,
			}).Warn("Failed to trigger download worker")
		}
	}()
}
