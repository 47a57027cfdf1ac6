package trigger

import (
	"context"
	"errors"

	"github.com/timmy/reelvault/internal/logger"
)

// Local runs the worker on a goroutine of the current process.
type Local struct {
	run RunFunc
}

// NewLocal creates a trigger that calls run for every invocation.
func NewLocal(run RunFunc) *Local {
	return &Local{run: run}
}

// Fire starts run in the background and returns immediately.
func (l *Local) Fire(ctx context.Context, inv Invocation) error {
	if l.run == nil {
		return errors.New("local trigger has no worker")
	}
	go func() {
		if err := l.run(context.WithoutCancel(ctx), inv); err != nil {
			logger.CtxError(ctx, "Download worker run failed: %v", err)
		}
	}()
	return nil
}
