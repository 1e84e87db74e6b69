// Package services holds the controllers the CLI drives: the session, the
// form collection and the message thread.
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/logging"
)

// AuthGuard hands out the current bearer token and is told when the backend
// rejected it.
type AuthGuard interface {
	// Token returns the bearer token, or "" when nobody is logged in.
	Token() string
	// Invalidate drops the session after an authentication failure.
	Invalidate(ctx context.Context, cause error)
}

// tracker is the bookkeeping every controller shares: how many operations are
// running, what the last one failed with, and what to do on auth failures.
type tracker struct {
	guard  AuthGuard
	logger logging.Logger

	mu      sync.Mutex
	busy    int
	lastErr error
}

func newTracker(guard AuthGuard, logger logging.Logger) *tracker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &tracker{guard: guard, logger: logger}
}

// Busy reports whether any operation is in flight.
func (t *tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy > 0
}

// LastError returns the error of the most recent operation, nil if it
// succeeded.
func (t *tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *tracker) fail(err error) error {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	return err
}

// run executes fn with the current token. Without a token nothing is sent.
// An authentication failure invalidates the session exactly once per call.
func (t *tracker) run(ctx context.Context, op string, fn func(ctx context.Context, token string) error) error {
	token := t.guard.Token()
	if token == "" {
		return t.fail(client.ErrNotLoggedIn)
	}

	t.mu.Lock()
	t.busy++
	t.mu.Unlock()

	err := fn(ctx, token)

	t.mu.Lock()
	t.busy--
	t.lastErr = err
	t.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		t.logger.Debug(ctx, op+" canceled")
	case client.IsAuthError(err):
		t.logger.Info(ctx, op+": session rejected by server", "error", err)
		t.guard.Invalidate(ctx, err)
	default:
		t.logger.Warn(ctx, op+" failed", "error", err)
	}
	return err
}

// mutateThenRefetch submits a change and, only once it was accepted, reloads
// whatever state the change affects. Nothing is updated locally in between.
func mutateThenRefetch(ctx context.Context, mutate, refetch func(ctx context.Context) error) error {
	if err := mutate(ctx); err != nil {
		return err
	}
	return refetch(ctx)
}
