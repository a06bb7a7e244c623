package panicerr

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps fn so that a panic inside it is returned as an error.
func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

// SafeContext is Safe for functions taking a context.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Go runs fn in a new goroutine. A returned error or a recovered panic is
// logged under name instead of crashing the process.
func Go(ctx context.Context, name string, fn func(context.Context) error) {
	go func() {
		if err := SafeContext(fn)(ctx); err != nil {
			slog.ErrorContext(ctx, "background worker failed", "worker", name, "error", err)
		}
	}()
}
