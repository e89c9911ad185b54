package logging

import (
	"context"
	"sync/atomic"
)

var fallback atomic.Pointer[Logger]

// SetDefault replaces the process-wide logger returned by Default. Nil is
// ignored.
func SetDefault(l Logger) {
	if l != nil {
		fallback.Store(&l)
	}
}

// Default returns the logger installed by SetDefault, or a no-op logger.
func Default() Logger {
	if p := fallback.Load(); p != nil {
		return *p
	}
	return nopLogger{}
}

type ctxKey struct{}

// NewContext returns ctx carrying l. The HTTP logging middleware uses it to
// hand a request-scoped logger to handlers.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, else def, else Default().
func FromContext(ctx context.Context, def Logger) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
			return l
		}
	}
	if def != nil {
		return def
	}
	return Default()
}

//Personal.AI order the ending
