package logger

import (
	"context"
	"sync/atomic"
)

type ctxKey struct{}

type holder struct{ l Logger }

var defaultLogger atomic.Pointer[holder]

// SetDefault sets the logger returned by FromContext for contexts that carry
// none. Until it is called that logger discards everything.
func SetDefault(l Logger) {
	if l == nil {
		l = NewNop()
	}
	defaultLogger.Store(&holder{l: l})
}

// WithContext returns a new context carrying the given logger.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the request scoped logger, or the default one.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	if h := defaultLogger.Load(); h != nil {
		return h.l
	}
	return NewNop()
}
