package auth

import (
	"context"

	"github.com/johndosdos/huddle/internal/model"
)

type contextKey struct{}

// WithSession stores the resolved session in ctx.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*model.Session)
	return s, ok && s != nil
}
