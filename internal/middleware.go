package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/johndosdos/huddle/internal/auth"
	"github.com/johndosdos/huddle/internal/model"
)

// SessionResolver turns token cookies into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (*model.Session, string, error)
}

// Middleware resolves the client's session from its cookies and stores it in
// the request context. A valid JWT is enough; otherwise a live refresh token
// yields a fresh JWT cookie. Requests without a session pass through
// untouched and the session guard decides what they may see.
func Middleware(resolver SessionResolver, accessTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			access, refresh := auth.TokensFromRequest(r)

			if access == "" && refresh == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, freshJWT, err := resolver.Resolve(ctx, access, refresh)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					slog.ErrorContext(ctx, "failed to resolve session", "error", err)
				}
				auth.ClearTokenCookies(w)
				next.ServeHTTP(w, r)
				return
			}

			if freshJWT != "" {
				auth.SetAccessCookie(w, freshJWT, accessTTL)
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(ctx, sess)))
		})
	}
}
