// Package handler serves the HTTP surface of the conversation service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/johndosdos/huddle/internal/auth"
	"github.com/johndosdos/huddle/internal/model"
)

func render(ctx context.Context, w http.ResponseWriter, c templ.Component) {
	if err := c.Render(ctx, w); err != nil {
		slog.ErrorContext(ctx, "failed to render component", "error", err)
	}
}

// requireSession returns the request's session, answering 401 when there is none.
// Guarded routes always have one.
func requireSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized.", http.StatusUnauthorized)
		return nil, false
	}
	return sess, true
}
