package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/johndosdos/huddle/internal/chat"
	"github.com/johndosdos/huddle/internal/feed"
	ws "github.com/johndosdos/huddle/internal/websocket"
)

// ServeWs upgrades the connection and streams the conversation view as JSON.
func ServeWs(hub *chat.Hub, feeds *feed.Synchronizer, sender *chat.Sender, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, ok := requireSession(w, r)
		if !ok {
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to upgrade connection to websocket", "error", err)
			return
		}

		view, err := chat.OpenView(ctx, hub, feeds, sess)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open view", "error", err)
			conn.Close(websocket.StatusInternalError, "unavailable") //nolint:errcheck
			return
		}
		defer view.Close()

		slog.InfoContext(ctx, "upgraded connection",
			slog.String("user_id", sess.UserID.String()))

		// The request context is cancelled as soon as the handler returns, so
		// the client is served in the foreground.
		ws.NewClient(conn, view, sender, sess).Serve(ctx)
	}
}
