package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	viewChat "github.com/johndosdos/huddle/components/chat"
	"github.com/johndosdos/huddle/internal/chat"
	"github.com/johndosdos/huddle/internal/feed"
	"github.com/johndosdos/huddle/internal/model"
)

const storeNotice = "Connection problem: new messages may not show up. Reload to reconnect."

// StreamSSE mounts a conversation view and streams every message list
// replacement as an SSE "messages" event.
func StreamSSE(hub *chat.Hub, feeds *feed.Synchronizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, ok := requireSession(w, r)
		if !ok {
			return
		}

		view, err := chat.OpenView(ctx, hub, feeds, sess)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open view", "error", err)
			http.Error(w, "Server error.", http.StatusServiceUnavailable)
			return
		}
		defer view.Close()

		w.Header().Set("X-Accel-Buffering", "no")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		if err := rc.Flush(); err != nil {
			slog.ErrorContext(ctx, "could not flush buffer to writer", "error", err)
			return
		}
		// Streams outlive the server's write timeout.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			slog.DebugContext(ctx, "could not clear write deadline", "error", err)
		}

		slog.InfoContext(ctx, "view connected", slog.String("user_id", sess.UserID.String()))

		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		writeEvent := func(event string, c templ.Component) error {
			var buf bytes.Buffer
			if err := c.Render(ctx, &buf); err != nil {
				return fmt.Errorf("failed to render component: %w", err)
			}
			data := bytes.ReplaceAll(buf.Bytes(), []byte("\n"), []byte(" "))

			fmt.Fprintf(w, "event: %s\n", event) //nolint:errcheck
			fmt.Fprintf(w, "data: %s\n\n", data) //nolint:errcheck
			return rc.Flush()
		}

		// Own messages render with the viewer's current profile, so a rename
		// re-renders the last list.
		viewer := *sess
		var last *model.MessageListView
		writeList := func() error {
			if last == nil {
				return nil
			}
			if err := writeEvent("messages", viewChat.MessageList(*last, viewer)); err != nil {
				slog.WarnContext(ctx, "failed to write message list", "error", err)
				return err
			}
			return nil
		}

		for {
			select {
			case list := <-view.Updates:
				last = &list
				if err := writeList(); err != nil {
					return
				}

			case s := <-view.Viewer:
				viewer = s
				if err := writeList(); err != nil {
					return
				}

			case err := <-view.Errors:
				slog.WarnContext(ctx, "message subscription failed", "error", err)
				if err := writeEvent("notice", viewChat.Notice(storeNotice)); err != nil {
					return
				}

			case <-ticker.C:
				fmt.Fprint(w, ": \n\n") //nolint:errcheck
				if err := rc.Flush(); err != nil {
					slog.DebugContext(ctx, "could not flush buffer to writer", "error", err)
					return
				}

			case <-ctx.Done():
				slog.InfoContext(ctx, "view disconnected", slog.String("user_id", sess.UserID.String()))
				return
			}
		}
	}
}
