package handler

import (
	"errors"
	"log/slog"
	"net/http"

	viewChat "github.com/johndosdos/huddle/components/chat"
	"github.com/johndosdos/huddle/internal/auth"
	"github.com/johndosdos/huddle/internal/chat"
	"github.com/johndosdos/huddle/internal/session"
)

// ServeRoot sends the visitor wherever the guard lets them in.
func ServeRoot(g *session.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := g.Resolve(r.Context(), session.Conversation)
		if !d.Allowed() {
			session.Redirect(w, r, d.RedirectTo)
			return
		}
		session.Redirect(w, r, session.ConversationPath)
	}
}

// ServeChat renders the conversation page.
func ServeChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r)
		if !ok {
			return
		}
		render(r.Context(), w, viewChat.ChatLayout(*sess))
	}
}

// sendErrorText maps send pipeline errors to what the composer shows.
func sendErrorText(err error) (string, int) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "Type a message first.", http.StatusOK
	case errors.Is(err, chat.ErrMessageTooLong):
		return "That message is too long.", http.StatusOK
	case errors.Is(err, chat.ErrRateLimited):
		return "You are sending messages too fast. Try again in a moment.", http.StatusOK
	case errors.Is(err, chat.ErrUnauthenticated):
		return "You are signed out.", http.StatusUnauthorized
	}
	return "Message not sent. Please try again.", http.StatusOK
}

// SubmitMessage runs the send pipeline. Success answers 201 with an empty
// body so the composer clears; failures answer with an inline error and keep
// the typed text.
func SubmitMessage(sender *chat.Sender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data.", http.StatusBadRequest)
			return
		}

		sess, _ := auth.SessionFromContext(ctx)
		out, err := sender.Send(ctx, sess, r.PostFormValue("content"))
		if err != nil {
			msg, status := sendErrorText(err)
			slog.DebugContext(ctx, "message rejected", "error", err)
			w.WriteHeader(status)
			render(ctx, w, viewChat.Notice(msg))
			return
		}

		slog.DebugContext(ctx, "message sent",
			slog.String("message_id", out.ID),
			slog.String("correlation_id", out.CorrelationID))
		w.WriteHeader(http.StatusCreated)
	}
}
