package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	viewChat "github.com/johndosdos/huddle/components/chat"
	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/overlay"
	"github.com/johndosdos/huddle/internal/profile"
)

func floatParam(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.FormValue(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// overlayEvent reads an overlay trigger from the request. The subject is the
// viewer's own session when they are the one shown; otherwise it is the
// author snapshot rendered next to the avatar.
func overlayEvent(r *http.Request, viewer *model.Session) (overlay.Event, error) {
	trigger, ok := overlay.ParseTrigger(r.FormValue("trigger"))
	if !ok {
		return overlay.Event{}, errors.New("unknown trigger")
	}

	subjectID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return overlay.Event{}, err
	}

	subject := model.Profile{
		UserID:      subjectID,
		DisplayName: r.FormValue("name"),
		AvatarURL:   r.FormValue("avatar"),
		Email:       r.FormValue("email"),
	}
	if subjectID == viewer.UserID {
		subject = viewer.Profile()
	}

	return overlay.Event{
		Trigger: trigger,
		Subject: subject,
		Anchor: overlay.Rect{
			Top:    floatParam(r, "top"),
			Left:   floatParam(r, "left"),
			Width:  floatParam(r, "width"),
			Height: floatParam(r, "height"),
		},
		Viewport: overlay.Size{
			Width:  floatParam(r, "vw"),
			Height: floatParam(r, "vh"),
		},
	}, nil
}

// ServeProfileCard drives the viewer's overlay and renders the result.
func ServeProfileCard(tracker *overlay.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r)
		if !ok {
			return
		}

		ev, err := overlayEvent(r, sess)
		if err != nil {
			http.Error(w, "Invalid overlay request.", http.StatusBadRequest)
			return
		}

		state := tracker.Apply(sess.UserID, ev)
		render(r.Context(), w, viewChat.ProfileCard(state, ""))
	}
}

// ViewerRefresher pushes a user's updated session to their open views.
type ViewerRefresher interface {
	Refresh(ctx context.Context, session model.Session)
}

// SubmitDisplayName runs the profile editor and re-renders the card with the
// new name, updating the header alongside. The user's open views pick up the
// new session through views.
func SubmitDisplayName(editor *profile.Editor, tracker *overlay.Tracker, views ViewerRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, ok := requireSession(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data.", http.StatusBadRequest)
			return
		}

		subjectID, err := uuid.Parse(r.PostFormValue("subject"))
		if err != nil {
			http.Error(w, "Invalid profile.", http.StatusBadRequest)
			return
		}

		updated, err := editor.UpdateDisplayName(ctx, sess, subjectID, r.PostFormValue("display_name"))
		switch {
		case errors.Is(err, profile.ErrNotSelf):
			http.Error(w, "You can only edit your own profile.", http.StatusForbidden)
			return
		case errors.Is(err, profile.ErrEmptyDisplayName):
			render(ctx, w, viewChat.ProfileCard(tracker.Get(sess.UserID), "Display name cannot be empty."))
			return
		case err != nil:
			slog.ErrorContext(ctx, "failed to update display name", "error", err)
			render(ctx, w, viewChat.ProfileCard(tracker.Get(sess.UserID), "Could not update your name. Please try again."))
			return
		}

		views.Refresh(ctx, updated)

		state := tracker.Rename(sess.UserID, updated.UserID, updated.DisplayName)
		render(ctx, w, viewChat.ProfileCard(state, ""))
		render(ctx, w, viewChat.ViewerNameOOB(updated.DisplayName))
	}
}
