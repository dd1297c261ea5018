// Package session gates navigation between the entry views and the
// conversation view on whether the request carries a session.
package session

import (
	"context"
	"net/http"

	"github.com/johndosdos/huddle/internal/model"
)

// Paths of the views the guard routes between.
const (
	ConversationPath = "/chat"
	LoginPath        = "/account/login"
	SignupPath       = "/account/signup"
)

// State is the guard's two-state machine.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Event moves the state machine.
type Event int

const (
	SignedIn Event = iota
	Registered
	SignedOut
)

// Next returns the state after ev. Authenticated is entered only by signing
// in or registering and left only by signing out.
func Next(s State, ev Event) State {
	switch ev {
	case SignedIn, Registered:
		return Authenticated
	case SignedOut:
		return Unauthenticated
	}
	return s
}

// View names a mountable view.
type View int

const (
	Conversation View = iota
	Login
	Signup
)

// Decision is the guard's verdict for a view mount.
type Decision struct {
	State      State
	Session    *model.Session
	RedirectTo string
}

// Allowed reports whether the view may render.
func (d Decision) Allowed() bool { return d.RedirectTo == "" }

// SessionSource reads the current session.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*model.Session, bool)
}

// Guard decides which view may render.
type Guard struct {
	sessions SessionSource
}

// NewGuard returns a Guard reading sessions from src.
func NewGuard(src SessionSource) *Guard {
	return &Guard{sessions: src}
}

// Resolve applies the mount rules: the conversation needs a session, the
// entry views must not have one.
func (g *Guard) Resolve(ctx context.Context, v View) Decision {
	sess, ok := g.sessions.CurrentSession(ctx)

	d := Decision{State: Unauthenticated}
	if ok {
		d.State = Authenticated
		d.Session = sess
	}

	switch v {
	case Conversation:
		if d.State == Unauthenticated {
			d.RedirectTo = LoginPath
		}
	case Login, Signup:
		if d.State == Authenticated {
			d.RedirectTo = ConversationPath
		}
	}

	return d
}

// Redirect sends the client to path. htmx requests get an HX-Redirect header
// so the whole page navigates rather than a fragment swap.
func Redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// Require lets next render view v only when the guard allows it.
func (g *Guard) Require(v View, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := g.Resolve(r.Context(), v)
		if !d.Allowed() {
			Redirect(w, r, d.RedirectTo)
			return
		}
		next.ServeHTTP(w, r)
	}
}
