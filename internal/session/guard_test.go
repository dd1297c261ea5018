package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/johndosdos/huddle/internal/model"
)

type fixedSource struct {
	s *model.Session
}

func (f fixedSource) CurrentSession(context.Context) (*model.Session, bool) {
	return f.s, f.s != nil
}

func TestNext(t *testing.T) {
	tests := []struct {
		from State
		ev   Event
		want State
	}{
		{Unauthenticated, SignedIn, Authenticated},
		{Unauthenticated, Registered, Authenticated},
		{Unauthenticated, SignedOut, Unauthenticated},
		{Authenticated, SignedOut, Unauthenticated},
		{Authenticated, SignedIn, Authenticated},
		{Authenticated, Event(42), Authenticated},
		{Unauthenticated, Event(42), Unauthenticated},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Next(tt.from, tt.ev), "%s + %d", tt.from, tt.ev)
	}
}

func TestResolve(t *testing.T) {
	sess := &model.Session{UserID: uuid.New(), DisplayName: "Alice"}

	tests := []struct {
		name     string
		session  *model.Session
		view     View
		redirect string
	}{
		{"conversation without session", nil, Conversation, LoginPath},
		{"conversation with session", sess, Conversation, ""},
		{"login without session", nil, Login, ""},
		{"login with session", sess, Login, ConversationPath},
		{"signup with session", sess, Signup, ConversationPath},
		{"signup without session", nil, Signup, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(fixedSource{tt.session})
			d := g.Resolve(context.Background(), tt.view)
			assert.Equal(t, tt.redirect, d.RedirectTo)
			assert.Equal(t, tt.redirect == "", d.Allowed())
			assert.Equal(t, tt.session, d.Session)
		})
	}
}

func TestRequire(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	t.Run("redirects plain requests", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		NewGuard(fixedSource{}).Require(Conversation, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	})

	t.Run("redirects htmx requests with header", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/chat", nil)
		req.Header.Set("HX-Request", "true")
		NewGuard(fixedSource{}).Require(Conversation, next).ServeHTTP(rec, req)
		assert.False(t, called)
		assert.Equal(t, LoginPath, rec.Header().Get("HX-Redirect"))
	})

	t.Run("serves allowed view", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		s := fixedSource{&model.Session{UserID: uuid.New()}}
		NewGuard(s).Require(Conversation, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
		assert.True(t, called)
	})
}
