package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.Queries) {
	t.Helper()
	q := testutil.NewQueries()
	return NewService(q, Config{JWTSecret: "test-secret"}), q
}

func register(t *testing.T, s *Service) Grant {
	t.Helper()
	g, err := s.Register(context.Background(), RegisterParams{
		Username: "Alice",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	return g
}

func TestRegister(t *testing.T) {
	s, _ := newTestService(t)
	g := register(t, s)

	assert.Equal(t, "Alice", g.Session.DisplayName)
	assert.Equal(t, "alice@example.com", g.Session.Email)
	assert.NotEmpty(t, g.AccessToken)
	assert.NotEmpty(t, g.RefreshToken)

	userID, err := s.Signer().Verify(g.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, g.Session.UserID, userID)
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name   string
		params RegisterParams
		want   error
	}{
		{"missing username", RegisterParams{Username: "  ", Email: "a@b.c", Password: "hunter22"}, ErrMissingUsername},
		{"bad email", RegisterParams{Username: "A", Email: "nope", Password: "hunter22"}, ErrInvalidEmail},
		{"weak password", RegisterParams{Username: "A", Email: "a@b.c", Password: "12345"}, ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t)
			_, err := s.Register(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("email in use", func(t *testing.T) {
		s, _ := newTestService(t)
		register(t, s)
		_, err := s.Register(context.Background(), RegisterParams{
			Username: "Other",
			Email:    "alice@example.com",
			Password: "hunter22",
		})
		assert.ErrorIs(t, err, ErrEmailInUse)
	})
}

func TestRegisterPasswordFailureRollsBack(t *testing.T) {
	s, q := newTestService(t)
	ctx := context.Background()
	params := RegisterParams{Username: "Alice", Email: "alice@example.com", Password: "hunter22"}

	reset := errors.New("connection reset")
	q.PasswordErr = reset
	_, err := s.Register(ctx, params)
	require.ErrorIs(t, err, reset)

	_, err = s.SignIn(ctx, params.Email, params.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "no half-created account")

	g, err := s.Register(ctx, params)
	require.NoError(t, err, "email stays available after the failed attempt")

	signedIn, err := s.SignIn(ctx, params.Email, params.Password)
	require.NoError(t, err)
	assert.Equal(t, g.Session.UserID, signedIn.Session.UserID)
}

func TestSignIn(t *testing.T) {
	s, _ := newTestService(t)
	reg := register(t, s)

	g, err := s.SignIn(context.Background(), "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, reg.Session, g.Session)

	_, err = s.SignIn(context.Background(), "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignIn(context.Background(), "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInDatabaseError(t *testing.T) {
	s, q := newTestService(t)
	q.Err = errors.New("connection refused")

	_, err := s.SignIn(context.Background(), "alice@example.com", "hunter22")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesRefreshToken(t *testing.T) {
	s, _ := newTestService(t)
	g := register(t, s)

	require.NoError(t, s.SignOut(context.Background(), g.RefreshToken))
	require.NoError(t, s.SignOut(context.Background(), ""))

	_, _, err := s.Resolve(context.Background(), "", g.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateDisplayName(t *testing.T) {
	s, q := newTestService(t)
	g := register(t, s)

	require.NoError(t, s.UpdateDisplayName(context.Background(), &g.Session, "Bob"))
	assert.Equal(t, "Bob", q.Username(g.Session.UserID))

	err := s.UpdateDisplayName(context.Background(), nil, "Bob")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve(t *testing.T) {
	s, _ := newTestService(t)
	g := register(t, s)
	ctx := context.Background()

	t.Run("valid access token", func(t *testing.T) {
		sess, fresh, err := s.Resolve(ctx, g.AccessToken, "")
		require.NoError(t, err)
		assert.Equal(t, g.Session.UserID, sess.UserID)
		assert.Empty(t, fresh)
	})

	t.Run("expired access token falls back to refresh token", func(t *testing.T) {
		expired, err := s.Signer().Sign(g.Session.UserID, -time.Second)
		require.NoError(t, err)

		sess, fresh, err := s.Resolve(ctx, expired, g.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, g.Session.UserID, sess.UserID)
		assert.NotEmpty(t, fresh)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, _, err := s.Resolve(ctx, "", "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("token for unknown user", func(t *testing.T) {
		tok, err := s.Signer().Sign(uuid.New(), time.Minute)
		require.NoError(t, err)
		_, _, err = s.Resolve(ctx, tok, "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestTokenCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTokenCookies(rec, Grant{AccessToken: "a", RefreshToken: "r"}, Config{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	access, refresh := TokensFromRequest(req)
	assert.Equal(t, "a", access)
	assert.Equal(t, "r", refresh)

	rec = httptest.NewRecorder()
	ClearTokenCookies(rec)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}
}
