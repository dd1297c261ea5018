package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	viewAuth "github.com/johndosdos/huddle/components/auth"
	"github.com/johndosdos/huddle/internal/auth"
	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/session"
)

// Provider is the identity provider as used by the account handlers.
type Provider interface {
	auth.Provider
	Config() auth.Config
}

func ServeLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(r.Context(), w, viewAuth.Login())
	}
}

func ServeSignupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(r.Context(), w, viewAuth.Signup())
	}
}

// inlineAuthError renders provider errors the user can act on verbatim.
// Anything else is a server error.
func inlineAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrEmailInUse),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrMissingUsername):
		render(r.Context(), w, viewAuth.ErrorMsg(err.Error()))
	default:
		slog.ErrorContext(r.Context(), "account request failed", "error", err)
		http.Error(w, "Server error.", http.StatusInternalServerError)
	}
}

// SubmitLoginForm handles user login.
func SubmitLoginForm(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			slog.DebugContext(ctx, "failed to parse form values", "error", err)
			http.Error(w, "Invalid form data.", http.StatusBadRequest)
			return
		}

		g, err := p.SignIn(ctx, r.PostFormValue("email"), r.PostFormValue("password"))
		if err != nil {
			inlineAuthError(w, r, err)
			return
		}

		auth.SetTokenCookies(w, g, p.Config())
		session.Redirect(w, r, session.ConversationPath)
	}
}

// SubmitSignupForm handles account creation. A new account is signed in
// right away.
func SubmitSignupForm(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			slog.DebugContext(ctx, "failed to parse form values", "error", err)
			http.Error(w, "Invalid form data.", http.StatusBadRequest)
			return
		}

		password := r.PostFormValue("password")
		if password != r.PostFormValue("confirm_password") {
			render(ctx, w, viewAuth.ErrorMsg("Passwords do not match!"))
			return
		}

		g, err := p.Register(ctx, auth.RegisterParams{
			Username: r.PostFormValue("username"),
			Email:    r.PostFormValue("email"),
			Password: password,
		})
		if err != nil {
			inlineAuthError(w, r, err)
			return
		}

		auth.SetTokenCookies(w, g, p.Config())
		session.Redirect(w, r, session.ConversationPath)
	}
}

// SubmitLogoutReq revokes the refresh token and sends the user back to the
// login page.
func SubmitLogoutReq(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		_, refresh := auth.TokensFromRequest(r)
		if refresh != "" {
			if err := p.SignOut(ctx, refresh); err != nil {
				slog.WarnContext(ctx, "failed to revoke refresh token", "error", err)
			}
		}

		auth.ClearTokenCookies(w)
		session.Redirect(w, r, session.LoginPath)

		slog.InfoContext(ctx, "user logged out")
	}
}

// Refresher issues access tokens from refresh tokens.
type Refresher interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (*model.Session, string, error)
	Config() auth.Config
}

// RefreshToken issues a fresh access token for a live refresh token.
func RefreshToken(rf Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, refresh := auth.TokensFromRequest(r)
		if refresh == "" {
			w.Header().Set("HX-Redirect", session.LoginPath)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_, access, err := rf.Resolve(r.Context(), "", refresh)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				slog.ErrorContext(r.Context(), "failed to refresh access token", "error", err)
			}
			auth.ClearTokenCookies(w)
			w.Header().Set("HX-Redirect", session.LoginPath)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		auth.SetAccessCookie(w, access, rf.Config().AccessTokenTTL)
		w.WriteHeader(http.StatusNoContent)
	}
}
