// Package auth is the identity provider: password and token handling, and
// the Service that signs users in, registers them and maintains their
// display name.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/johndosdos/huddle/internal/database"
	"github.com/johndosdos/huddle/internal/model"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email address is already in use")
	ErrWeakPassword       = fmt.Errorf("password should be at least %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("email address is badly formatted")
	ErrMissingUsername    = errors.New("username is required")
	ErrUnauthenticated    = errors.New("not signed in")
)

// Provider is the identity provider consumed by the chat core.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Grant, error)
	Register(ctx context.Context, params RegisterParams) (Grant, error)
	SignOut(ctx context.Context, refreshToken string) error
	UpdateDisplayName(ctx context.Context, s *model.Session, name string) error
	CurrentSession(ctx context.Context) (*model.Session, bool)
}

// Queries is the account storage the Service uses.
type Queries = database.Accounts

// Grant is the result of a successful sign-in or registration.
type Grant struct {
	Session      model.Session
	AccessToken  string
	RefreshToken string
}

// RegisterParams are the registration form fields.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Config holds token settings.
type Config struct {
	JWTSecret       string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Service implements Provider on top of Postgres.
type Service struct {
	db     Queries
	cfg    Config
	signer Signer
}

var _ Provider = (*Service)(nil)

// NewService returns a Service.
func NewService(db Queries, cfg Config) *Service {
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 5 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	return &Service{db: db, cfg: cfg, signer: NewSigner(cfg.JWTSecret, cfg.Issuer)}
}

// Config returns the token settings.
func (s *Service) Config() Config { return s.cfg }

// Signer returns the access token signer.
func (s *Service) Signer() Signer { return s.signer }

func sessionFromUser(u database.User) model.Session {
	return model.Session{
		UserID:      u.UserID.Bytes,
		DisplayName: u.Username,
		AvatarURL:   u.AvatarUrl.String,
		Email:       u.Email,
	}
}

func (s *Service) grant(ctx context.Context, sess model.Session) (Grant, error) {
	access, err := s.signer.Sign(sess.UserID, s.cfg.AccessTokenTTL)
	if err != nil {
		return Grant{}, err
	}

	now := time.Now().UTC()
	refresh, err := s.db.CreateRefreshToken(ctx, database.CreateRefreshTokenParams{
		Token:     newRefreshToken(),
		CreatedAt: pgtype.Timestamptz{Time: now, Valid: true},
		UserID:    pgtype.UUID{Bytes: sess.UserID, Valid: true},
		ExpiresAt: pgtype.Timestamptz{Time: now.Add(s.cfg.RefreshTokenTTL), Valid: true},
	})
	if err != nil {
		return Grant{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return Grant{Session: sess, AccessToken: access, RefreshToken: refresh.Token}, nil
}

// SignIn checks the credentials and issues tokens.
func (s *Service) SignIn(ctx context.Context, email, password string) (Grant, error) {
	email = strings.TrimSpace(email)

	user, err := s.db.GetUserWithPasswordByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_, _ = verifyPassword(password, decoyHash())
			return Grant{}, ErrInvalidCredentials
		}
		return Grant{}, fmt.Errorf("failed to retrieve user from db: %w", err)
	}

	ok, err := verifyPassword(password, user.HashedPassword)
	if err != nil {
		return Grant{}, fmt.Errorf("cannot verify password, hash may be corrupted: %w", err)
	}
	if !ok {
		return Grant{}, ErrInvalidCredentials
	}

	g, err := s.grant(ctx, model.Session{
		UserID:      user.UserID.Bytes,
		DisplayName: user.Username,
		AvatarURL:   user.AvatarUrl.String,
		Email:       user.Email,
	})
	if err != nil {
		return Grant{}, err
	}

	slog.InfoContext(ctx, "user logged in",
		slog.String("username", user.Username))

	return g, nil
}

// ValidateRegistration checks the registration fields without touching the
// database.
func ValidateRegistration(p RegisterParams) error {
	if strings.TrimSpace(p.Username) == "" {
		return ErrMissingUsername
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(p.Email)); err != nil {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(p.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates the account, stores the password hash, sets the display
// name and signs the new user in.
func (s *Service) Register(ctx context.Context, p RegisterParams) (Grant, error) {
	if err := ValidateRegistration(p); err != nil {
		return Grant{}, err
	}

	hashedPw, err := hashPassword(p.Password)
	if err != nil {
		return Grant{}, err
	}

	// The user row and its password are created together or not at all, so
	// a failed registration never leaves the email taken.
	var user database.User
	err = s.db.InTx(ctx, func(q Queries) error {
		var err error
		user, err = q.CreateUser(ctx, database.CreateUserParams{
			UserID:   pgtype.UUID{Bytes: uuid.New(), Valid: true},
			Username: strings.TrimSpace(p.Username),
			Email:    strings.TrimSpace(p.Email),
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrEmailInUse
			}
			return fmt.Errorf("failed to create user entry in database: %w", err)
		}

		_, err = q.CreatePassword(ctx, database.CreatePasswordParams{
			UserID:         user.UserID,
			HashedPassword: hashedPw,
			CreatedAt:      pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		})
		if err != nil {
			return fmt.Errorf("failed to create password entry in database: %w", err)
		}
		return nil
	})
	if err != nil {
		return Grant{}, err
	}

	g, err := s.grant(ctx, sessionFromUser(user))
	if err != nil {
		return Grant{}, err
	}

	slog.InfoContext(ctx, "user signed up",
		slog.String("username", user.Username))

	return g, nil
}

// SignOut revokes the refresh token. An empty token is a no-op.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.db.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to process token deletion: %w", err)
	}
	return nil
}

// UpdateDisplayName stores a new display name for the session's user.
func (s *Service) UpdateDisplayName(ctx context.Context, sess *model.Session, name string) error {
	if sess == nil {
		return ErrUnauthenticated
	}

	_, err := s.db.UpdateUsername(ctx, database.UpdateUsernameParams{
		UserID:   pgtype.UUID{Bytes: sess.UserID, Valid: true},
		Username: name,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("failed to update username: %w", err)
	}
	return nil
}

// CurrentSession returns the session resolved for this request.
func (s *Service) CurrentSession(ctx context.Context) (*model.Session, bool) {
	return SessionFromContext(ctx)
}

// LoadSession reads a user's current session state.
func (s *Service) LoadSession(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	user, err := s.db.GetUserById(ctx, pgtype.UUID{Bytes: userID, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	sess := sessionFromUser(user)
	return &sess, nil
}

// Resolve turns request credentials into a session. A valid access token is
// enough; otherwise a live refresh token yields the session and a fresh
// access token, returned so the caller can set it.
func (s *Service) Resolve(ctx context.Context, accessToken, refreshToken string) (*model.Session, string, error) {
	if accessToken != "" {
		if userID, err := s.signer.Verify(accessToken); err == nil {
			sess, err := s.LoadSession(ctx, userID)
			return sess, "", err
		}
	}

	if refreshToken == "" {
		return nil, "", ErrUnauthenticated
	}

	userID, err := s.db.GetUserFromRefreshTok(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrUnauthenticated
		}
		return nil, "", fmt.Errorf("internal/auth: failed to retrieve user from refresh token: %w", err)
	}

	sess, err := s.LoadSession(ctx, userID.Bytes)
	if err != nil {
		return nil, "", err
	}

	access, err := s.signer.Sign(sess.UserID, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, "", err
	}

	return sess, access, nil
}
