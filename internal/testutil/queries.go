package testutil

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/johndosdos/huddle/internal/database"
)

// Queries is an in-memory stand-in for the generated user and token queries.
type Queries struct {
	mu        sync.Mutex
	users     map[[16]byte]database.User
	passwords map[[16]byte]string
	tokens    map[string]database.RefreshToken

	// Err, when set, is returned by every call.
	Err error
	// PasswordErr, when set, fails the next CreatePassword and is cleared.
	PasswordErr error
}

var _ database.Accounts = (*Queries)(nil)

// NewQueries returns empty fake queries.
func NewQueries() *Queries {
	return &Queries{
		users:     make(map[[16]byte]database.User),
		passwords: make(map[[16]byte]string),
		tokens:    make(map[string]database.RefreshToken),
	}
}

func (q *Queries) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return database.User{}, q.Err
	}

	for _, u := range q.users {
		if u.Email == arg.Email {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}

	now := pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
	u := database.User{
		UserID:    arg.UserID,
		Username:  arg.Username,
		Email:     arg.Email,
		AvatarUrl: arg.AvatarUrl,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.users[arg.UserID.Bytes] = u
	return u, nil
}

func (q *Queries) CreatePassword(_ context.Context, arg database.CreatePasswordParams) (database.Password, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return database.Password{}, q.Err
	}
	if err := q.PasswordErr; err != nil {
		q.PasswordErr = nil
		return database.Password{}, err
	}

	q.passwords[arg.UserID.Bytes] = arg.HashedPassword
	return database.Password(arg), nil
}

func (q *Queries) GetUserById(_ context.Context, userID pgtype.UUID) (database.User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return database.User{}, q.Err
	}

	u, ok := q.users[userID.Bytes]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (q *Queries) GetUserWithPasswordByEmail(_ context.Context, email string) (database.GetUserWithPasswordByEmailRow, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return database.GetUserWithPasswordByEmailRow{}, q.Err
	}

	for id, u := range q.users {
		pw, ok := q.passwords[id]
		if u.Email == email && ok {
			return database.GetUserWithPasswordByEmailRow{
				UserID:         u.UserID,
				Username:       u.Username,
				Email:          u.Email,
				AvatarUrl:      u.AvatarUrl,
				HashedPassword: pw,
			}, nil
		}
	}
	return database.GetUserWithPasswordByEmailRow{}, pgx.ErrNoRows
}

func (q *Queries) UpdateUsername(_ context.Context, arg database.UpdateUsernameParams) (database.User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return database.User{}, q.Err
	}

	u, ok := q.users[arg.UserID.Bytes]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	u.Username = arg.Username
	u.UpdatedAt = pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
	q.users[arg.UserID.Bytes] = u
	return u, nil
}

func (q *Queries) CreateRefreshToken(_ context.Context, arg database.CreateRefreshTokenParams) (database.RefreshToken, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return database.RefreshToken{}, q.Err
	}

	tok := database.RefreshToken{
		Token:     arg.Token,
		UserID:    arg.UserID,
		CreatedAt: arg.CreatedAt,
		ExpiresAt: arg.ExpiresAt,
	}
	q.tokens[arg.Token] = tok
	return tok, nil
}

func (q *Queries) GetUserFromRefreshTok(_ context.Context, token string) (pgtype.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return pgtype.UUID{}, q.Err
	}

	tok, ok := q.tokens[token]
	if !ok || tok.RevokedAt.Valid || !tok.ExpiresAt.Time.After(time.Now()) {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	return tok.UserID, nil
}

func (q *Queries) RevokeRefreshToken(_ context.Context, token string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}

	tok, ok := q.tokens[token]
	if ok {
		tok.RevokedAt = pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
		q.tokens[token] = tok
	}
	return nil
}

// InTx restores every table to its prior contents when fn fails.
func (q *Queries) InTx(_ context.Context, fn func(database.Accounts) error) error {
	q.mu.Lock()
	users, passwords, tokens := maps.Clone(q.users), maps.Clone(q.passwords), maps.Clone(q.tokens)
	q.mu.Unlock()

	if err := fn(q); err != nil {
		q.mu.Lock()
		q.users, q.passwords, q.tokens = users, passwords, tokens
		q.mu.Unlock()
		return err
	}
	return nil
}

// Username returns the stored display name of a user.
func (q *Queries) Username(userID [16]byte) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.users[userID].Username
}

// UserID returns a stable user id for fixtures.
func UserID(n byte) uuid.UUID {
	var id uuid.UUID
	id[0] = n
	id[6] = 0x40
	id[8] = 0x80
	id[15] = n
	return id
}
