package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Accounts is the user, password and refresh token side of the schema.
type Accounts interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	CreatePassword(ctx context.Context, arg CreatePasswordParams) (Password, error)
	GetUserById(ctx context.Context, userID pgtype.UUID) (User, error)
	GetUserWithPasswordByEmail(ctx context.Context, email string) (GetUserWithPasswordByEmailRow, error)
	UpdateUsername(ctx context.Context, arg UpdateUsernameParams) (User, error)
	CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) (RefreshToken, error)
	GetUserFromRefreshTok(ctx context.Context, token string) (pgtype.UUID, error)
	RevokeRefreshToken(ctx context.Context, token string) error

	// InTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise, returning fn's error unchanged.
	InTx(ctx context.Context, fn func(Accounts) error) error
}

// PoolAccounts runs Accounts queries on a connection pool.
type PoolAccounts struct {
	*Queries
	pool *pgxpool.Pool
}

var _ Accounts = (*PoolAccounts)(nil)

func NewPoolAccounts(pool *pgxpool.Pool) *PoolAccounts {
	return &PoolAccounts{Queries: New(pool), pool: pool}
}

func (a *PoolAccounts) InTx(ctx context.Context, fn func(Accounts) error) error {
	// Already inside a transaction.
	if a.pool == nil {
		return fn(a)
	}
	return pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&PoolAccounts{Queries: a.Queries.WithTx(tx)})
	})
}
