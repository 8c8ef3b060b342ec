package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gocache "github.com/patrickmn/go-cache"

	"github.com/kodbank/kodbank/internal/api"
)

var _ AuthRepo = (*AuthRepoFactory)(nil)

// PGXDB is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PGXDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AuthRepo persists user accounts and the session-token registry.
type AuthRepo interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	StoreToken(ctx context.Context, token, uid string, expiresAt time.Time) error
	TokenExists(ctx context.Context, token string) (bool, error)
	DeleteUser(ctx context.Context, uid string) error
}

const uniqueViolationCode = "23505"

type AuthRepoFactory struct {
	logger *slog.Logger
	db     PGXDB
	// registryCache fronts the token-existence SELECT. Entries expire with
	// the token; DeleteUser flushes everything so revocation is immediate
	// within this process.
	registryCache *gocache.Cache
}

func NewAuthRepoFactory(db PGXDB, logger *slog.Logger) *AuthRepoFactory {
	return &AuthRepoFactory{
		logger:        logger,
		db:            db,
		registryCache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// CreateUser inserts a new account. Uniqueness of username and email is
// enforced by the table constraints; the duplicate-key rejection is the
// authoritative conflict signal, there is no check-then-insert pre-check.
func (r *AuthRepoFactory) CreateUser(ctx context.Context, user *User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (uid, username, email, password_hash, balance, phone, role, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		user.UID, user.Username, user.Email, user.PasswordHash, user.Balance, user.Phone, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: username or email already exists", api.ErrConflict)
		}
		return fmt.Errorf("create user: db insert failed: %w", err)
	}
	return nil
}

func (r *AuthRepoFactory) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx,
		`SELECT uid, username, email, password_hash, balance, phone, role, created_at
         FROM users WHERE username = $1`,
		username).Scan(&user.UID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Balance, &user.Phone, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q", api.ErrNotFound, username)
		}
		return nil, fmt.Errorf("get user by username: query failed: %w", err)
	}
	return &user, nil
}

// StoreToken appends a token record to the registry. Multiple concurrent
// sessions per user are allowed, so there is no dedup.
func (r *AuthRepoFactory) StoreToken(ctx context.Context, token, uid string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_tokens (uid, token, expires_at) VALUES ($1, $2, $3)`,
		uid, token, expiresAt)
	if err != nil {
		return fmt.Errorf("store token: db insert failed: %w", err)
	}
	r.registryCache.Set(token, struct{}{}, time.Until(expiresAt))
	return nil
}

// TokenExists is the registry gate consulted after cryptographic
// verification. A token absent from the registry is treated as revoked.
func (r *AuthRepoFactory) TokenExists(ctx context.Context, token string) (bool, error) {
	if _, found := r.registryCache.Get(token); found {
		return true, nil
	}

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_tokens WHERE token = $1)`,
		token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("token exists: query failed: %w", err)
	}
	return exists, nil
}

// DeleteUser removes the account row; the user_tokens FK cascade removes
// every session record in the same statement, so there is no window where
// a deleted user's token is still honored.
func (r *AuthRepoFactory) DeleteUser(ctx context.Context, uid string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete user: db delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %q", api.ErrNotFound, uid)
	}
	// The cache is not keyed by uid, flush it all rather than serve a
	// stale positive for a revoked session.
	r.registryCache.Flush()
	return nil
}
