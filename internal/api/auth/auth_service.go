package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kodbank/kodbank/config"
	"github.com/kodbank/kodbank/internal/api"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService orchestrates credential verification and the session-token
// lifecycle.
type AuthService interface {
	// Register creates a new account with the configured initial balance.
	// Registration never issues a token; login is a separate step.
	Register(ctx context.Context, uid, username, password, email, phone string) error

	// Login verifies credentials, issues a signed token and records it in
	// the session registry. The token is only returned once it is stored.
	Login(ctx context.Context, username, password string) (string, error)

	// VerifyRequestToken validates a bearer token presented on a protected
	// request and returns the owning username.
	VerifyRequestToken(ctx context.Context, token string) (string, error)

	// DeleteUser removes an account by username; the registry cascade
	// revokes all of the user's sessions atomically.
	DeleteUser(ctx context.Context, username string) error
}

// dummyHash is compared against when the user does not exist, so login
// timing does not reveal whether a username is registered.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	codec  *TokenCodec
	hasher PasswordHasher
	cfg    config.BankConfig
}

func NewAuthService(repo AuthRepo, codec *TokenCodec, hasher PasswordHasher, cfg config.BankConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		codec:  codec,
		hasher: hasher,
		cfg:    cfg,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, uid, username, password, email, phone string) error {
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", username))

	req := RegisterRequest{UID: uid, Uname: username, Password: password, Email: email, Phone: phone}
	if err := req.Validate(); err != nil {
		l.WarnContext(ctx, "Registration validation failed", slog.Any("error", err))
		return fmt.Errorf("%w: %s", api.ErrValidation, err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		l.ErrorContext(ctx, "Password hashing failed", slog.Any("error", err))
		return fmt.Errorf("%w: hashing password: %s", api.ErrInternal, err)
	}

	user := &User{
		UID:          uid,
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Balance:      s.cfg.InitialBalance,
		Phone:        phone,
		Role:         RoleCustomer,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, api.ErrConflict) {
			l.WarnContext(ctx, "Registration rejected, duplicate username or email")
			return err
		}
		l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		return fmt.Errorf("%w: creating user: %s", api.ErrInternal, err)
	}

	l.InfoContext(ctx, "User registered")
	return nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))

	req := LoginRequest{Username: username, Password: password}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s", api.ErrValidation, err)
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Burn the same bcrypt cost as the real comparison; absent
			// user and wrong password are indistinguishable to the caller.
			s.hasher.Verify(password, dummyHash)
			l.WarnContext(ctx, "Login failed, unknown user")
			return "", fmt.Errorf("%w", api.ErrUnauthenticated)
		}
		l.ErrorContext(ctx, "Login lookup failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: fetching user: %s", api.ErrInternal, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		l.WarnContext(ctx, "Login failed, bad password")
		return "", fmt.Errorf("%w", api.ErrUnauthenticated)
	}

	token, expiresAt, err := s.codec.Issue(user.Username)
	if err != nil {
		l.ErrorContext(ctx, "Token issuance failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: issuing token: %s", api.ErrInternal, err)
	}

	// All-or-nothing: the token is not handed out unless the registry
	// insert succeeded.
	if err := s.repo.StoreToken(ctx, token, user.UID, expiresAt); err != nil {
		l.ErrorContext(ctx, "Failed to store session token", slog.Any("error", err))
		return "", fmt.Errorf("%w: storing token: %s", api.ErrInternal, err)
	}

	l.InfoContext(ctx, "Login successful")
	return token, nil
}

func (s *AuthServiceImpl) VerifyRequestToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w", api.ErrTokenMissing)
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		return "", err
	}

	if s.cfg.EnforceRegistryOnRequest {
		exists, err := s.repo.TokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("%w: checking registry: %s", api.ErrInternal, err)
		}
		if !exists {
			// Valid signature but no registry record: revoked.
			return "", fmt.Errorf("%w: token revoked", api.ErrTokenInvalid)
		}
	}

	return claims.Subject, nil
}

func (s *AuthServiceImpl) DeleteUser(ctx context.Context, username string) error {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: fetching user: %s", api.ErrInternal, err)
	}

	if err := s.repo.DeleteUser(ctx, user.UID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return err
		}
		s.logger.ErrorContext(ctx, "User deletion failed", slog.String("uid", user.UID), slog.Any("error", err))
		return fmt.Errorf("%w: deleting user: %s", api.ErrInternal, err)
	}
	s.logger.InfoContext(ctx, "User deleted, sessions revoked", slog.String("uid", user.UID))
	return nil
}
