package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kodbank/kodbank/config"
	"github.com/kodbank/kodbank/internal/api"
)

// Claims is the JWT payload: username as subject, a fixed role claim and
// the standard iat/exp timestamps.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies bearer tokens with a symmetric HS256 key.
// The key and lifetime come from config so tests can run with their own.
type TokenCodec struct {
	secretKey []byte
	lifetime  time.Duration
	issuer    string
}

func NewTokenCodec(cfg config.JWTConfig) (*TokenCodec, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is not configured")
	}
	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &TokenCodec{
		secretKey: []byte(cfg.SecretKey),
		lifetime:  lifetime,
		issuer:    cfg.Issuer,
	}, nil
}

// Lifetime returns the configured token lifetime.
func (c *TokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue builds and signs a token for the given username with
// exp = iat + lifetime.
func (c *TokenCodec) Issue(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, fmt.Errorf("username is required for token generation")
	}

	issuedAt := time.Now()
	expiresAt := issuedAt.Add(c.lifetime)

	claims := Claims{
		Role: RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature and expiry only; the session registry is the
// service's concern. No clock-skew leeway is applied.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %s", api.ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", api.ErrTokenInvalid)
		default:
			return nil, fmt.Errorf("%w: %s", api.ErrTokenInvalid, err)
		}
	}

	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", api.ErrTokenInvalid)
	}

	return claims, nil
}
