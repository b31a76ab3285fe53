package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims a JWTSource inspects.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// Expired reports whether the token expires within leeway of now.
func (c Claims) Expired(now time.Time, leeway time.Duration) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt.Add(-leeway))
}

// ParseClaims reads the registered claims of token without verifying its signature.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var c Claims
	c.Subject, _ = claims.GetSubject()
	c.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// JWTConfig configures a JWTSource.
type JWTConfig struct {
	// Source yields the raw token. Required.
	Source TokenSource

	// Secret, when set, verifies HS256/HS384/HS512 signatures before use.
	Secret string

	// Leeway is how long before its exp a cached token is re-read from Source.
	// Default: 30s
	Leeway time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// JWTSource hands out a JWT while it is valid. The token is re-read from
// Source once the cached one comes within Leeway of its expiry.
type JWTSource struct {
	config JWTConfig
	logger *slog.Logger

	mu     sync.Mutex
	token  string
	claims Claims
}

// NewJWTSource creates a JWTSource.
func NewJWTSource(config JWTConfig) *JWTSource {
	if config.Leeway <= 0 {
		config.Leeway = 30 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &JWTSource{
		config: config,
		logger: slog.Default().With("component", "jwt-source"),
	}
}

// Token implements TokenSource.
func (s *JWTSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Now()
	if s.token != "" && !s.claims.Expired(now, s.config.Leeway) {
		return s.token, nil
	}
	if s.config.Source == nil {
		return "", ErrMissingToken
	}

	token, err := s.config.Source.Token(ctx)
	if err != nil {
		return "", err
	}

	claims, err := s.parse(token)
	if err != nil {
		s.logger.Debug("rejecting token", "error", err)
		return "", err
	}
	// A fresh token close to expiry is still usable; it is just not reused.
	if claims.Expired(now, 0) {
		return "", fmt.Errorf("%w at %s", ErrExpiredToken, claims.ExpiresAt.Format(time.RFC3339))
	}

	s.token, s.claims = token, claims
	return token, nil
}

// Claims returns the claims of the cached token.
func (s *JWTSource) Claims() Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

func (s *JWTSource) parse(token string) (Claims, error) {
	if s.config.Secret == "" {
		return ParseClaims(token)
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		switch t.Method.Alg() {
		case "HS256", "HS384", "HS512":
			return []byte(s.config.Secret), nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, t.Method.Alg())
		}
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return ParseClaims(token)
}

// IsJWT reports whether token has the shape of a compact JWS.
func IsJWT(token string) bool {
	return strings.HasPrefix(token, "eyJ") && strings.Count(token, ".") == 2
}
