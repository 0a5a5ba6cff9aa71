// Package auth issues and verifies the HS256 bearer tokens used by the
// HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecomtrust/kestrel/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Manager issues and verifies API tokens. A static API key is accepted as
// an alternative to a bearer token for service-to-service callers.
type Manager struct {
	secret   []byte
	admin    string
	apiKey   string
	tokenTTL time.Duration
	now      func() time.Time
}

// NewManager creates a token manager from configuration.
func NewManager(cfg domain.AuthConfig) *Manager {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		admin:    cfg.AdminSecret,
		apiKey:   cfg.APIKey,
		tokenTTL: ttl,
		now:      time.Now,
	}
}

// WithClock overrides the clock. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// IssueToken exchanges the admin secret for a signed token.
func (m *Manager) IssueToken(adminSecret string) (string, time.Time, error) {
	if adminSecret == "" || adminSecret != m.admin {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken validates a signed token and returns its subject.
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// VerifyAPIKey reports whether a static API key is valid.
func (m *Manager) VerifyAPIKey(key string) bool {
	return key != "" && key == m.apiKey
}
