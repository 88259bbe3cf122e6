/*
Package auth handles user identity: registration, login, and the JWT pair
(short-lived access token, long-lived refresh token) that protects the API.

Access and refresh tokens are signed with separate secrets, so a leaked
refresh secret cannot mint access tokens and vice versa. Claims carry the
user id, role and language; the HTTP middleware re-loads the user from the
store on every request, so a deleted user's still-valid token stops working
immediately.
*/
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	UserID   int64           `json:"user_id"`
	Role     ledger.Role     `json:"role"`
	Language ledger.Language `json:"language"`
	jwt.RegisteredClaims
}

// TokenPair is what login, registration and refresh return.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Manager signs and verifies token pairs.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssuePair mints a fresh access/refresh pair for the user.
func (m *Manager) IssuePair(u *ledger.User) (*TokenPair, error) {
	now := time.Now().UTC()
	access, err := m.sign(u, m.accessSecret, now, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(u, m.refreshSecret, now, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) sign(u *ledger.User, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   u.ID,
		Role:     u.Role,
		Language: u.Language,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, m.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, m.refreshSecret)
}

func (m *Manager) verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrPermissionDenied, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", ledger.ErrPermissionDenied)
	}
	return claims, nil
}
