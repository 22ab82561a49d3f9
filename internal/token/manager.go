// Package token mints and verifies the access tokens that carry the user's
// verification level. A fresh token is minted on every tier change so
// downstream authorization sees the new tier without a re-login.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bandhan-service/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims embedded in every access token.
type Claims struct {
	UserID            string `json:"user_id"`
	PhoneHash         string `json:"phone_hash"`
	VerificationLevel int    `json:"verification_level"`
	jwt.RegisteredClaims
}

// Manager signs and parses access tokens with an HS256 secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		secret: []byte(cfg.JWT.Secret),
		ttl:    cfg.JWT.TTL,
		issuer: cfg.JWT.Issuer,
	}
}

// Mint issues a token for the user embedding the current verification level.
func (m *Manager) Mint(userID, phoneHash string, verificationLevel int) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	claims := &Claims{
		UserID:            userID,
		PhoneHash:         phoneHash,
		VerificationLevel: verificationLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, exp, err
}

// Verify parses and validates a token, returning its claims.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
