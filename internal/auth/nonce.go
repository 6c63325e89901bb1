package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AjaxNonceAction is the action every storefront AJAX nonce is issued for.
const AjaxNonceAction = "wcpe-ajax-nonce"

// ErrInvalidNonce covers missing, malformed, expired and foreign nonces alike.
var ErrInvalidNonce = errors.New("invalid or expired nonce")

// NonceClaims bind an anti-forgery token to one session and one action.
type NonceClaims struct {
	SessionID string `json:"sid"`
	Action    string `json:"act"`
	jwt.RegisteredClaims
}

// INonceManager issues and checks anti-forgery tokens.
type INonceManager interface {
	Generate(sessionID, action string) (string, error)
	Verify(token, sessionID, action string) error
}

type nonceManager struct {
	secret string
	ttl    time.Duration
}

// NewNonceManager creates a manager signing nonces with secret.
func NewNonceManager(secret string, ttl time.Duration) INonceManager {
	return &nonceManager{secret: secret, ttl: ttl}
}

func (m *nonceManager) Generate(sessionID, action string) (string, error) {
	now := time.Now()
	claims := &NonceClaims{
		SessionID: sessionID,
		Action:    action,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "wcpe",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign nonce: %w", err)
	}
	return token, nil
}

// Verify accepts the token only for the session and action it was issued for.
func (m *nonceManager) Verify(token, sessionID, action string) error {
	if token == "" {
		return ErrInvalidNonce
	}
	claims := &NonceClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, hmacKey(m.secret))
	if err != nil || !parsed.Valid {
		return ErrInvalidNonce
	}
	if claims.SessionID != sessionID || claims.Action != action {
		return ErrInvalidNonce
	}
	return nil
}
