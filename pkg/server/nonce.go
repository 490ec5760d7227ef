package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidNonce = errors.New("security check failed")

// NonceIssuer hands out short lived HS256 tokens bound to a widget id.
type NonceIssuer struct {
	secret []byte
	TTL    time.Duration
}

func NewNonceIssuer(secret string, ttl time.Duration) *NonceIssuer {
	return &NonceIssuer{secret: []byte(secret), TTL: ttl}
}

func (n *NonceIssuer) Issue(widgetId string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(n.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   widgetId,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(n.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify checks signature, expiry and that the token was issued for widgetId.
func (n *NonceIssuer) Verify(nonce, widgetId string) error {
	if nonce == "" {
		return fmt.Errorf("%w: missing nonce", ErrInvalidNonce)
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(nonce, claims, func(token *jwt.Token) (interface{}, error) {
		return n.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if !token.Valid {
		return ErrInvalidNonce
	}
	if claims.Subject != widgetId {
		return fmt.Errorf("%w: nonce issued for another widget", ErrInvalidNonce)
	}
	return nil
}
