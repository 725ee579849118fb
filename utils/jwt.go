package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or foreign session tokens.
var ErrInvalidToken = errors.New("invalid session token")

// sessionClaims carries only the server-side session id; everything else lives in the Store.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// signSessionToken issues an HS256 token bound to a session id.
func signSessionToken(secret []byte, sessionID string, now time.Time, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseSessionToken validates a token and returns the session id it carries.
func parseSessionToken(secret []byte, tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
