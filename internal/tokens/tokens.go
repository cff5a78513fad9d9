package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSessionToken is returned for cookie values that fail signature,
// algorithm or expiry checks.
var ErrInvalidSessionToken = errors.New("invalid session token")

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignSessionID returns the cookie value for a session: an HS256 JWT that
// carries the opaque session id and expires with the session.
func SignSessionID(secret, sessionID string, expiresAt time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("session secret is empty")
	}
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseSessionID verifies a cookie value produced by SignSessionID and returns
// the session id it carries.
func ParseSessionID(secret, raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidSessionToken
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	// unbounded cookies are never issued
	if claims.ExpiresAt == nil || claims.SessionID == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.SessionID, nil
}

// RandomToken returns n bytes of crypto/rand entropy, hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
