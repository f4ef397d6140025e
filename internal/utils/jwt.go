package utils // package utils provides helpers for password hashing and session tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are carried by the signed session cookie. Only SessionID is
// trusted for lookups; the other claims let a stale cookie be matched to its
// role slot without consulting the store.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// NewSessionToken signs an HS256 JWT binding a server-side session id to a
// user and role. The token expires with the session.
func NewSessionToken(secret, sessionID, userID, role string, issued, exp time.Time) (string, error) {
	claims := SessionClaims{
		SessionID: sessionID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// tokenLeeway keeps a just-expired token readable long enough for the
// server-side session to be found and reported as expired.
const tokenLeeway = time.Minute

// ParseSessionToken verifies the signature and expiry of raw and returns its
// claims. Tokens signed with any other algorithm are rejected.
func ParseSessionToken(secret, raw string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithLeeway(tokenLeeway))
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// NewSessionID returns 256 bits of randomness, URL-safe base64 encoded.
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
