// Package auth guards write operations with the configured shared secret.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "imageshare"

// MinTTL is the shortest lifetime a token may be issued with.
const MinTTL = time.Second

// ErrInvalidTTL is returned when a token is requested with a lifetime under MinTTL.
var ErrInvalidTTL = errors.New("token ttl must be at least 1s")

// Gate compares presented credentials against the shared secret.
type Gate struct {
	secret []byte
}

// NewGate creates a Gate for the given secret.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authorize reports whether credential is present and equals the secret exactly.
func (g *Gate) Authorize(credential string) bool {
	if credential == "" || len(g.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), g.secret) == 1
}

// IssueToken creates an HS256 JWT signed with the secret, valid for ttl.
func (g *Gate) IssueToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl < MinTTL {
		return "", time.Time{}, ErrInvalidTTL
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// AuthorizeBearer validates a token issued by IssueToken and returns its subject.
func (g *Gate) AuthorizeBearer(token string) (string, bool) {
	if token == "" || len(g.secret) == 0 {
		return "", false
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	return claims.Subject, true
}
