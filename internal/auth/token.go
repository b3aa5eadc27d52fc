// Package auth implements bearer-token verification for the generation
// gateway. Credentials are HS256-signed JWTs carrying a subject claim that
// doubles as the quota identity. Verification deliberately collapses every
// failure mode (bad signature, expired, malformed, missing subject) into a
// single error so clients cannot distinguish why a token was rejected.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that does not verify. No
// sub-detail is exposed.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier validates bearer credentials against a symmetric secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for tokens signed with the given secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a raw token string and returns the subject
// claim as the caller's identity. It is a pure function of the credential,
// the secret, and the current time.
func (v *Verifier) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// Minter issues signed tokens. It backs the debug-only token endpoint and
// the test suites; production credentials come from an external issuer.
type Minter struct {
	secret []byte
	ttl    time.Duration
}

// NewMinter creates a minter that signs tokens with the given secret and
// lifetime.
func NewMinter(secret string, ttl time.Duration) *Minter {
	return &Minter{secret: []byte(secret), ttl: ttl}
}

// Mint creates a signed token whose subject is the given user ID.
func (m *Minter) Mint(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
