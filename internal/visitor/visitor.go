// Package visitor issues and verifies the signed cookie that identifies a
// browser across requests.
package visitor

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the signed visitor id.
const CookieName = "visitor"

const issuer = "visa-portal"

var (
	// ErrInvalid covers bad signatures, wrong algorithms and expired tokens.
	ErrInvalid = errors.New("invalid visitor token")
	// ErrMalformed is returned when the token verifies but lacks a usable id.
	ErrMalformed = errors.New("malformed visitor token")
)

// Signer signs visitor ids with HS256.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a signer. ttl bounds how long one cookie stays valid.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("cookie secret must be at least 16 bytes")
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the cookie lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// NewID returns a fresh visitor id.
func NewID() string {
	return uuid.NewString()
}

// Issue signs id.
func (s *Signer) Issue(id string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies token and returns the visitor id it carries.
func (s *Signer) Parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return "", ErrInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}
