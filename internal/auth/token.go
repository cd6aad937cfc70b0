// Package auth issues and verifies identity tokens and holds the admin allow-list.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified subject of a token.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer. An empty secret makes every call fail with
// domain.ErrNotConfigured.
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// TTL reports the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for uid/email.
func (i *Issuer) Issue(uid, email string) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("auth: %w", domain.ErrNotConfigured)
	}
	now := i.now()
	c := claims{
		Email: strings.ToLower(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

// Verify checks signature, issuer and expiry. Any failure is reported as
// domain.ErrInvalidToken.
func (i *Issuer) Verify(raw string) (Identity, error) {
	if len(i.secret) == 0 {
		return Identity{}, fmt.Errorf("auth: %w", domain.ErrNotConfigured)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: empty", domain.ErrInvalidToken)
	}

	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithLeeway(i.leeway),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if c.Subject == "" || c.Email == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return Identity{UID: c.Subject, Email: c.Email}, nil
}
