package auth

import (
	"fmt"
	"strings"

	"storefront/internal/domain"
)

// AllowList is the fixed set of admin email addresses.
type AllowList struct {
	emails map[string]struct{}
}

func NewAllowList(emails []string) AllowList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return AllowList{emails: set}
}

// Contains is an exact, case-insensitive match.
func (a AllowList) Contains(email string) bool {
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Len is the number of allowed addresses.
func (a AllowList) Len() int { return len(a.emails) }

// Gate is the authoritative admin check: verify the token, then check the
// allow-list.
type Gate struct {
	tokens *Issuer
	admins AllowList
}

func NewGate(tokens *Issuer, admins AllowList) *Gate {
	return &Gate{tokens: tokens, admins: admins}
}

// Authorize returns the identity when raw is valid and allow-listed.
// Errors wrap domain.ErrInvalidToken or domain.ErrForbidden.
func (g *Gate) Authorize(raw string) (Identity, error) {
	id, err := g.tokens.Verify(raw)
	if err != nil {
		return Identity{}, err
	}
	if !g.admins.Contains(id.Email) {
		return id, fmt.Errorf("%w: %s is not an admin", domain.ErrForbidden, id.Email)
	}
	return id, nil
}
