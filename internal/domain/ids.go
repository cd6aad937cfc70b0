package domain

import "github.com/google/uuid"

// ParseID returns the canonical form of a UUID primary key. A malformed id
// cannot match any row, so it reports ErrNotFound.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}
	return u.String(), nil
}
