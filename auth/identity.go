package auth

import (
	"slices"
	"time"
)

// Identity is the principal behind a verified token.
type Identity struct {
	// Principal is the subject, e.g. a user id or service name.
	Principal string

	// Roles are read from the configured roles claim.
	Roles []string

	// Claims contains the raw claims from the token.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}
