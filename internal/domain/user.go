package domain

import (
	"strings"
	"time"
)

// Role is the coarse authorization level carried by a session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the stored account record. Registration owns it; auth only reads it,
// except for linking a first-time external identity.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Location        string
	Role            Role
	Provider        string
	ProviderSubject string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeEmail produces the canonical lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
