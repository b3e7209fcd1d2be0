package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the coarse account type stored on every user record.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

// ParseRole converts a stored or submitted value into a Role.
// Unknown values are rejected rather than mapped to a default.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleOwner, RoleManager, RoleAgent:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsAdministrative reports whether the role alone grants full access when
// the user has no position assigned.
func (r Role) IsAdministrative() bool {
	switch r {
	case RoleAdmin, RoleOwner:
		return true
	case RoleManager, RoleAgent:
		return false
	default:
		return false
	}
}

// User models a CRM account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	PositionID   *string   `json:"position_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanAuthenticate reports whether the account may log in at all.
func (u *User) CanAuthenticate() bool {
	return u != nil && u.IsActive && u.PasswordHash != ""
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile is the public projection of a user returned by the API.
type Profile struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	FullName string           `json:"full_name"`
	Role     Role             `json:"role"`
	Position *PositionSummary `json:"position"`
}

// NewProfile builds the public view of u. position may be nil.
func NewProfile(u *User, position *Position) Profile {
	p := Profile{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
	if position != nil {
		s := position.Summary()
		p.Position = &s
	}
	return p
}
