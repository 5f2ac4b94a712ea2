// Package models defines the server-side domain types: account records,
// one-time tokens, and the change set accumulated by a patch.
package models

import "time"

// Role is the account privilege level.
type Role string

const (
	RoleBasic         Role = "basic"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

// KnownRoles lists every role an account may hold.
var KnownRoles = []Role{RoleBasic, RoleModerator, RoleAdministrator}

// IsKnown reports whether r is one of the defined roles.
func (r Role) IsKnown() bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// User is a full account record as stored. PasswordHash must never leave the
// process; use Public for any outward-facing representation.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	Signature      string
	Color          string
	EmailConfirmed bool
	CreatedAt      time.Time
}

// PublicUser is the sanitized view of an account record. It carries no
// password hash field at all, so no marshalling path can leak it.
type PublicUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	Signature      string    `json:"signature"`
	Color          string    `json:"color"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	CreatedAt      time.Time `json:"timestamp"`
}

// Public returns the sanitized view of the record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Role:           u.Role,
		Signature:      u.Signature,
		Color:          u.Color,
		EmailConfirmed: u.EmailConfirmed,
		CreatedAt:      u.CreatedAt,
	}
}
