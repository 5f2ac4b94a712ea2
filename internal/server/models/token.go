package models

import "time"

// TokenKind names the single operation a one-time token unlocks.
type TokenKind string

const (
	TokenPasswordUpdate       TokenKind = "password:update"
	TokenEmailConfirmedUpdate TokenKind = "emailConfirmed:update"
)

// IsKnown reports whether k is one of the defined token kinds.
func (k TokenKind) IsKnown() bool {
	return k == TokenPasswordUpdate || k == TokenEmailConfirmedUpdate
}

// Token is a single-use credential scoped to one account and one operation
// kind. A token whose user id or kind does not match the request target is
// treated as absent.
type Token struct {
	ID        string
	UserID    string
	Kind      TokenKind
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PublicToken is the outward-facing view of an issued token.
type PublicToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      TokenKind `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Public returns the sanitized view of the token.
func (t *Token) Public() *PublicToken {
	return &PublicToken{ID: t.ID, UserID: t.UserID, Kind: t.Kind, ExpiresAt: t.ExpiresAt}
}
