package models

import "time"

// TokenType is the closed set of token kinds. Behavior differences between
// the two kinds (abilities shape, parent linkage, endpoint matching) are
// expressed as functions of this tag; there is no subtyping.
type TokenType string

const (
	TokenTypeAuth    TokenType = "auth"
	TokenTypeRefresh TokenType = "refresh"
)

// RefreshTokenAbility is the single ability every refresh token carries.
// It allows the token to be used only for rotating its pair.
const RefreshTokenAbility = "refresh-auth-token"

// TokenRecord is a persisted access or refresh token. Only the SHA-256 hash
// of the secret is stored; the plaintext exists once, at creation time, as
// "<id>|<secret>".
//
// Pairing is a self-referential link: a refresh record points at its auth
// record through ParentTokenID, and an auth record has at most one child
// refresh record. Deleting either half cascades to the other.
type TokenRecord struct {
	ID            int64
	UserID        int64
	TokenHash     string
	Type          TokenType
	Abilities     []string
	ParentTokenID *int64
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *TokenRecord) IsAuth() bool {
	return t.Type == TokenTypeAuth
}

func (t *TokenRecord) IsRefresh() bool {
	return t.Type == TokenTypeRefresh
}

// Expired reports whether the record's expiry has passed. A nil ExpiresAt
// means the token never expires.
func (t *TokenRecord) Expired() bool {
	return t.ExpiresAt != nil && !time.Now().Before(*t.ExpiresAt)
}

// Can reports whether the token grants the given ability. The "*" ability
// grants everything.
func (t *TokenRecord) Can(ability string) bool {
	for _, a := range t.Abilities {
		if a == "*" || a == ability {
			return true
		}
	}
	return false
}
