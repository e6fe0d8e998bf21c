package entities

import (
	"time"
)

// Role identifies the kind of authenticated principal.
type Role string

const (
	// RoleUser is a consumer browsing and comparing prices
	RoleUser Role = "user"

	// RoleOwner is a shopkeeper managing inventory listings
	RoleOwner Role = "owner"
)

// Principal represents an authenticated identity, either a consumer or a
// shop owner. A nil *Principal means "not logged in as that role".
type Principal struct {
	Role      Role      `json:"role"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	LastLogin time.Time `json:"last_login,omitzero"`
}

// SessionState is the derived view of "who is logged in, as what role".
// A browser may hold both a user and an owner session at once; the two
// fields are independent. While Loading is true both principals keep their
// last resolved values.
type SessionState struct {
	User    *Principal `json:"user"`
	Owner   *Principal `json:"owner"`
	Loading bool       `json:"loading"`
	Err     error      `json:"-"`
}

// IsAuthenticated reports whether any role is logged in
func (s SessionState) IsAuthenticated() bool {
	return s.User != nil || s.Owner != nil
}

// CanManageShop reports whether the session may use owner-scoped operations.
// Callers must re-check on every request; the decision is never cached.
func (s SessionState) CanManageShop() bool {
	return s.Owner != nil
}
