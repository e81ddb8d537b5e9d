package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the fixed claim schema of a session credential
type SessionClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid"`
	Username string `json:"username"`
	UserRole Role   `json:"role"`
}

// UserID returns the parsed uid claim, uuid.Nil if malformed
func (c *SessionClaims) UserID() uuid.UUID {
	id, err := uuid.Parse(c.UID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (c *SessionClaims) Role() Role {
	return c.UserRole
}

func (c *SessionClaims) IsAdmin() bool {
	return c.UserRole == RoleAdmin
}

func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// CredentialAttributes lists the identity fields a credential can be
// re-signed with. Nil fields keep their current value.
type CredentialAttributes struct {
	Username *string
	Role     *Role
}

func (c *SessionClaims) validShape() bool {
	if _, err := uuid.Parse(c.UID); err != nil {
		return false
	}
	if c.Username == "" {
		return false
	}
	return c.UserRole.IsValid()
}

func (c *SessionClaims) clone() *SessionClaims {
	out := *c
	if len(c.Audience) > 0 {
		out.Audience = make(jwt.ClaimStrings, len(c.Audience))
		copy(out.Audience, c.Audience)
	}
	return &out
}
