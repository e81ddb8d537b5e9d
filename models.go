package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the user's role
type Role string

const (
	// RoleStandard is the role every signup starts with
	RoleStandard Role = "standard"
	// RoleAdmin may change other users' roles and manage users
	RoleAdmin Role = "admin"
)

// TokenType tells what a token may be redeemed for
type TokenType string

const (
	// TokenVerification confirms ownership of the signup email
	TokenVerification TokenType = "verification"
	// TokenPasswordReset authorizes a single password change
	TokenPasswordReset TokenType = "password_reset"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Name          string     `bun:"name,notnull" json:"name"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          Role       `bun:"role,notnull" json:"role"`
	Verified      bool       `bun:"verified,notnull" json:"verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Token is a single use secret owned by a user
type Token struct {
	bun.BaseModel `bun:"table:tokens,alias:tkn"`
	Token         string    `bun:"token,pk" json:"-"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Type          TokenType `bun:"type,notnull" json:"type"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
