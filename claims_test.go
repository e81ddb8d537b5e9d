package accounts_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionClaims_UserID(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, id, (&accounts.SessionClaims{UID: id.String()}).UserID())
	assert.Equal(t, uuid.Nil, (&accounts.SessionClaims{UID: "not-a-uuid"}).UserID())
	assert.Equal(t, uuid.Nil, (&accounts.SessionClaims{}).UserID())
}

func TestSessionClaims_Role(t *testing.T) {
	admin := &accounts.SessionClaims{UserRole: accounts.RoleAdmin}
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, accounts.RoleAdmin, admin.Role())

	standard := &accounts.SessionClaims{UserRole: accounts.RoleStandard}
	assert.False(t, standard.IsAdmin())
}

func TestSessionClaims_Times(t *testing.T) {
	empty := &accounts.SessionClaims{}
	assert.True(t, empty.IssuedAt().IsZero())
	assert.True(t, empty.Expires().IsZero())

	now := time.Now().Truncate(time.Second)
	claims := &accounts.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	assert.WithinDuration(t, now, claims.IssuedAt(), time.Second)
	assert.WithinDuration(t, now.Add(time.Hour), claims.Expires(), time.Second)
}
