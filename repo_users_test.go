package accounts_test

import (
	"testing"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepository_CreateAndLookup(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx()

	created, err := h.users.Create(ctx, &accounts.User{
		Username:     "  al ",
		Email:        " A@X.com ",
		Name:         "Al",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "al", created.Username)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, accounts.RoleStandard, created.Role)
	assert.False(t, created.Verified)

	byID, err := h.users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	byEmail, err := h.users.GetByEmail(ctx, "a@X.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	for _, identifier := range []string{"al", "A@x.com", created.ID.String()} {
		found, err := h.users.GetByIdentifier(ctx, identifier)
		require.NoError(t, err, identifier)
		assert.Equal(t, created.ID, found.ID, identifier)
	}

	_, err = h.users.GetByIdentifier(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, accounts.IsRecordNotFound(err))

	_, err = h.users.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, accounts.IsRecordNotFound(err))
}

func TestUsersRepository_UniqueViolation(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx()

	_, err := h.users.Create(ctx, &accounts.User{Username: "al", Email: "a@x.com", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = h.users.Create(ctx, &accounts.User{Username: "al", Email: "other@x.com", PasswordHash: "x"})
	require.Error(t, err)
	assert.True(t, accounts.IsUniqueViolation(err))
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryConflict))

	_, err = h.users.Create(ctx, &accounts.User{Username: "other", Email: "A@X.COM", PasswordHash: "x"})
	require.Error(t, err)
	assert.True(t, accounts.HasTextCode(err, accounts.TextCodeUniqueViolation))
}

func TestUsersRepository_SetAttributes(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx()

	user, err := h.users.Create(ctx, &accounts.User{Username: "al", Email: "a@x.com", PasswordHash: "x"})
	require.NoError(t, err)

	verified := true
	name := "Albert"
	updated, err := h.users.SetAttributes(ctx, user.ID, accounts.UserAttributes{
		Verified: &verified,
		Name:     &name,
	})
	require.NoError(t, err)
	assert.True(t, updated.Verified)
	assert.Equal(t, "Albert", updated.Name)
	assert.Equal(t, "al", updated.Username)

	unchanged, err := h.users.SetAttributes(ctx, user.ID, accounts.UserAttributes{})
	require.NoError(t, err)
	assert.Equal(t, "Albert", unchanged.Name)

	_, err = h.users.SetAttributes(ctx, uuid.New(), accounts.UserAttributes{Name: &name})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestUsersRepository_FindAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx()

	a, err := h.users.Create(ctx, &accounts.User{Username: "a", Email: "a@x.com", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = h.users.Create(ctx, &accounts.User{Username: "b", Email: "b@x.com", PasswordHash: "x", Role: accounts.RoleAdmin})
	require.NoError(t, err)

	all, err := h.users.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	admins, err := h.users.Find(ctx, accounts.UserFilter{Role: accounts.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "b", admins[0].Username)

	unverified := false
	pending, err := h.users.Find(ctx, accounts.UserFilter{Verified: &unverified})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, h.users.Delete(ctx, a.ID))

	err = h.users.Delete(ctx, a.ID)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}
