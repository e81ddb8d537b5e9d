package accounts_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func rolePtr(r accounts.Role) *accounts.Role { return &r }

func TestUpdateUser_SelfProfile(t *testing.T) {
	h := newHarness(t)
	user, _ := h.signup(t, "al", "a@x.com", "p")
	claims := h.claims(t, h.login(t, "al", "p").Credential)

	res, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   claims,
		TargetID: user.ID,
		Patch: accounts.UserPatch{SelfPatch: accounts.SelfPatch{
			Name:  strPtr("Albert"),
			Email: strPtr("Albert@X.com"),
		}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Credential, "no identity claim changed")
	assert.Equal(t, "Albert", res.User.Name)
	assert.Equal(t, "albert@x.com", res.User.Email)
	assert.Contains(t, h.sink.Types(), accounts.ActivityEventUserUpdated)
}

func TestUpdateUser_UsernameRefreshesCredential(t *testing.T) {
	h := newHarness(t)
	user, _ := h.signup(t, "al", "a@x.com", "p")
	claims := h.claims(t, h.login(t, "al", "p").Credential)

	res, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   claims,
		TargetID: user.ID,
		Patch:    accounts.UserPatch{SelfPatch: accounts.SelfPatch{Username: strPtr("alice")}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Credential)

	refreshed := h.claims(t, res.Credential)
	assert.Equal(t, "alice", refreshed.Username)
	assert.Equal(t, user.ID, refreshed.UserID())

	h.login(t, "alice", "p")
}

func TestUpdateUser_Password(t *testing.T) {
	h := newHarness(t)
	user, _ := h.signup(t, "al", "a@x.com", "p")
	claims := h.claims(t, h.login(t, "al", "p").Credential)

	_, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   claims,
		TargetID: user.ID,
		Patch:    accounts.UserPatch{SelfPatch: accounts.SelfPatch{Password: strPtr("changed")}},
	})
	require.NoError(t, err)

	_, err = h.coord.Auth.Login(h.ctx(), accounts.LoginMessage{Identifier: "al", Password: "p"})
	require.Error(t, err)
	h.login(t, "al", "changed")
}

func TestUpdateUser_Gating(t *testing.T) {
	h := newHarness(t)
	al, _ := h.signup(t, "al", "a@x.com", "p")
	bo, _ := h.signup(t, "bo", "b@x.com", "p")
	h.makeAdmin(t, bo.ID)

	alClaims := h.claims(t, h.login(t, "al", "p").Credential)
	boClaims := h.claims(t, h.login(t, "bo", "p").Credential)

	tests := []struct {
		name   string
		claims *accounts.SessionClaims
		target *accounts.User
		patch  accounts.UserPatch
	}{
		{
			name:   "standard user changes own role",
			claims: alClaims,
			target: al,
			patch:  accounts.UserPatch{Role: rolePtr(accounts.RoleAdmin)},
		},
		{
			name:   "standard user changes another role",
			claims: alClaims,
			target: bo,
			patch:  accounts.UserPatch{Role: rolePtr(accounts.RoleStandard)},
		},
		{
			name:   "standard user edits another profile",
			claims: alClaims,
			target: bo,
			patch:  accounts.UserPatch{SelfPatch: accounts.SelfPatch{Name: strPtr("x")}},
		},
		{
			name:   "admin edits another profile",
			claims: boClaims,
			target: al,
			patch:  accounts.UserPatch{SelfPatch: accounts.SelfPatch{Name: strPtr("x")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
				Claims:   tt.claims,
				TargetID: tt.target.ID,
				Patch:    tt.patch,
			})
			require.Error(t, err)
			assert.True(t, goerrors.IsCategory(err, goerrors.CategoryAuthz))

			status, body := accounts.StatusForError(err)
			assert.Equal(t, 400, status)
			assert.Equal(t, "invalid credentials or token", body.Message)
		})
	}

	stored, err := h.users.GetByID(h.ctx(), al.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleStandard, stored.Role)
	assert.Equal(t, "al", stored.Name)
}

func TestUpdateUser_AdminChangesRoles(t *testing.T) {
	h := newHarness(t)
	al, _ := h.signup(t, "al", "a@x.com", "p")
	bo, _ := h.signup(t, "bo", "b@x.com", "p")
	h.makeAdmin(t, bo.ID)

	boClaims := h.claims(t, h.login(t, "bo", "p").Credential)

	res, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   boClaims,
		TargetID: al.ID,
		Patch:    accounts.UserPatch{Role: rolePtr(accounts.RoleAdmin)},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Credential, "the caller's own claims are unchanged")
	assert.Equal(t, accounts.RoleAdmin, res.User.Role)
	assert.Contains(t, h.sink.Types(), accounts.ActivityEventRoleChanged)

	res, err = h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   boClaims,
		TargetID: bo.ID,
		Patch:    accounts.UserPatch{Role: rolePtr(accounts.RoleStandard)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Credential)
	assert.False(t, h.claims(t, res.Credential).IsAdmin())

	_, err = h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   boClaims,
		TargetID: al.ID,
		Patch:    accounts.UserPatch{Role: rolePtr(accounts.RoleStandard)},
	})
	require.Error(t, err, "stale admin credential")
	assert.True(t, accounts.HasTextCode(err, accounts.TextCodeInvalidCredential))
}

func TestUpdateUser_ProfileAndRoleInOneRequest(t *testing.T) {
	h := newHarness(t)
	al, _ := h.signup(t, "al", "a@x.com", "p")
	bo, _ := h.signup(t, "bo", "b@x.com", "p")
	h.makeAdmin(t, bo.ID)

	boClaims := h.claims(t, h.login(t, "bo", "p").Credential)

	_, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   boClaims,
		TargetID: al.ID,
		Patch: accounts.UserPatch{
			SelfPatch: accounts.SelfPatch{Name: strPtr("Bob")},
			Role:      rolePtr(accounts.RoleAdmin),
		},
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryAuthz))

	stored, err := h.users.GetByID(h.ctx(), al.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleStandard, stored.Role)
	stored, err = h.users.GetByID(h.ctx(), bo.ID)
	require.NoError(t, err)
	assert.Equal(t, "bo", stored.Name)

	res, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
		Claims:   boClaims,
		TargetID: bo.ID,
		Patch: accounts.UserPatch{
			SelfPatch: accounts.SelfPatch{Name: strPtr("Bob")},
			Role:      rolePtr(accounts.RoleStandard),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Equal(t, bo.ID, res.User.ID)
	assert.Equal(t, "Bob", res.User.Name)
	assert.Equal(t, accounts.RoleStandard, res.User.Role)
	require.NotEmpty(t, res.Credential)
	assert.False(t, h.claims(t, res.Credential).IsAdmin())
}

func TestUpdateUser_Validation(t *testing.T) {
	h := newHarness(t)
	al, _ := h.signup(t, "al", "a@x.com", "p")
	h.signup(t, "bo", "b@x.com", "p")
	claims := h.claims(t, h.login(t, "al", "p").Credential)

	tests := []struct {
		name  string
		patch accounts.UserPatch
	}{
		{name: "empty patch", patch: accounts.UserPatch{}},
		{name: "empty username", patch: accounts.UserPatch{SelfPatch: accounts.SelfPatch{Username: strPtr(" ")}}},
		{name: "bad email", patch: accounts.UserPatch{SelfPatch: accounts.SelfPatch{Email: strPtr("nope")}}},
		{name: "unknown role", patch: accounts.UserPatch{Role: rolePtr(accounts.Role("root"))}},
		{name: "taken username", patch: accounts.UserPatch{SelfPatch: accounts.SelfPatch{Username: strPtr("bo")}}},
		{name: "password over 72 bytes", patch: accounts.UserPatch{SelfPatch: accounts.SelfPatch{Password: strPtr(strings.Repeat("p", 80))}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.coord.UpdateUser.Execute(h.ctx(), accounts.UpdateUserMessage{
				Claims:   claims,
				TargetID: al.ID,
				Patch:    tt.patch,
			})
			require.Error(t, err)
			assert.True(t, goerrors.IsValidation(err))

			status, _ := accounts.StatusForError(err)
			assert.Equal(t, 400, status)
		})
	}
}
