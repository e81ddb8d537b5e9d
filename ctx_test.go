package accounts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClaims(t *testing.T) {
	claims := &accounts.SessionClaims{UID: "4b4c3b5e-0d9f-4a53-8d5b-2f8e7a1c9d10", Username: "al"}

	tests := []struct {
		name   string
		ctx    context.Context
		wantOK bool
	}{
		{name: "present", ctx: accounts.WithClaimsContext(context.Background(), claims), wantOK: true},
		{name: "absent", ctx: context.Background(), wantOK: false},
		{name: "nil claims", ctx: accounts.WithClaimsContext(context.Background(), nil), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := accounts.GetClaims(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Same(t, claims, got)
			}
		})
	}
}

func TestSessionMiddleware(t *testing.T) {
	clock := newFakeClock()
	enc := newTestEncoder(t, clock)
	cc := accounts.NewCookieConfig(defaultTestConfig(), enc.TTL())

	user := testUser()
	credential, err := enc.Encode(user)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(accounts.SessionMiddleware(enc, cc, testLogger{}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		fromLocals, ok := accounts.GetFiberClaims(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		fromCtx, ok := accounts.GetClaims(c.UserContext())
		if !ok || fromCtx.UID != fromLocals.UID {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendString(fromLocals.Username)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: cc.Name, Value: credential})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		role := accounts.Role(c.Get("X-Role"))
		if role != "" {
			c.Locals(accounts.LocalsClaimsKey, &accounts.SessionClaims{UID: "u", Username: "al", UserRole: role})
		}
		return c.Next()
	})
	app.Get("/admin", accounts.RequireAdmin(testLogger{}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		role   string
		status int
	}{
		{role: "admin", status: http.StatusNoContent},
		{role: "standard", status: http.StatusBadRequest},
		{role: "", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tt.role != "" {
			req.Header.Set("X-Role", tt.role)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.status, resp.StatusCode, "role %q", tt.role)
	}
}
