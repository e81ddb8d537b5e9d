package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// LocalsClaimsKey is the fiber locals key holding *SessionClaims
const LocalsClaimsKey = "accounts.claims"

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the session claims in the given context
func WithClaimsContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the session claims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok && raw != nil
}

// GetFiberClaims extracts the session claims stored by SessionMiddleware
func GetFiberClaims(c *fiber.Ctx) (*SessionClaims, bool) {
	raw, ok := c.Locals(LocalsClaimsKey).(*SessionClaims)
	return raw, ok && raw != nil
}
