package accounts

import (
	"github.com/gofiber/fiber/v2"
)

// SessionMiddleware decodes the session cookie and stores the claims in
// fiber locals and the user context. Requests without a valid cookie are
// rejected.
func SessionMiddleware(enc *SessionEncoder, cc CookieConfig, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger()
	}
	return func(c *fiber.Ctx) error {
		claims, err := enc.Decode(c.Cookies(cc.Name))
		if err != nil {
			return WriteError(c, logger, err)
		}

		c.Locals(LocalsClaimsKey, claims)
		c.SetUserContext(WithClaimsContext(c.UserContext(), claims))
		return c.Next()
	}
}

// RequireAdmin rejects sessions whose credential does not carry the admin role.
// Must run after SessionMiddleware.
func RequireAdmin(logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger()
	}
	return func(c *fiber.Ctx) error {
		claims, ok := GetFiberClaims(c)
		if !ok {
			return WriteError(c, logger, invalidCredential("missing"))
		}
		if !claims.IsAdmin() {
			return WriteError(c, logger, ErrForbidden.Clone().
				WithMetadata(map[string]any{"uid": claims.UID}))
		}
		return c.Next()
	}
}
