package accounts

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultCookieName names the session cookie when the config leaves it empty
const DefaultCookieName = "accounts_session"

// CookieConfig holds the session cookie attributes
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
	MaxAge   time.Duration
}

// NewCookieConfig reads the cookie attributes from cfg. SameSite is
// "strict" or "lax"; anything else becomes "lax".
func NewCookieConfig(cfg Config, maxAge time.Duration) CookieConfig {
	name := cfg.GetCookieName()
	if name == "" {
		name = DefaultCookieName
	}

	sameSite := fiber.CookieSameSiteLaxMode
	if strings.EqualFold(cfg.GetCookieSameSite(), fiber.CookieSameSiteStrictMode) {
		sameSite = fiber.CookieSameSiteStrictMode
	}

	return CookieConfig{
		Name:     name,
		Secure:   cfg.GetCookieSecure(),
		SameSite: sameSite,
		MaxAge:   maxAge,
	}
}

// SetSessionCookie writes credential as an http only cookie on path "/"
func SetSessionCookie(c *fiber.Ctx, cc CookieConfig, credential string, now time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cc.Name,
		Value:    credential,
		Path:     "/",
		MaxAge:   int(cc.MaxAge.Seconds()),
		Expires:  now.Add(cc.MaxAge),
		HTTPOnly: true,
		Secure:   cc.Secure,
		SameSite: cc.SameSite,
	})
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c *fiber.Ctx, cc CookieConfig, now time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cc.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  now.Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   cc.Secure,
		SameSite: cc.SameSite,
	})
}
