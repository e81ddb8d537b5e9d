package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-accounts"
)

var _ accounts.Config = (*Config)(nil)

func (c *Config) GetSigningKey() string {
	return c.Session.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Session.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Session.Audience
}

func (c *Config) GetSessionTTL() time.Duration {
	return c.Session.TTL
}

func (c *Config) GetCookieName() string {
	return c.Cookie.Name
}

func (c *Config) GetCookieSecure() bool {
	return c.Cookie.Secure
}

func (c *Config) GetCookieSameSite() string {
	return c.Cookie.SameSite
}

func (c *Config) GetResetTokenTTL() time.Duration {
	return c.Tokens.ResetTTL
}

func (c *Config) GetTokenMaxAttempts() int {
	return c.Tokens.MaxAttempts
}

func (c *Config) GetEmailFrom() string {
	return c.Email.From
}

// GetBaseURL returns the root for email links. The routes are mounted
// under server.prefix, so the prefix is appended to email.base_url.
func (c *Config) GetBaseURL() string {
	prefix := strings.Trim(strings.TrimSpace(c.Server.Prefix), "/")
	if prefix == "" {
		return c.Email.BaseURL
	}
	link, err := url.JoinPath(c.Email.BaseURL, prefix)
	if err != nil {
		return c.Email.BaseURL
	}
	return link
}

func (c *Config) GetBcryptCost() int {
	return c.Security.BcryptCost
}

// ControllerRoutes returns the redirect targets for the HTTP controller
func (c *Config) ControllerRoutes() accounts.ControllerRoutes {
	return accounts.ControllerRoutes{
		LoginPage:      c.Routes.LoginPage,
		ResetSentPage:  c.Routes.ResetSentPage,
		ResetEntryPage: c.Routes.ResetEntryPage,
	}
}
