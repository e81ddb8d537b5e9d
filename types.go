package accounts

import (
	"context"
	"log/slog"
	"time"
)

// Logger is the structured logger used across the package.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// EmailSender delivers a rendered email
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// TokenGenerator returns a new random token value
type TokenGenerator func() (string, error)

// Clock returns the current time
type Clock func() time.Time

// Config holds accounts options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetSessionTTL() time.Duration
	GetCookieName() string
	GetCookieSecure() bool
	GetCookieSameSite() string
	GetResetTokenTTL() time.Duration
	GetTokenMaxAttempts() int
	GetEmailFrom() string
	GetBaseURL() string
	GetBcryptCost() int
}

func defLogger() Logger {
	return slog.Default().With("component", "accounts")
}

func defClock() time.Time {
	return time.Now().UTC()
}
