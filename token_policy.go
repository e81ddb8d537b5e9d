package accounts

import "time"

// DefaultResetTokenTTL is how long a password reset token stays redeemable
const DefaultResetTokenTTL = time.Hour

// ExpirationPolicy decides whether a token aged out.
type ExpirationPolicy struct {
	TTL time.Duration
	Now Clock
}

// NewExpirationPolicy returns a policy with the given TTL, falling back
// to DefaultResetTokenTTL for non positive values.
func NewExpirationPolicy(ttl time.Duration, now Clock) ExpirationPolicy {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	if now == nil {
		now = defClock
	}
	return ExpirationPolicy{TTL: ttl, Now: now}
}

// IsExpired reports whether now - createdAt >= TTL.
// A token exactly TTL old is expired.
func (p ExpirationPolicy) IsExpired(token *Token) bool {
	if token == nil {
		return true
	}
	return p.age(token.CreatedAt) >= p.ttl()
}

// ExpiresAt returns the instant the token stops being redeemable
func (p ExpirationPolicy) ExpiresAt(token *Token) time.Time {
	return token.CreatedAt.Add(p.ttl())
}

func (p ExpirationPolicy) age(createdAt time.Time) time.Duration {
	now := p.Now
	if now == nil {
		now = defClock
	}
	return now().Sub(createdAt)
}

func (p ExpirationPolicy) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultResetTokenTTL
	}
	return p.TTL
}
