package accounts_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestExpirationPolicy_IsExpired(t *testing.T) {
	clock := newFakeClock()
	policy := accounts.NewExpirationPolicy(time.Hour, clock.Now)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "fresh", age: 0, want: false},
		{name: "just before ttl", age: time.Hour - time.Nanosecond, want: false},
		{name: "exactly ttl", age: time.Hour, want: true},
		{name: "past ttl", age: 2 * time.Hour, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &accounts.Token{CreatedAt: clock.Now().Add(-tt.age)}
			assert.Equal(t, tt.want, policy.IsExpired(token))
		})
	}
}

func TestExpirationPolicy_Defaults(t *testing.T) {
	clock := newFakeClock()
	policy := accounts.NewExpirationPolicy(0, clock.Now)
	assert.Equal(t, accounts.DefaultResetTokenTTL, policy.TTL)

	token := &accounts.Token{CreatedAt: clock.Now()}
	assert.Equal(t, clock.Now().Add(accounts.DefaultResetTokenTTL), policy.ExpiresAt(token))
	assert.True(t, policy.IsExpired(nil))
}
