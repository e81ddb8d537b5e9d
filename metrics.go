package accounts

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// TokensIssued counts persisted tokens by type.
// Use RegisterMetrics to register this with a Prometheus registry.
var TokensIssued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_tokens_issued_total",
		Help: "Total number of tokens issued",
	},
	[]string{"type"},
)

// TokenCollisions counts inserts rejected by the token unique constraint.
var TokenCollisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_token_collisions_total",
		Help: "Total number of token value collisions during issuance",
	},
	[]string{"type"},
)

// TokenIssuanceExhausted counts issuances that hit the attempt cap.
var TokenIssuanceExhausted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_token_issuance_exhausted_total",
		Help: "Total number of token issuances that ran out of attempts",
	},
	[]string{"type"},
)

// ActivityEvents counts recorded account activity by event type.
var ActivityEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_activity_events_total",
		Help: "Total number of account activity events",
	},
	[]string{"event"},
)

// RegisterMetrics registers the package collectors with reg.
// Panics if registration fails (prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(TokensIssued)
	reg.MustRegister(TokenCollisions)
	reg.MustRegister(TokenIssuanceExhausted)
	reg.MustRegister(ActivityEvents)
}

func recordTokenIssued(tokenType TokenType) {
	TokensIssued.WithLabelValues(string(tokenType)).Inc()
}

func recordTokenCollision(tokenType TokenType) {
	TokenCollisions.WithLabelValues(string(tokenType)).Inc()
}

func recordTokenExhausted(tokenType TokenType) {
	TokenIssuanceExhausted.WithLabelValues(string(tokenType)).Inc()
}

// MetricsActivitySink counts every event it receives.
type MetricsActivitySink struct{}

func (MetricsActivitySink) Record(_ context.Context, event ActivityEvent) error {
	ActivityEvents.WithLabelValues(string(event.EventType)).Inc()
	return nil
}
