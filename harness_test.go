package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type testConfig struct {
	SigningKey  string
	Issuer      string
	Audience    []string
	SessionTTL  time.Duration
	CookieName  string
	Secure      bool
	SameSite    string
	ResetTTL    time.Duration
	MaxAttempts int
	From        string
	BaseURL     string
	BcryptCost  int
}

func defaultTestConfig() testConfig {
	return testConfig{
		SigningKey:  testSigningKey,
		Issuer:      "accounts-test",
		Audience:    []string{"accounts"},
		SessionTTL:  time.Hour,
		CookieName:  "session",
		Secure:      true,
		SameSite:    "lax",
		ResetTTL:    time.Hour,
		MaxAttempts: 5,
		From:        "no-reply@example.com",
		BaseURL:     "https://accounts.example.com",
		BcryptCost:  bcrypt.MinCost,
	}
}

func (c testConfig) GetSigningKey() string           { return c.SigningKey }
func (c testConfig) GetIssuer() string               { return c.Issuer }
func (c testConfig) GetAudience() []string           { return c.Audience }
func (c testConfig) GetSessionTTL() time.Duration    { return c.SessionTTL }
func (c testConfig) GetCookieName() string           { return c.CookieName }
func (c testConfig) GetCookieSecure() bool           { return c.Secure }
func (c testConfig) GetCookieSameSite() string       { return c.SameSite }
func (c testConfig) GetResetTokenTTL() time.Duration { return c.ResetTTL }
func (c testConfig) GetTokenMaxAttempts() int        { return c.MaxAttempts }
func (c testConfig) GetEmailFrom() string            { return c.From }
func (c testConfig) GetBaseURL() string              { return c.BaseURL }
func (c testConfig) GetBcryptCost() int              { return c.BcryptCost }

// newTestDB returns a migrated in-memory sqlite database private to t.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := accounts.OpenDB(accounts.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = accounts.Migrate(context.Background(), db)
	require.NoError(t, err)

	return db
}

type harness struct {
	cfg    testConfig
	db     *bun.DB
	coord  *accounts.Coordinator
	sender *recordingSender
	sink   *recordingSink
	clock  *fakeClock
	users  accounts.Users
	tokens accounts.Tokens
}

type harnessOption func(*harnessSettings)

type harnessSettings struct {
	cfg       testConfig
	generator accounts.TokenGenerator
}

func withConfig(fn func(*testConfig)) harnessOption {
	return func(s *harnessSettings) {
		fn(&s.cfg)
	}
}

func withGenerator(gen accounts.TokenGenerator) harnessOption {
	return func(s *harnessSettings) {
		s.generator = gen
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	settings := &harnessSettings{cfg: defaultTestConfig()}
	for _, opt := range opts {
		opt(settings)
	}

	h := &harness{
		cfg:    settings.cfg,
		db:     newTestDB(t),
		sender: &recordingSender{},
		sink:   &recordingSink{},
		clock:  newFakeClock(),
	}

	coord, err := accounts.NewCoordinatorFromConfig(h.db, h.cfg, h.sender,
		accounts.WithLogger(testLogger{}),
		accounts.WithActivitySink(h.sink),
		accounts.WithClock(h.clock.Now),
		accounts.WithGenerator(settings.generator),
		accounts.WithHasher(accounts.NewBcryptHasher(bcrypt.MinCost)),
	)
	require.NoError(t, err)

	h.coord = coord
	h.users = accounts.NewUsersRepository(h.db)
	h.tokens = accounts.NewTokensRepository(h.db)
	return h
}

func (h *harness) ctx() context.Context {
	return context.Background()
}

// signup registers a user and returns it along with its verification token.
func (h *harness) signup(t *testing.T, username, email, password string) (*accounts.User, string) {
	t.Helper()

	user, err := h.coord.Register.Execute(h.ctx(), accounts.RegisterUserMessage{
		Username: username,
		Email:    email,
		Password: password,
		Name:     username,
	})
	require.NoError(t, err)

	return user, h.tokenFor(t, user.ID, accounts.TokenVerification)
}

// tokenFor returns the newest token of the given type owned by userID.
func (h *harness) tokenFor(t *testing.T, userID uuid.UUID, tokenType accounts.TokenType) string {
	t.Helper()

	records, err := h.tokens.Find(h.ctx(), accounts.TokenFilter{UserID: userID, Type: tokenType})
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[len(records)-1].Token
}

func (h *harness) countRows(t *testing.T, table string) int {
	t.Helper()

	n, err := h.db.NewSelect().Table(table).Count(h.ctx())
	require.NoError(t, err)
	return n
}

// makeAdmin promotes the user directly in the store.
func (h *harness) makeAdmin(t *testing.T, id uuid.UUID) *accounts.User {
	t.Helper()

	role := accounts.RoleAdmin
	user, err := h.users.SetAttributes(h.ctx(), id, accounts.UserAttributes{Role: &role})
	require.NoError(t, err)
	return user
}

func (h *harness) login(t *testing.T, identifier, password string) accounts.LoginResult {
	t.Helper()

	res, err := h.coord.Auth.Login(h.ctx(), accounts.LoginMessage{
		Identifier: identifier,
		Password:   password,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) claims(t *testing.T, credential string) *accounts.SessionClaims {
	t.Helper()

	claims, err := h.coord.Encoder().Decode(credential)
	require.NoError(t, err)
	return claims
}

// counterValue reads a counter sample from the package collectors.
func counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()

	reg := prometheus.NewRegistry()
	accounts.RegisterMetrics(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
