package accounts_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockTokens implements accounts.Tokens
type MockTokens struct {
	mock.Mock
}

func (m *MockTokens) Create(ctx context.Context, token *accounts.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokens) CreateTx(ctx context.Context, tx bun.IDB, token *accounts.Token) error {
	args := m.Called(ctx, tx, token)
	return args.Error(0)
}

func (m *MockTokens) Find(ctx context.Context, filter accounts.TokenFilter) ([]*accounts.Token, error) {
	args := m.Called(ctx, filter)
	tokens, _ := args.Get(0).([]*accounts.Token)
	return tokens, args.Error(1)
}

func (m *MockTokens) FindTx(ctx context.Context, tx bun.IDB, filter accounts.TokenFilter) ([]*accounts.Token, error) {
	args := m.Called(ctx, tx, filter)
	tokens, _ := args.Get(0).([]*accounts.Token)
	return tokens, args.Error(1)
}

func (m *MockTokens) Get(ctx context.Context, value string, tokenType accounts.TokenType) (*accounts.Token, error) {
	args := m.Called(ctx, value, tokenType)
	token, _ := args.Get(0).(*accounts.Token)
	return token, args.Error(1)
}

func (m *MockTokens) GetTx(ctx context.Context, tx bun.IDB, value string, tokenType accounts.TokenType) (*accounts.Token, error) {
	args := m.Called(ctx, tx, value, tokenType)
	token, _ := args.Get(0).(*accounts.Token)
	return token, args.Error(1)
}

func (m *MockTokens) Delete(ctx context.Context, value string) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockTokens) DeleteTx(ctx context.Context, tx bun.IDB, value string) error {
	args := m.Called(ctx, tx, value)
	return args.Error(0)
}

func (m *MockTokens) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockActivitySink implements accounts.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingSender keeps every email it is asked to send and fails with
// err when set.
type recordingSender struct {
	mu     sync.Mutex
	emails []accounts.Email
	err    error
}

func (s *recordingSender) Send(_ context.Context, email accounts.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, email)
	return nil
}

func (s *recordingSender) Sent() []accounts.Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.Email, len(s.emails))
	copy(out, s.emails)
	return out
}

func (s *recordingSender) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// recordingSink keeps every activity event.
type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []accounts.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceGenerator returns values in order, then falls back to random ones.
func sequenceGenerator(values ...string) accounts.TokenGenerator {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(values) == 0 {
			return accounts.DefaultTokenGenerator()
		}
		v := values[0]
		values = values[1:]
		return v, nil
	}
}

var errInjected = errors.New("injected failure")

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
