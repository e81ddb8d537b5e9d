package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/uptrace/bun"
)

// DefaultTokenMaxAttempts caps issuance attempts per token
const DefaultTokenMaxAttempts = 10

// DefaultTokenGenerator returns 122 random bits as 32 hex characters
func DefaultTokenGenerator() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

type attemptOutcome int

const (
	attemptIssued attemptOutcome = iota
	attemptCollision
	attemptFatal
)

type attemptResult struct {
	outcome attemptOutcome
	token   string
	err     error
}

var errTokenCollision = errors.New("token collision")

// TokenIssuer persists fresh tokens, regenerating the value whenever the
// insert hits the token unique constraint.
type TokenIssuer struct {
	db          bun.IDB
	tokens      Tokens
	generate    TokenGenerator
	now         Clock
	maxAttempts int
	logger      Logger
}

type TokenIssuerOption func(*TokenIssuer)

func WithTokenGenerator(gen TokenGenerator) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if gen != nil {
			i.generate = gen
		}
	}
}

func WithIssuerClock(clock Clock) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// WithMaxAttempts sets the attempt cap; values below 1 are ignored.
func WithMaxAttempts(n int) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

func WithIssuerLogger(logger Logger) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func NewTokenIssuer(db bun.IDB, tokens Tokens, opts ...TokenIssuerOption) *TokenIssuer {
	issuer := &TokenIssuer{
		db:          db,
		tokens:      tokens,
		generate:    DefaultTokenGenerator,
		now:         defClock,
		maxAttempts: DefaultTokenMaxAttempts,
		logger:      defLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer
}

// Issue creates a token of the given type for userID and returns its value.
// When tx is nil the token is written outside any caller transaction.
// Each attempt runs in its own savepoint so a collision leaves tx usable.
func (i *TokenIssuer) Issue(ctx context.Context, tx bun.IDB, userID uuid.UUID, tokenType TokenType) (string, error) {
	if !tokenType.IsValid() {
		return "", goerrors.New("unknown token type", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"type": tokenType})
	}

	if tx == nil {
		tx = i.db
	}

	attempts := 0
	backoff := retry.WithMaxRetries(uint64(i.maxAttempts-1), immediately())

	token, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		attempts++
		res := i.attempt(ctx, tx, userID, tokenType)
		switch res.outcome {
		case attemptIssued:
			return res.token, nil
		case attemptCollision:
			recordTokenCollision(tokenType)
			i.logger.Debug("token collision, regenerating",
				"type", tokenType,
				"attempt", attempts,
			)
			return "", retry.RetryableError(errTokenCollision)
		default:
			return "", res.err
		}
	})

	if err != nil {
		if errors.Is(err, errTokenCollision) {
			recordTokenExhausted(tokenType)
			i.logger.Error("token issuance exhausted attempts",
				"type", tokenType,
				"user_id", userID.String(),
				"attempts", attempts,
			)
			return "", ErrTokenRetriesExhausted.Clone().
				WithMetadata(map[string]any{
					"type":     tokenType,
					"attempts": attempts,
				})
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token")
	}

	recordTokenIssued(tokenType)
	return token, nil
}

func (i *TokenIssuer) attempt(ctx context.Context, tx bun.IDB, userID uuid.UUID, tokenType TokenType) attemptResult {
	value, err := i.generate()
	if err != nil {
		return attemptResult{outcome: attemptFatal, err: err}
	}

	record := &Token{
		Token:     value,
		UserID:    userID,
		Type:      tokenType,
		CreatedAt: i.now(),
	}

	err = i.savepoint(ctx, tx, func(ctx context.Context, sp bun.IDB) error {
		return i.tokens.CreateTx(ctx, sp, record)
	})

	switch {
	case err == nil:
		return attemptResult{outcome: attemptIssued, token: value}
	case IsUniqueViolation(err):
		return attemptResult{outcome: attemptCollision}
	default:
		return attemptResult{outcome: attemptFatal, err: err}
	}
}

func (i *TokenIssuer) savepoint(ctx context.Context, tx bun.IDB, f func(ctx context.Context, sp bun.IDB) error) error {
	if tx == nil {
		return f(ctx, nil)
	}
	return tx.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
		return f(ctx, sp)
	})
}

func immediately() retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
}
