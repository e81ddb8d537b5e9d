package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const handlerTimeout = 10 * time.Second

// AccountMailer sends the templated account emails
type AccountMailer interface {
	SendVerification(ctx context.Context, user *User, token string) error
	SendPasswordReset(ctx context.Context, user *User, token string) error
}

// Dependencies are the collaborators shared by every handler.
type Dependencies struct {
	Repo     RepositoryManager
	Hasher   PasswordHasher
	Mailer   AccountMailer
	Issuer   *TokenIssuer
	Encoder  *SessionEncoder
	Policy   ExpirationPolicy
	Activity ActivitySink
	Logger   Logger
	Clock    Clock
}

// Validate checks the required collaborators are present
func (d Dependencies) Validate() error {
	missing := make([]string, 0)
	if d.Repo == nil {
		missing = append(missing, "repo")
	}
	if d.Hasher == nil {
		missing = append(missing, "hasher")
	}
	if d.Mailer == nil {
		missing = append(missing, "mailer")
	}
	if d.Issuer == nil {
		missing = append(missing, "issuer")
	}
	if d.Encoder == nil {
		missing = append(missing, "encoder")
	}
	if len(missing) > 0 {
		return goerrors.New("missing coordinator dependencies", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"missing": missing})
	}
	return nil
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = defLogger()
	}
	if d.Clock == nil {
		d.Clock = defClock
	}
	if d.Policy.Now == nil {
		d.Policy = NewExpirationPolicy(d.Policy.TTL, d.Clock)
	}
	d.Activity = normalizeActivitySink(d.Activity)
	return d
}

func (d Dependencies) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, d.Activity, d.Logger, d.Clock, event)
}

// Coordinator groups the account lifecycle handlers
type Coordinator struct {
	deps Dependencies

	Register              *RegisterUserHandler
	VerifyAccount         *VerifyAccountHandler
	RequestPasswordReset  *RequestPasswordResetHandler
	VerifyPasswordReset   *VerifyPasswordResetHandler
	FinalizePasswordReset *FinalizePasswordResetHandler
	UpdateUser            *UpdateUserHandler
	DeleteUser            *DeleteUserHandler
	GetUser               *GetUserHandler
	ListUsers             *ListUsersHandler
	Auth                  *Authenticator
}

func NewCoordinator(deps Dependencies) (*Coordinator, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()

	return &Coordinator{
		deps:                  deps,
		Register:              NewRegisterUserHandler(deps),
		VerifyAccount:         NewVerifyAccountHandler(deps),
		RequestPasswordReset:  NewRequestPasswordResetHandler(deps),
		VerifyPasswordReset:   NewVerifyPasswordResetHandler(deps),
		FinalizePasswordReset: NewFinalizePasswordResetHandler(deps),
		UpdateUser:            NewUpdateUserHandler(deps),
		DeleteUser:            NewDeleteUserHandler(deps),
		GetUser:               NewGetUserHandler(deps),
		ListUsers:             NewListUsersHandler(deps),
		Auth:                  NewAuthenticator(deps),
	}, nil
}

// Encoder returns the session encoder used by the handlers
func (c *Coordinator) Encoder() *SessionEncoder {
	return c.deps.Encoder
}

func (c *Coordinator) Logger() Logger {
	return c.deps.Logger
}

func (c *Coordinator) Clock() Clock {
	return c.deps.Clock
}

type coordinatorOptions struct {
	logger    Logger
	activity  ActivitySink
	clock     Clock
	generator TokenGenerator
	hasher    PasswordHasher
}

// Option customizes NewCoordinatorFromConfig
type Option func(*coordinatorOptions)

func WithLogger(logger Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

func WithActivitySink(sink ActivitySink) Option {
	return func(o *coordinatorOptions) {
		o.activity = sink
	}
}

func WithClock(clock Clock) Option {
	return func(o *coordinatorOptions) {
		o.clock = clock
	}
}

func WithGenerator(gen TokenGenerator) Option {
	return func(o *coordinatorOptions) {
		o.generator = gen
	}
}

func WithHasher(hasher PasswordHasher) Option {
	return func(o *coordinatorOptions) {
		o.hasher = hasher
	}
}

// NewCoordinatorFromConfig wires the bun backed stores, bcrypt, the
// templated mailer and the session encoder from cfg.
func NewCoordinatorFromConfig(db *bun.DB, cfg Config, sender EmailSender, opts ...Option) (*Coordinator, error) {
	o := &coordinatorOptions{
		logger: defLogger(),
		clock:  defClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.hasher == nil {
		o.hasher = NewBcryptHasher(cfg.GetBcryptCost())
	}

	repo := NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid repository manager")
	}

	encoder, err := NewSessionEncoder(cfg,
		WithEncoderClock(o.clock),
		WithEncoderLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	mailer, err := NewMailer(cfg, sender)
	if err != nil {
		return nil, err
	}

	issuer := NewTokenIssuer(db, repo.Tokens(),
		WithTokenGenerator(o.generator),
		WithIssuerClock(o.clock),
		WithMaxAttempts(cfg.GetTokenMaxAttempts()),
		WithIssuerLogger(o.logger),
	)

	return NewCoordinator(Dependencies{
		Repo:     repo,
		Hasher:   o.hasher,
		Mailer:   mailer,
		Issuer:   issuer,
		Encoder:  encoder,
		Policy:   NewExpirationPolicy(cfg.GetResetTokenTTL(), o.clock),
		Activity: o.activity,
		Logger:   o.logger,
		Clock:    o.clock,
	})
}

func cancelledError(ctx context.Context, operation string) error {
	return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+operation)
}

// richError passes go-errors values through and wraps anything else as
// an internal error.
func richError(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}

// findRedeemableResetToken returns the password reset token if it exists
// and is not expired.
func findRedeemableResetToken(ctx context.Context, deps Dependencies, tx bun.IDB, value string) (*Token, error) {
	if value == "" {
		return nil, ErrInvalidToken.Clone().WithMetadata(map[string]any{"reason": "empty"})
	}

	token, err := deps.Repo.Tokens().GetTx(ctx, tx, value, TokenPasswordReset)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrInvalidToken.Clone().WithMetadata(map[string]any{"reason": "absent"})
		}
		return nil, err
	}

	if deps.Policy.IsExpired(token) {
		return nil, ErrInvalidToken.Clone().
			WithTextCode(TextCodeTokenExpired).
			WithMetadata(map[string]any{
				"reason":     "expired",
				"expired_at": deps.Policy.ExpiresAt(token),
			})
	}

	return token, nil
}

// tokenOwner loads the owner of token. A missing owner is an integrity
// violation, not a caller error.
func tokenOwner(ctx context.Context, deps Dependencies, tx bun.IDB, token *Token) (*User, error) {
	user, err := deps.Repo.Users().GetByIDTx(ctx, tx, token.UserID)
	if err != nil {
		if IsRecordNotFound(err) {
			deps.Logger.Error("token owner is missing",
				"user_id", token.UserID.String(),
				"type", token.Type,
			)
			return nil, ErrMissingUser.Clone().
				WithMetadata(map[string]any{
					"user_id": token.UserID.String(),
					"type":    token.Type,
				})
		}
		return nil, err
	}
	return user, nil
}

// callerFromClaims loads the caller and checks the credential still
// reflects the stored role.
func callerFromClaims(ctx context.Context, deps Dependencies, tx bun.IDB, claims *SessionClaims) (*User, error) {
	if claims == nil {
		return nil, invalidCredential("missing")
	}

	id := claims.UserID()
	if id == uuid.Nil {
		return nil, invalidCredential("claims")
	}

	caller, err := deps.Repo.Users().GetByIDTx(ctx, tx, id)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, invalidCredential("unknown user")
		}
		return nil, err
	}

	if caller.Role != claims.Role() {
		return nil, invalidCredential("stale role")
	}

	return caller, nil
}
