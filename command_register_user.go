package accounts

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	UseHashid bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&e.Email, validation.Required, is.EmailFormat),
		validation.Field(&e.Password, validation.Required, passwordLength),
		validation.Field(&e.Name, validation.Length(0, 128)),
	)
}

// RegisterUserHandler creates an unverified user, issues its verification
// token and emails it. All three succeed or nothing is persisted.
type RegisterUserHandler struct {
	deps Dependencies
}

func NewRegisterUserHandler(deps Dependencies) *RegisterUserHandler {
	return &RegisterUserHandler{deps: deps.withDefaults()}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, cancelledError(ctx, "user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Username = strings.TrimSpace(event.Username)
	event.Email = normalizeEmail(event.Email)
	event.Name = strings.TrimSpace(event.Name)

	if verr := goerrors.ValidateWithOzzo(event.Validate, "invalid signup request"); verr != nil {
		return nil, verr.WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	hash, err := h.deps.Hasher.HashPassword(event.Password)
	if err != nil {
		return nil, richError(err, "failed to hash password")
	}

	user := &User{
		Username:     event.Username,
		Email:        event.Email,
		Name:         event.Name,
		PasswordHash: hash,
		Role:         RoleStandard,
		Verified:     false,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	err = h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.deps.Repo.Users().CreateTx(ctx, tx, user); err != nil {
			if HasTextCode(err, TextCodeUniqueViolation) {
				return goerrors.New("username or email already registered", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeUniqueViolation)
			}
			return err
		}

		token, err := h.deps.Issuer.Issue(ctx, tx, user.ID, TokenVerification)
		if err != nil {
			return err
		}

		return h.deps.Mailer.SendVerification(ctx, user, token)
	})

	if err != nil {
		h.deps.Logger.Warn("signup rolled back",
			"username", event.Username,
			"error", err,
		)
		return nil, richError(err, "user registration transaction failed")
	}

	h.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventSignup,
		ActorID:   user.ID.String(),
		UserID:    user.ID.String(),
	})

	return user, nil
}
