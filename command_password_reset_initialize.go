package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

type RequestPasswordResetMessage struct {
	Email string `json:"email"`
}

func (e RequestPasswordResetMessage) Type() string { return "user.password_reset.request" }

func (e RequestPasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.EmailFormat),
	)
}

// RequestPasswordResetHandler issues and emails a reset token. Unknown
// emails succeed without doing anything so callers cannot test for
// accounts.
type RequestPasswordResetHandler struct {
	deps Dependencies
}

func NewRequestPasswordResetHandler(deps Dependencies) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{deps: deps.withDefaults()}
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return cancelledError(ctx, "password reset request")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	event.Email = normalizeEmail(event.Email)
	if verr := goerrors.ValidateWithOzzo(event.Validate, "invalid password reset request"); verr != nil {
		return verr.WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	user, err := h.deps.Repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if IsRecordNotFound(err) {
			h.deps.Logger.Debug("password reset requested for unknown email")
			return nil
		}
		return richError(err, "failed to look up user for password reset")
	}

	token, err := h.deps.Issuer.Issue(ctx, nil, user.ID, TokenPasswordReset)
	if err != nil {
		return richError(err, "failed to issue password reset token")
	}

	if err := h.deps.Mailer.SendPasswordReset(ctx, user, token); err != nil {
		return richError(err, "failed to send password reset email")
	}

	h.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		ActorID:   user.ID.String(),
		UserID:    user.ID.String(),
	})

	return nil
}
