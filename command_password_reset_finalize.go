package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"-"`
	Password string `json:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

func (e FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Password, validation.Required, passwordLength),
	)
}

// FinalizePasswordResetResult carries the updated user and a fresh
// session credential for them.
type FinalizePasswordResetResult struct {
	User       *User
	Credential string
}

type FinalizePasswordResetHandler struct {
	deps Dependencies
}

func NewFinalizePasswordResetHandler(deps Dependencies) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{deps: deps.withDefaults()}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) (FinalizePasswordResetResult, error) {
	select {
	case <-ctx.Done():
		return FinalizePasswordResetResult{}, cancelledError(ctx, "password reset finalization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) (FinalizePasswordResetResult, error) {
	if verr := goerrors.ValidateWithOzzo(event.Validate, "invalid password"); verr != nil {
		return FinalizePasswordResetResult{}, verr.WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	var user *User
	err := h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := findRedeemableResetToken(ctx, h.deps, tx, event.Token)
		if err != nil {
			return err
		}

		owner, err := tokenOwner(ctx, h.deps, tx, token)
		if err != nil {
			return err
		}

		hash, err := h.deps.Hasher.HashPassword(event.Password)
		if err != nil {
			return err
		}

		if user, err = h.deps.Repo.Users().SetAttributesTx(ctx, tx, owner.ID, UserAttributes{PasswordHash: &hash}); err != nil {
			return err
		}

		return h.deps.Repo.Tokens().DeleteTx(ctx, tx, token.Token)
	})

	if err != nil {
		return FinalizePasswordResetResult{}, richError(err, "failed to finalize password reset")
	}

	credential, err := h.deps.Encoder.Encode(user)
	if err != nil {
		return FinalizePasswordResetResult{}, richError(err, "failed to issue session credential")
	}

	h.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		ActorID:   user.ID.String(),
		UserID:    user.ID.String(),
	})

	return FinalizePasswordResetResult{User: user, Credential: credential}, nil
}
