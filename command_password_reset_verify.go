package accounts

import "context"

type VerifyPasswordResetMessage struct {
	Token string `json:"token"`
}

func (e VerifyPasswordResetMessage) Type() string { return "user.password_reset.verify" }

// VerifyPasswordResetHandler checks a reset token is redeemable without
// consuming it.
type VerifyPasswordResetHandler struct {
	deps Dependencies
}

func NewVerifyPasswordResetHandler(deps Dependencies) *VerifyPasswordResetHandler {
	return &VerifyPasswordResetHandler{deps: deps.withDefaults()}
}

func (h *VerifyPasswordResetHandler) Execute(ctx context.Context, event VerifyPasswordResetMessage) (*Token, error) {
	select {
	case <-ctx.Done():
		return nil, cancelledError(ctx, "password reset verification")
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	token, err := findRedeemableResetToken(ctx, h.deps, h.deps.Repo.DB(), event.Token)
	if err != nil {
		return nil, richError(err, "failed to verify password reset token")
	}
	return token, nil
}
