package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VerifyAccountMessage struct {
	Token string `json:"token"`
}

func (e VerifyAccountMessage) Type() string { return "user.verify" }

// VerifyAccountResult tells whether the token existed. An absent token is
// not an error.
type VerifyAccountResult struct {
	Found  bool
	UserID uuid.UUID
}

// VerifyAccountHandler redeems a verification token. Redeeming marks the
// owner verified and deletes the token, so a replay finds nothing.
type VerifyAccountHandler struct {
	deps Dependencies
}

func NewVerifyAccountHandler(deps Dependencies) *VerifyAccountHandler {
	return &VerifyAccountHandler{deps: deps.withDefaults()}
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) (VerifyAccountResult, error) {
	select {
	case <-ctx.Done():
		return VerifyAccountResult{}, cancelledError(ctx, "account verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) (VerifyAccountResult, error) {
	res := VerifyAccountResult{}
	if event.Token == "" {
		return res, nil
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	err := h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.deps.Repo.Tokens().GetTx(ctx, tx, event.Token, TokenVerification)
		if err != nil {
			if IsRecordNotFound(err) {
				return nil
			}
			return err
		}

		user, err := tokenOwner(ctx, h.deps, tx, token)
		if err != nil {
			return err
		}

		verified := true
		if _, err := h.deps.Repo.Users().SetAttributesTx(ctx, tx, user.ID, UserAttributes{Verified: &verified}); err != nil {
			return err
		}

		if err := h.deps.Repo.Tokens().DeleteTx(ctx, tx, token.Token); err != nil {
			return err
		}

		res = VerifyAccountResult{Found: true, UserID: user.ID}
		return nil
	})

	if err != nil {
		return VerifyAccountResult{}, richError(err, "account verification transaction failed")
	}

	if !res.Found {
		h.deps.Logger.Debug("verification token not found")
		return res, nil
	}

	h.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventVerified,
		ActorID:   res.UserID.String(),
		UserID:    res.UserID.String(),
	})

	return res, nil
}
