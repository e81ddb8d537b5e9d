package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteUserMessage struct {
	Claims   *SessionClaims
	TargetID uuid.UUID
}

func (e DeleteUserMessage) Type() string { return "user.delete" }

// DeleteUserHandler removes a user and their tokens. Users may delete
// themselves; admins may delete anyone.
type DeleteUserHandler struct {
	deps Dependencies
}

func NewDeleteUserHandler(deps Dependencies) *DeleteUserHandler {
	return &DeleteUserHandler{deps: deps.withDefaults()}
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return cancelledError(ctx, "user deletion")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	var actor uuid.UUID
	err := h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		caller, err := callerFromClaims(ctx, h.deps, tx, event.Claims)
		if err != nil {
			return err
		}
		actor = caller.ID

		if caller.ID != event.TargetID && !caller.IsAdmin() {
			return ErrForbidden.Clone().
				WithMetadata(map[string]any{"target": event.TargetID.String()})
		}

		if err := h.deps.Repo.Tokens().DeleteForUserTx(ctx, tx, event.TargetID); err != nil {
			return err
		}

		return h.deps.Repo.Users().DeleteTx(ctx, tx, event.TargetID)
	})

	if err != nil {
		return richError(err, "user deletion transaction failed")
	}

	h.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventUserDeleted,
		ActorID:   actor.String(),
		UserID:    event.TargetID.String(),
	})

	return nil
}
