package accounts

import (
	"context"

	"github.com/google/uuid"
)

type GetUserMessage struct {
	ID uuid.UUID
}

func (e GetUserMessage) Type() string { return "user.get" }

type GetUserHandler struct {
	deps Dependencies
}

func NewGetUserHandler(deps Dependencies) *GetUserHandler {
	return &GetUserHandler{deps: deps.withDefaults()}
}

// Query returns the user or an ErrUserNotFound error
func (h *GetUserHandler) Query(ctx context.Context, msg GetUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, cancelledError(ctx, "user lookup")
	default:
	}

	user, err := h.deps.Repo.Users().GetByID(ctx, msg.ID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrUserNotFound.Clone().
				WithMetadata(map[string]any{"id": msg.ID.String()})
		}
		return nil, richError(err, "failed to get user")
	}
	return user, nil
}

type ListUsersMessage struct {
	Claims *SessionClaims
	Filter UserFilter
}

func (e ListUsersMessage) Type() string { return "user.list" }

type ListUsersHandler struct {
	deps Dependencies
}

func NewListUsersHandler(deps Dependencies) *ListUsersHandler {
	return &ListUsersHandler{deps: deps.withDefaults()}
}

// Query lists users for admins. The caller's stored role decides, so a
// credential issued before a demotion is refused.
func (h *ListUsersHandler) Query(ctx context.Context, msg ListUsersMessage) ([]*User, error) {
	select {
	case <-ctx.Done():
		return nil, cancelledError(ctx, "user listing")
	default:
	}

	caller, err := callerFromClaims(ctx, h.deps, h.deps.Repo.DB(), msg.Claims)
	if err != nil {
		return nil, richError(err, "failed to load caller")
	}
	if !caller.IsAdmin() {
		return nil, ErrForbidden.Clone().
			WithMetadata(map[string]any{"uid": msg.Claims.UID})
	}

	users, err := h.deps.Repo.Users().Find(ctx, msg.Filter)
	if err != nil {
		return nil, richError(err, "failed to list users")
	}
	return users, nil
}
