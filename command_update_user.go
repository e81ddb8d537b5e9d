package accounts

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SelfPatch holds the profile fields a user may change on their own account.
type SelfPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (p SelfPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Name == nil && p.Password == nil
}

func (p SelfPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&p.Email, validation.NilOrNotEmpty, is.EmailFormat),
		validation.Field(&p.Name, validation.Length(0, 128)),
		validation.Field(&p.Password, validation.NilOrNotEmpty, passwordLength),
	)
}

// UserPatch is the full set of attributes an update may carry. Role is
// only honored for admins.
type UserPatch struct {
	SelfPatch
	Role *Role `json:"role,omitempty"`
}

func (p UserPatch) IsEmpty() bool {
	return p.SelfPatch.IsEmpty() && p.Role == nil
}

func (p UserPatch) Validate() error {
	if err := p.SelfPatch.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Role, validation.By(func(value any) error {
			role, _ := value.(*Role)
			if role != nil && !role.IsValid() {
				return validation.NewError("validation_invalid_role", "must be a valid role")
			}
			return nil
		})),
	)
}

type UpdateUserMessage struct {
	Claims   *SessionClaims
	TargetID uuid.UUID
	Patch    UserPatch
}

func (e UpdateUserMessage) Type() string { return "user.update" }

// UpdateUserResult has a non empty Credential when the caller's own
// identity changed and the cookie must be replaced.
type UpdateUserResult struct {
	User       *User
	Credential string
}

type UpdateUserHandler struct {
	deps Dependencies
}

func NewUpdateUserHandler(deps Dependencies) *UpdateUserHandler {
	return &UpdateUserHandler{deps: deps.withDefaults()}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) (UpdateUserResult, error) {
	select {
	case <-ctx.Done():
		return UpdateUserResult{}, cancelledError(ctx, "user update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) (UpdateUserResult, error) {
	patch := normalizePatch(event.Patch)

	if patch.IsEmpty() {
		return UpdateUserResult{}, goerrors.New("nothing to update", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if verr := goerrors.ValidateWithOzzo(patch.Validate, "invalid user update"); verr != nil {
		return UpdateUserResult{}, verr.WithCode(goerrors.CodeBadRequest)
	}

	if event.Claims == nil {
		return UpdateUserResult{}, invalidCredential("missing")
	}

	callerID := event.Claims.UserID()
	self := event.TargetID == callerID

	if !patch.SelfPatch.IsEmpty() && !self {
		return UpdateUserResult{}, ErrForbidden.Clone().
			WithMetadata(map[string]any{"field": "profile"})
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	// profile fields only reach this point when the target is the caller,
	// so a single write covers the whole patch
	attrs := UserAttributes{
		Username: patch.Username,
		Email:    patch.Email,
		Name:     patch.Name,
		Role:     patch.Role,
	}
	if patch.Password != nil {
		hash, err := h.deps.Hasher.HashPassword(*patch.Password)
		if err != nil {
			return UpdateUserResult{}, richError(err, "failed to hash password")
		}
		attrs.PasswordHash = &hash
	}

	var target *User
	err := h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		caller, err := callerFromClaims(ctx, h.deps, tx, event.Claims)
		if err != nil {
			return err
		}

		if patch.Role != nil && !caller.IsAdmin() {
			return ErrForbidden.Clone().
				WithMetadata(map[string]any{"field": "role"})
		}

		if target, err = h.deps.Repo.Users().SetAttributesTx(ctx, tx, event.TargetID, attrs); err != nil {
			if HasTextCode(err, TextCodeUniqueViolation) {
				return goerrors.New("username or email already registered", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeUniqueViolation)
			}
			return err
		}

		return nil
	})

	if err != nil {
		return UpdateUserResult{}, richError(err, "user update transaction failed")
	}

	res := UpdateUserResult{User: target}

	refresh := CredentialAttributes{}
	if patch.Username != nil && *patch.Username != event.Claims.Username {
		refresh.Username = patch.Username
	}
	if self && patch.Role != nil && *patch.Role != event.Claims.Role() {
		refresh.Role = patch.Role
	}

	if refresh.Username != nil || refresh.Role != nil {
		credential, err := h.deps.Encoder.EncodeWithUpdatedAttributes(event.Claims, refresh)
		if err != nil {
			return UpdateUserResult{}, richError(err, "failed to refresh session credential")
		}
		res.Credential = credential
	}

	h.recordActivity(ctx, callerID, event.TargetID, patch)

	return res, nil
}

func (h *UpdateUserHandler) recordActivity(ctx context.Context, callerID, targetID uuid.UUID, patch UserPatch) {
	if !patch.SelfPatch.IsEmpty() {
		fields := make([]string, 0, 4)
		if patch.Username != nil {
			fields = append(fields, "username")
		}
		if patch.Email != nil {
			fields = append(fields, "email")
		}
		if patch.Name != nil {
			fields = append(fields, "name")
		}
		if patch.Password != nil {
			fields = append(fields, "password")
		}
		h.deps.record(ctx, ActivityEvent{
			EventType: ActivityEventUserUpdated,
			ActorID:   callerID.String(),
			UserID:    callerID.String(),
			Metadata:  map[string]any{"fields": fields},
		})
	}

	if patch.Role != nil {
		h.deps.record(ctx, ActivityEvent{
			EventType: ActivityEventRoleChanged,
			ActorID:   callerID.String(),
			UserID:    targetID.String(),
			Metadata:  map[string]any{"role": *patch.Role},
		})
	}
}

func normalizePatch(p UserPatch) UserPatch {
	if p.Username != nil {
		v := strings.TrimSpace(*p.Username)
		p.Username = &v
	}
	if p.Email != nil {
		v := normalizeEmail(*p.Email)
		p.Email = &v
	}
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		p.Name = &v
	}
	return p
}
