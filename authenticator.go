package accounts

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

type LoginMessage struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (e LoginMessage) Type() string { return "user.login" }

// LoginResult is the authenticated user and their session credential
type LoginResult struct {
	User       *User
	Credential string
}

type decoyHasher interface {
	RandomPasswordHash() string
}

// Authenticator verifies identifier and password pairs. The identifier may
// be an email, a username or a user id.
type Authenticator struct {
	deps      Dependencies
	decoyOnce sync.Once
	decoy     string
}

func NewAuthenticator(deps Dependencies) *Authenticator {
	return &Authenticator{deps: deps.withDefaults()}
}

func (s *Authenticator) Login(ctx context.Context, msg LoginMessage) (LoginResult, error) {
	select {
	case <-ctx.Done():
		return LoginResult{}, cancelledError(ctx, "login")
	default:
	}

	identifier := strings.TrimSpace(msg.Identifier)
	if identifier == "" || msg.Password == "" {
		s.emitFailure(ctx, "", identifier, "missing credentials")
		return LoginResult{}, ErrInvalidCredential
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	user, err := s.deps.Repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if IsRecordNotFound(err) {
			s.compareDecoy(msg.Password)
			s.emitFailure(ctx, "", identifier, "unknown identifier")
			return LoginResult{}, ErrInvalidCredential
		}
		s.deps.Logger.Error("login lookup failed", "error", err)
		return LoginResult{}, richError(err, "failed to look up user")
	}

	if err := s.deps.Hasher.ComparePasswordAndHash(msg.Password, user.PasswordHash); err != nil {
		s.emitFailure(ctx, user.ID.String(), identifier, "password mismatch")
		if goerrors.IsCategory(err, goerrors.CategoryAuth) {
			return LoginResult{}, ErrInvalidCredential
		}
		return LoginResult{}, richError(err, "failed to compare password")
	}

	credential, err := s.deps.Encoder.Encode(user)
	if err != nil {
		s.emitFailure(ctx, user.ID.String(), identifier, "encode")
		return LoginResult{}, richError(err, "failed to issue session credential")
	}

	s.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		ActorID:   user.ID.String(),
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"identifier": identifier},
	})

	return LoginResult{User: user, Credential: credential}, nil
}

// Logout records the event; the credential itself is cleared by the caller.
func (s *Authenticator) Logout(ctx context.Context, claims *SessionClaims) {
	if claims == nil {
		return
	}
	s.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		ActorID:   claims.UID,
		UserID:    claims.UID,
	})
}

// compareDecoy spends a hash comparison on unknown identifiers so they
// take about as long as a wrong password.
func (s *Authenticator) compareDecoy(password string) {
	hasher, ok := s.deps.Hasher.(decoyHasher)
	if !ok {
		return
	}
	s.decoyOnce.Do(func() {
		s.decoy = hasher.RandomPasswordHash()
	})
	if s.decoy != "" {
		_ = s.deps.Hasher.ComparePasswordAndHash(password, s.decoy)
	}
}

func (s *Authenticator) emitFailure(ctx context.Context, userID, identifier, reason string) {
	s.deps.Logger.Info("login failed", "reason", reason)
	s.deps.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		UserID:    userID,
		Metadata: map[string]any{
			"identifier": identifier,
			"reason":     reason,
		},
	})
}
