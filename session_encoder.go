package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultSessionTTL is the lifetime of a session credential
const DefaultSessionTTL = 24 * time.Hour

// SessionEncoder signs and verifies HS256 session credentials.
type SessionEncoder struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	ttl        time.Duration
	now        Clock
	logger     Logger
}

type SessionEncoderOption func(*SessionEncoder)

func WithEncoderClock(clock Clock) SessionEncoderOption {
	return func(e *SessionEncoder) {
		if clock != nil {
			e.now = clock
		}
	}
}

func WithEncoderLogger(logger Logger) SessionEncoderOption {
	return func(e *SessionEncoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewSessionEncoder builds an encoder from cfg. An empty signing key is
// rejected.
func NewSessionEncoder(cfg Config, opts ...SessionEncoderOption) (*SessionEncoder, error) {
	if cfg.GetSigningKey() == "" {
		return nil, goerrors.New("session signing key is required", goerrors.CategoryValidation)
	}

	ttl := cfg.GetSessionTTL()
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	var aud jwt.ClaimStrings
	if len(cfg.GetAudience()) > 0 {
		aud = append(aud, cfg.GetAudience()...)
	}

	enc := &SessionEncoder{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		audience:   aud,
		ttl:        ttl,
		now:        defClock,
		logger:     defLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(enc)
		}
	}
	return enc, nil
}

// TTL returns the credential lifetime
func (e *SessionEncoder) TTL() time.Duration {
	return e.ttl
}

// Encode signs a credential for user
func (e *SessionEncoder) Encode(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}

	claims := &SessionClaims{
		UID:      user.ID.String(),
		Username: user.Username,
		UserRole: user.Role,
	}
	return e.sign(claims)
}

// EncodeWithUpdatedAttributes re-signs a copy of claims with the changed
// identity fields and a fresh issued at time.
func (e *SessionEncoder) EncodeWithUpdatedAttributes(claims *SessionClaims, attrs CredentialAttributes) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	updated := claims.clone()
	if attrs.Username != nil {
		updated.Username = *attrs.Username
	}
	if attrs.Role != nil {
		updated.UserRole = *attrs.Role
	}
	return e.sign(updated)
}

func (e *SessionEncoder) sign(claims *SessionClaims) (string, error) {
	if !claims.validShape() {
		return "", goerrors.New("refusing to sign malformed session claims", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"uid": claims.UID})
	}

	now := e.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    e.issuer,
		Subject:   claims.UID,
		Audience:  e.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(e.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session credential")
	}
	return signed, nil
}

// Decode verifies credential and returns its claims. Every failure,
// tampering and expiry included, is ErrInvalidCredential.
func (e *SessionEncoder) Decode(credential string) (*SessionClaims, error) {
	if credential == "" {
		return nil, invalidCredential("empty")
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(e.now),
		jwt.WithExpirationRequired(),
	}
	if e.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(e.issuer))
	}
	if len(e.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(e.audience[0]))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return e.signingKey, nil
	}, parserOptions...)
	if err != nil {
		reason := "malformed"
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			reason = "expired"
		case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "signature"
		}
		e.logger.Debug("session credential rejected", "reason", reason, "error", err)
		return nil, invalidCredential(reason)
	}

	if !token.Valid || !claims.validShape() {
		e.logger.Debug("session credential rejected", "reason", "claims")
		return nil, invalidCredential("claims")
	}

	return claims, nil
}

func invalidCredential(reason string) error {
	return ErrInvalidCredential.Clone().
		WithMetadata(map[string]any{"reason": reason})
}
