package accounts

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when no cost is configured
const DefaultBcryptCost = 12

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// passwordLength limits passwords to MaxPasswordBytes. Length counts
// runes, bcrypt counts bytes.
var passwordLength = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if s, ok := v.(string); ok && len(s) > MaxPasswordBytes {
		return validation.NewError("validation_password_too_long", "must be at most 72 bytes long")
	}
	return nil
})

// BcryptHasher implements PasswordHasher with bcrypt
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) BcryptHasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return BcryptHasher{Cost: cost}
}

// HashPassword will generate a password hash
func (b BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	cost := b.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (b BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryAuth, "invalid password hash").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeInvalidCredential)
	}
	return nil
}

// RandomPasswordHash hashes a random password. Login with it is
// practically impossible; used to blunt timing differences for unknown
// identifiers.
func (b BcryptHasher) RandomPasswordHash() string {
	h, err := b.HashPassword(uuid.NewString())
	if err != nil {
		return ""
	}
	return h
}
