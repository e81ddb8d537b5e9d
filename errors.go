package accounts

import (
	"database/sql"
	"strings"

	"github.com/jackc/pgerrcode"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	TextCodeTokenInvalid          = "TOKEN_INVALID"
	TextCodeTokenExpired          = goerrors.TextCodeTokenExpired
	TextCodeTokenRetriesExhausted = "TOKEN_RETRIES_EXHAUSTED"
	TextCodeInvalidCredential     = goerrors.TextCodeInvalidCredentials
	TextCodeIntegrityViolation    = "INTEGRITY_VIOLATION"
	TextCodeUniqueViolation       = "UNIQUE_VIOLATION"
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeForbiddenField        = "FORBIDDEN_FIELD"
	TextCodePasswordTooLong       = "PASSWORD_TOO_LONG"
)

// ErrInvalidCredential is returned for bad passwords and tampered,
// malformed or stale session credentials.
var ErrInvalidCredential = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidCredential)

// ErrInvalidToken is returned when a token is absent, of the wrong type or expired.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeTokenInvalid)

// ErrTokenRetriesExhausted is returned when every issuance attempt collided.
var ErrTokenRetriesExhausted = goerrors.New("token issuance exhausted its attempts", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeTokenRetriesExhausted).
	WithSeverity(goerrors.SeverityCritical)

// ErrUserNotFound is returned for lookups of a user that does not exist.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrMissingUser is returned when a token outlived its owner.
var ErrMissingUser = goerrors.New("token owner does not exist", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeIntegrityViolation)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(goerrors.TextCodeEmptyPassword)

// ErrPasswordTooLong is returned when hashing a password bcrypt would reject
var ErrPasswordTooLong = goerrors.New("password must be at most 72 bytes long", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodePasswordTooLong)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidCredential)

// ErrForbidden is returned when the caller may not touch the requested resource.
var ErrForbidden = goerrors.New("operation not allowed", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeForbiddenField)

// HasTextCode reports whether err is a go-errors Error with the given text code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsUniqueViolation reports whether err is a unique constraint rejection
// from sqlite or postgres.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if HasTextCode(err, TextCodeUniqueViolation) {
		return true
	}

	var pgErr pgdriver.Error
	if goerrors.As(err, &pgErr) {
		return pgErr.Field('C') == pgerrcode.UniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// IsRecordNotFound reports whether err means no rows matched.
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, sql.ErrNoRows) || goerrors.IsNotFound(err)
}

func storeError(err error, message string, metadata map[string]any) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	switch {
	case goerrors.Is(err, sql.ErrNoRows):
		richErr = goerrors.Wrap(err, goerrors.CategoryNotFound, message).
			WithCode(goerrors.CodeNotFound)
	case IsUniqueViolation(err):
		richErr = goerrors.Wrap(err, goerrors.CategoryConflict, message).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeUniqueViolation)
	default:
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, message)
	}

	if len(metadata) > 0 {
		richErr = richErr.WithMetadata(metadata)
	}
	return richErr
}
