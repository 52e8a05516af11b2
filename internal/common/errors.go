// Package common defines shared constants and sentinel errors used across
// the identity service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors wrap ErrorValidation so the HTTP layer can map any
	// rule violation to a 400 while keeping the rule-specific message.
	ErrorValidation = errors.New("validation error")

	// Login failures are reported with one generic value regardless of
	// whether the email was unknown or the password wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Access token errors (distinguished per failure mode).
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrTokenSignature   = errors.New("token signature invalid")

	// Reset token failures are surfaced uniformly; the internal cause
	// (missing, expired, consumed) is only logged.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")

	// A stored password hash that cannot be parsed is corrupt data, not an
	// authentication failure.
	ErrMalformedHash = errors.New("malformed password hash")
)
