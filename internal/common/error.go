// Package common defines shared constants and sentinel errors used across
// the media vault server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")

	// Validation errors (bad client input, never retried).
	ErrEmailTaken      = errors.New("email already registered")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrBadTagFormat    = errors.New("invalid tags format")

	// Ownership mismatch, distinct from ErrorNotFound.
	ErrForbidden = errors.New("forbidden")
)
