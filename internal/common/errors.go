// Package common defines shared constants and sentinel errors used across
// lingokeeper server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors. Authentication failures of any kind collapse to
	// ErrorUnauthorized so callers cannot tell the reasons apart.
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorBadRequest      = errors.New("bad request")
	ErrorTooManyRequests = errors.New("too many requests")

	// Auth errors (access token malformed, tampered or expired).
	ErrInvalidToken = errors.New("invalid token")
)
