package model

import "errors"

// Sentinel errors for the failure taxonomy. Handlers map these to HTTP
// status codes with errors.Is; everything else surfaces as a 500.
var (
	// ErrNotFound indicates a missing user, conversation, or message.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate registration.
	ErrConflict = errors.New("already exists")

	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates an expired, malformed, or unsigned token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnavailable indicates the backing store stayed unreachable
	// after bounded retries.
	ErrUnavailable = errors.New("service unavailable")
)
