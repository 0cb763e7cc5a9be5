package shared

import "errors"

// Sentinel errors classifying every failure the core can produce. Domain
// packages wrap these with specific messages so handlers can map any error
// to a response class with errors.Is.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing caller input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing or expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the actor is not the required party.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidState indicates a transition the current state does not permit.
	ErrInvalidState = errors.New("invalid state")
	// ErrInsufficientStock indicates a transfer exceeding the holder's quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrIntegrity indicates corrupted data (hierarchy cycle, missing tier).
	// Non-recoverable: callers abort, never attempt partial repair.
	ErrIntegrity = errors.New("data integrity error")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserSafeMessage returns a message suitable for surfacing to the caller.
// Business-rule rejections carry actionable text; anything unclassified is
// reduced to a generic failure so internals do not leak.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidCredentials):
		return err.Error()
	default:
		return "an unexpected error occurred"
	}
}
