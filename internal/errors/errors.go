package errors

import "errors"

// Error taxonomy for the auth core. Every layer translates library and store
// errors into one of these before returning to a caller; handlers map them to
// HTTP status codes.
var (
	// Validation errors (400) - message safe to show
	ErrValidation = errors.New("validation failed")

	// Credential errors (401) - deliberately generic, never reveals which
	// field was wrong or whether the email exists
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Authentication errors (401) - single generic kind covering absent,
	// invalid and revoked tokens
	ErrUnauthenticated = errors.New("unauthenticated")

	// Token errors - internal only, collapsed into ErrUnauthenticated at the
	// middleware boundary
	ErrInvalidToken = errors.New("invalid token")

	// Credential storage errors - malformed stored hash, never treated as a
	// plain mismatch
	ErrCorruptCredential = errors.New("corrupt stored credential")

	// Rate limiting (429)
	ErrRateLimited = errors.New("rate limited")

	// Resource conflicts (409)
	ErrDuplicateResource = errors.New("resource already exists")

	// Lookup failures
	ErrNotFound = errors.New("not found")

	// Backing store errors (502/503) - logged server-side, not exposed
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
