package shared

import "errors"

var (
	// ErrNotFound reports a missing record; handlers map it to 404.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned for unknown accounts, wrong
	// passwords and deactivated accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when a mutating request omits the token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the submitted token fails verification.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
