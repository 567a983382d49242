package shared

import "errors"

// Errors returned by login and CSRF checks.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCSRFTokenMissing   = errors.New("csrf token missing")
	ErrCSRFTokenMismatch  = errors.New("csrf token mismatch")
)
