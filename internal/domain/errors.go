package domain

import "errors"

// Error kinds surfaced by the auth flow. Handlers map these to HTTP status
// codes; everything else is treated as an internal error.
var (
	ErrValidation         = errors.New("invalid inputs")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrNotFound           = errors.New("user not found")
	ErrOtpExpired         = errors.New("otp expired")
	ErrOtpInvalid         = errors.New("invalid otp")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotificationFailed = errors.New("failed to send otp email")
)
