package errors

import (
	"errors"
)

// Common error types for the login service
var (
	// Session errors
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionExpired         = errors.New("session expired")
	ErrProfileAlreadyAttached = errors.New("profile already attached to session")
	ErrInvalidSessionID       = errors.New("invalid session id")

	// Provider errors
	ErrInvalidConfig   = errors.New("invalid oauth provider configuration")
	ErrTokenExchange   = errors.New("token exchange failed")
	ErrInvalidIDToken  = errors.New("invalid id token")
	ErrProfileFetch    = errors.New("profile fetch failed")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrTokenRevocation = errors.New("token revocation failed")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
