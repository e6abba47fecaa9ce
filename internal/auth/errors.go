package auth

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrNoCredentials indicates that no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidToken indicates that the token could not be parsed or its
	// signature did not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates that the token has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingClaim indicates that a required claim is missing.
	ErrMissingClaim = errors.New("missing required claim")

	// ErrNoSecret indicates that no signing secret is configured.
	ErrNoSecret = errors.New("jwt secret is not configured")
)
