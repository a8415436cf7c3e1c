package session

import "errors"

var (
	// ErrMissingToken is returned when the request carries no bearer credential.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken is returned when an access token fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
