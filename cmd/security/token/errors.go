package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")

	// ErrInvalidToken covers bad signatures, wrong algorithms, malformed input
	// and expired legacy tokens.
	ErrInvalidToken = errors.New("token invalid")
	// ErrMissingSubject is returned for a correctly signed, unexpired legacy
	// token without a subject.
	ErrMissingSubject = errors.New("token missing subject")
)
