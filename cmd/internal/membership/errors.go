package membership

import "errors"

var (
	ErrInvalidInput = errors.New("membership: invalid input")
	ErrNotFound     = errors.New("membership: not found")
	// ErrNotProvisioned reports that the memberships table does not exist.
	ErrNotProvisioned = errors.New("membership: memberships table missing")
)
