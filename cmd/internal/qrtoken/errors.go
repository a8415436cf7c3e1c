package qrtoken

import "errors"

var (
	ErrInvalidInput = errors.New("qrtoken: invalid input")
	ErrNotFound     = errors.New("qrtoken: not found")
	// ErrNotActive is returned by Store.Consume when the guard fails: the
	// token was already used, revoked or expired at the given instant.
	ErrNotActive = errors.New("qrtoken: not active")
	// ErrNotProvisioned reports that the qr_tokens table does not exist.
	ErrNotProvisioned = errors.New("qrtoken: qr_tokens table missing")
	// ErrMembershipInactive refuses issuance for a member whose membership is
	// not currently active.
	ErrMembershipInactive = errors.New("qrtoken: membership inactive or expired")
)
