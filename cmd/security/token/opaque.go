package token

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// QRTokenExtraBytes is the number of random bytes appended to the UUID.
const QRTokenExtraBytes = 8

// NewQRTokenValue returns "<uuid>-<16 hex chars>".
func NewQRTokenValue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	suffix, err := NewRandomHex(QRTokenExtraBytes)
	if err != nil {
		return "", err
	}
	return id.String() + "-" + suffix, nil
}

// NewRandomHex returns a cryptographically secure random hex string of length 2*nBytes.
// If nBytes <= 0, it defaults to 16 bytes.
func NewRandomHex(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 16
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
