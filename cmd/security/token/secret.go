package token

import "strings"

// MinSecretBytes is the recommended minimum for HMAC-SHA256 secrets.
const MinSecretBytes = 32

// CheckSecret trims raw and enforces a minimum byte length.
// Length is measured in bytes, not runes, because the secret is used as raw bytes.
func CheckSecret(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}
