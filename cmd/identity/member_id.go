package identity

import (
	"strings"

	"github.com/google/uuid"
)

// ParseMemberID canonicalizes a member id. Member ids are UUIDs issued by the
// identity provider; anything else is rejected with ErrInvalidInput.
func ParseMemberID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", OpError{Op: "identity.ParseMemberID", Kind: ErrInvalidInput, Msg: "empty member id"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", OpError{Op: "identity.ParseMemberID", Kind: ErrInvalidInput, Msg: "member id is not a uuid"}
	}
	return id.String(), nil
}
