package identity

import "context"

// Profile is the member-facing display data resolved at verification time.
// Every attribute is optional in the upstream directory.
type Profile struct {
	ID        string
	FullName  *string
	Email     *string
	AvatarURL *string
}

// Directory resolves member profiles. Implementations return NotFoundError when
// the member has no profile row.
type Directory interface {
	GetProfile(ctx context.Context, memberID string) (Profile, error)
}
