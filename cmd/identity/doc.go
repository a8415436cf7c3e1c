// Package identity is the read-only member directory.
//
// Members are owned by the external identity provider; this package only
// resolves the profile attributes shown to staff at verification time.
package identity
