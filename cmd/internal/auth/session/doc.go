// Package session authenticates members on the issuance and status endpoints.
//
// Sessions are owned by the external identity provider. This package only
// verifies the short-lived HS256 access tokens it hands to the browser and
// extracts the member id from the "sub" claim. Issue exists for the CLI and
// for tests; production tokens are minted by the provider.
package session
