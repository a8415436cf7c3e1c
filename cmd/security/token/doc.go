// Package token provides credential primitives for membership verification.
//
// It owns the shape of both credential formats:
//   - QR token values: a random UUID joined with extra random bytes in hex,
//     stored server-side and matched exactly.
//   - Legacy signed tokens: stateless HS256 JWTs carrying only a subject and
//     an expiry. They are verified but no longer issued by the web flow.
//
// Secrets are raw bytes; CheckSecret enforces the minimum length policy.
package token
