// Package qrtoken implements the ephemeral verification-token lifecycle:
// issuing short-lived QR tokens (with a reuse window against refresh churn)
// and verifying presented credentials, either stored QR tokens consumed
// exactly once or legacy signed tokens checked by signature and clock.
package qrtoken
