// Package csrf implements cross-site request forgery protection: stateless
// signed tokens, double-submit cookie tokens and the guard policy that decides
// which requests need one.
//
// # Signed tokens
//
// A token is nonce:timestamp:signature. The nonce is 32 random bytes, the
// timestamp is Unix seconds, and the signature is HMAC-SHA256 over
// "nonce:timestamp" under a key derived from the server secret with HKDF.
// All three parts are base64url without padding except the decimal timestamp.
// Validation needs only the secret.
//
// # Double submit
//
// [DoubleSubmit] issues a random token meant for a client-readable cookie and
// compares it to the value echoed in a request header.
//
// # What this package must NOT do
//
//   - Keep server-side token state.
//   - Choose HTTP status codes. [Decision] carries a machine-readable code.
package csrf
