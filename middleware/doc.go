// Package middleware adapts the goRisk engine to net/http.
//
// # Middlewares
//
//   - [RequestContext] attaches the client address and user agent to the
//     request context.
//   - [SessionGuard] validates the request's session and injects its metadata.
//   - [CSRF] enforces the CSRF policy in signed or double-submit mode and
//     issues token cookies to safe requests.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every decision
// is delegated to the engine.
//
// # What this package must NOT do
//
//   - Sign or verify tokens itself.
//   - Access Redis.
//   - Decide beyond pass or reject on the engine's result.
package middleware
