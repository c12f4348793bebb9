package goRisk

import "context"

type requestContextKey struct{}
type sessionContextKey struct{}

// WithRequestContext attaches the caller's network address and device
// signature to ctx. Audit events fall back to this address when an
// operation has none of its own.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the request context attached by [WithRequestContext].
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

// WithSession attaches a validated session to ctx.
func WithSession(ctx context.Context, s SessionMetadata) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFrom returns the session attached by [WithSession].
func SessionFrom(ctx context.Context) (SessionMetadata, bool) {
	if ctx == nil {
		return SessionMetadata{}, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(SessionMetadata)
	return s, ok
}

func addressFromContext(ctx context.Context) string {
	rc, _ := RequestContextFrom(ctx)
	return rc.NetworkAddress
}
