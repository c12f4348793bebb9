package middleware

import (
	"net"
	"net/http"
	"strings"

	goRisk "github.com/MrEthical07/goRisk"
)

// ClientAddress returns the network address of the client that sent r. With
// trustForwarded set, the first X-Forwarded-For hop or X-Real-IP wins over
// the socket address; only enable it behind a proxy that sets those headers.
func ClientAddress(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestContextOf describes the client of r for engine calls.
func RequestContextOf(r *http.Request, trustForwarded bool) goRisk.RequestContext {
	return goRisk.RequestContext{
		NetworkAddress:  ClientAddress(r, trustForwarded),
		DeviceSignature: r.UserAgent(),
	}
}

// RequestContext attaches the client's address and user agent to the request
// context, where [goRisk.RequestContextFrom] and audit events can find them.
func RequestContext(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goRisk.WithRequestContext(r.Context(), RequestContextOf(r, trustForwarded))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestContext prefers the value attached by [RequestContext].
func requestContext(r *http.Request) goRisk.RequestContext {
	if rc, ok := goRisk.RequestContextFrom(r.Context()); ok {
		return rc
	}
	return RequestContextOf(r, false)
}
