package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	goRisk "github.com/MrEthical07/goRisk"
	"github.com/MrEthical07/goRisk/csrf"
)

type csrfTokenContextKey struct{}

// CSRFToken returns the token the client should echo back on its next
// unsafe request: the freshly issued one, or the one it already holds.
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenContextKey{}).(string)
	return token
}

// CSRFOptions controls how the CSRF middleware reads and issues tokens.
type CSRFOptions struct {
	CookieName string
	HeaderName string
	// FormField is read from url-encoded and multipart bodies when the
	// header is missing. Empty disables form lookup.
	FormField  string
	CookiePath string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration
}

// CSRFOptionsFrom derives middleware options from the engine's CSRF config.
func CSRFOptionsFrom(cfg goRisk.CSRFConfig) CSRFOptions {
	return CSRFOptions{
		CookieName: cfg.CookieName,
		HeaderName: cfg.HeaderName,
		FormField:  cfg.FormField,
		CookiePath: cfg.CookiePath,
		Secure:     cfg.SecureCookie,
		SameSite:   cfg.SameSite,
		MaxAge:     cfg.MaxAge,
	}
}

// CSRF enforces the engine's CSRF policy. Safe requests without a usable
// token receive one in a cookie and the response header; unsafe requests
// without a valid token are refused with 403 and a JSON body.
//
// In signed mode the submitted token is verified against the engine secret.
// In double-submit mode the submitted token must equal the cookie.
func CSRF(engine *goRisk.Engine, opts CSRFOptions) func(http.Handler) http.Handler {
	doubleSubmit := engine != nil && engine.Config().CSRF.Mode == goRisk.CSRFModeDoubleSubmit

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusForbidden, goRisk.CodeCSRFInvalidToken, "CSRF token validation failed")
				return
			}

			submitted := submittedToken(r, opts)
			cookieValue := ""
			if c, err := r.Cookie(opts.CookieName); err == nil {
				cookieValue = c.Value
			}

			var (
				d       goRisk.CSRFDecision
				current string
			)
			if doubleSubmit {
				d = engine.CheckCSRFDoubleSubmit(r.Context(), r.Method, r.URL.Path, cookieValue, submitted)
				current = cookieValue
			} else {
				// The cookie only decides whether a safe request needs a
				// new token. Unsafe requests must carry it explicitly.
				if submitted == "" && csrf.IsSafeMethod(r.Method) {
					submitted = cookieValue
				}
				d = engine.CheckCSRF(r.Context(), r.Method, r.URL.Path, submitted)
				current = submitted
			}

			if !d.Allowed {
				writeError(w, http.StatusForbidden, d.Code, d.Message)
				return
			}

			if d.IssueToken {
				token, err := engine.IssueCSRFToken()
				if err != nil {
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "could not issue CSRF token")
					return
				}
				setCSRFCookie(w, opts, token)
				w.Header().Set(opts.HeaderName, token)
				current = token
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey{}, current)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func submittedToken(r *http.Request, opts CSRFOptions) string {
	if v := r.Header.Get(opts.HeaderName); v != "" {
		return v
	}
	if opts.FormField == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		return r.PostFormValue(opts.FormField)
	}
	return ""
}

// setCSRFCookie leaves HttpOnly off: scripts must read the value to echo it
// in the header.
func setCSRFCookie(w http.ResponseWriter, opts CSRFOptions, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.CookieName,
		Value:    token,
		Path:     opts.CookiePath,
		MaxAge:   int(opts.MaxAge / time.Second),
		Secure:   opts.Secure,
		HttpOnly: false,
		SameSite: opts.SameSite,
	})
}
