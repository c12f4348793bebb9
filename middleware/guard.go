package middleware

import (
	"net/http"
	"strings"

	goRisk "github.com/MrEthical07/goRisk"
)

// ReauthHeader is set on responses whose session should re-authenticate.
const ReauthHeader = "X-Reauth-Required"

// SessionFromContext returns the session validated by [SessionGuard].
var SessionFromContext = goRisk.SessionFrom

// SessionGuard validates the session named by the cookie cookieName, or by
// an "Authorization: Bearer <id>" header when the cookie is absent. Invalid
// sessions get a 401 JSON body carrying the engine's code; backend failures
// get a 503.
func SessionGuard(engine *goRisk.Engine, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, goRisk.CodeSessionNotFound, goRisk.ReasonSessionNotFound)
				return
			}

			sessionID, ok := sessionIDFrom(r, cookieName)
			if !ok {
				writeError(w, http.StatusUnauthorized, goRisk.CodeSessionNotFound, goRisk.ReasonSessionNotFound)
				return
			}

			res, err := engine.ValidateSession(r.Context(), sessionID, requestContext(r))
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "session backend unavailable")
				return
			}
			if !res.Valid {
				writeError(w, http.StatusUnauthorized, res.Code, res.Reason)
				return
			}

			if res.RequireReauth {
				w.Header().Set(ReauthHeader, "true")
			}
			ctx := goRisk.WithSession(r.Context(), *res.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionIDFrom(r *http.Request, cookieName string) (string, bool) {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, true
		}
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
