package csrf

import (
	"net/http"
	"strings"
)

// CodeInvalidToken is the machine-readable code on a rejected request.
const CodeInvalidToken = "CSRF_INVALID_TOKEN"

// MessageInvalidToken is the human-readable message on a rejected request.
const MessageInvalidToken = "CSRF token validation failed"

// Validator checks a single token.
type Validator interface {
	Validate(token string) bool
}

// Decision is the guard's verdict for one request.
type Decision struct {
	Allowed bool
	// IssueToken asks the caller to hand the client a fresh token.
	IssueToken bool
	// Exempt is set when the path matched an exemption.
	Exempt  bool
	Code    string
	Message string
}

// Guard applies the CSRF policy: safe methods pass and get a token when they
// lack one, exempt routes pass, everything else needs a valid token.
type Guard struct {
	validator Validator
	exact     map[string]struct{}
	prefixes  []string
}

// NewGuard creates a [Guard]. An exempt entry is either an exact path or a
// prefix ending in "/*" ("/webhooks/*" covers "/webhooks" and everything below).
func NewGuard(validator Validator, exempt []string) *Guard {
	g := &Guard{validator: validator, exact: make(map[string]struct{})}
	for _, p := range exempt {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/*") {
			g.prefixes = append(g.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		g.exact[p] = struct{}{}
	}
	return g
}

// IsSafeMethod reports whether method is read-only.
func IsSafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// IsExempt reports whether path matches an exemption.
func (g *Guard) IsExempt(path string) bool {
	if _, ok := g.exact[path]; ok {
		return true
	}
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

// Check decides a request carrying token.
func (g *Guard) Check(method, path, token string) Decision {
	valid := token != "" && g.validator != nil && g.validator.Validate(token)
	return g.Decide(method, path, token != "", valid)
}

// Decide applies the policy when the caller has already validated the token,
// as the double-submit scheme does.
func (g *Guard) Decide(method, path string, present, valid bool) Decision {
	if IsSafeMethod(method) {
		return Decision{Allowed: true, IssueToken: !present || !valid}
	}
	if g.IsExempt(path) {
		return Decision{Allowed: true, Exempt: true}
	}
	if present && valid {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Code: CodeInvalidToken, Message: MessageInvalidToken}
}
