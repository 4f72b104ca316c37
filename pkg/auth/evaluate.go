package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mockfig/mockfig/pkg/config"
)

// Evaluator checks endpoint authentication requirements against requests.
// It is stateless; all per-request state lives in the Context it returns.
type Evaluator struct{}

// NewEvaluator returns an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Error is returned when one or more required methods failed. Its message
// is the client-facing failure summary.
type Error struct {
	// Required lists the method names the endpoint demanded.
	Required []string
	// Failures maps failed method names to their failure descriptions.
	Failures map[string]string
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, name := range e.Required {
		if msg, ok := e.Failures[name]; ok {
			msgs = append(msgs, msg)
		}
	}
	return fmt.Sprintf("Authentication failed. Required methods: %s. Errors: %s",
		strings.Join(e.Required, ", "), strings.Join(msgs, "; "))
}

// Evaluate checks every required method against the request. All methods
// must pass; failures are collected, not short-circuited, so the error
// reports everything that was wrong with the request at once. The returned
// Context always carries a verdict per required method, even on failure.
func (ev *Evaluator) Evaluate(required []string, r *http.Request, snap *config.Snapshot) (*Context, error) {
	actx := NewContext()
	if len(required) == 0 {
		return actx, nil
	}

	failures := make(map[string]string)
	for _, name := range required {
		m, ok := snap.Method(name)
		if !ok {
			// Validation rejects dangling references at load time; a miss
			// here means the snapshot changed shape underneath us.
			failures[name] = fmt.Sprintf("Unknown authentication method %q", name)
			actx.record(name, &Verdict{Err: failures[name]})
			continue
		}

		v := evaluateMethod(m, r)
		actx.record(name, v)
		if !v.Matched {
			failures[name] = v.Err
		}
	}

	if len(failures) > 0 {
		return actx, &Error{Required: required, Failures: failures}
	}
	return actx, nil
}

func evaluateMethod(m *config.AuthMethod, r *http.Request) *Verdict {
	switch m.Type {
	case config.TypeAPIKey:
		return evaluateAPIKey(m, r)
	case config.TypeHTTPBasic:
		return evaluateBasic(m, r)
	case config.TypeBearer, config.TypeOIDC:
		return evaluateBearer(m, r)
	case config.TypeSession:
		return evaluateSession(m, r)
	case config.TypeCSRF:
		return evaluateCSRF(m, r)
	}
	return &Verdict{Err: fmt.Sprintf("Unsupported authentication type %q", m.Type)}
}

// extract pulls the credential value from the configured location.
func extract(m *config.AuthMethod, r *http.Request) (string, bool) {
	name := m.HeaderName()
	switch m.Location {
	case config.LocationQuery:
		if !r.URL.Query().Has(name) {
			return "", false
		}
		return r.URL.Query().Get(name), true
	case config.LocationCookie:
		c, err := r.Cookie(name)
		if err != nil {
			return "", false
		}
		return c.Value, true
	default:
		v := r.Header.Get(name)
		return v, v != ""
	}
}

func evaluateAPIKey(m *config.AuthMethod, r *http.Request) *Verdict {
	key, present := extract(m, r)
	if !present {
		return &Verdict{Err: "Missing API key"}
	}
	for _, rec := range m.Pool() {
		if rec["key"] == key {
			return &Verdict{Matched: true, Selection: rec}
		}
	}
	return &Verdict{Err: "Invalid API key"}
}

func evaluateBasic(m *config.AuthMethod, r *http.Request) *Verdict {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return &Verdict{Err: "Missing credentials"}
	}
	for _, rec := range m.Pool() {
		if rec["username"] == user && rec["password"] == pass {
			return &Verdict{Matched: true, Selection: rec}
		}
	}
	return &Verdict{Err: "Invalid credentials"}
}

func evaluateBearer(m *config.AuthMethod, r *http.Request) *Verdict {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return &Verdict{Err: "Missing bearer token"}
	}
	for _, rec := range m.Pool() {
		if rec["access_token"] == token {
			return &Verdict{Matched: true, Selection: rec}
		}
	}
	if m.JWTSigningKey != "" {
		if rec, ok := verifyJWT(m, token); ok {
			return &Verdict{Matched: true, Selection: rec}
		}
	}
	return &Verdict{Err: "Invalid bearer token"}
}

// verifyJWT accepts HS256 tokens signed with the method's key, projecting
// the standard claims into a synthetic pool record.
func verifyJWT(m *config.AuthMethod, raw string) (config.Record, bool) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(m.JWTSigningKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, false
	}

	rec := config.Record{"access_token": raw, "token_type": "Bearer"}
	if sub, err := claims.GetSubject(); err == nil {
		rec["subject"] = sub
	}
	if scope, ok := claims["scope"].(string); ok {
		rec["scope"] = scope
	}
	return rec, true
}

// sessionCookieValue reads the session cookie, falling back to a manual
// scan of the raw Cookie header. Some clients send cookie values that
// net/http refuses to parse (unquoted separators); the raw scan keeps
// those sessions working.
func sessionCookieValue(name string, r *http.Request) (string, bool) {
	if c, err := r.Cookie(name); err == nil {
		return c.Value, true
	}
	for _, raw := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(raw, ";") {
			k, v, found := strings.Cut(strings.TrimSpace(part), "=")
			if found && k == name {
				return strings.Trim(v, `"`), true
			}
		}
	}
	return "", false
}

func evaluateSession(m *config.AuthMethod, r *http.Request) *Verdict {
	sid, present := sessionCookieValue(m.CookieName(), r)
	if !present {
		return &Verdict{Err: "Missing session cookie"}
	}
	for _, rec := range m.Pool() {
		if rec["session_id"] == sid {
			return &Verdict{Matched: true, Selection: rec}
		}
	}
	return &Verdict{Err: "Invalid session cookie"}
}

// evaluateCSRF matches the csrf header. Pools come either from the
// method's own valid_keys or, when csrf tokens live on session records,
// from the paired session pool exposed through valid_sessions.
func evaluateCSRF(m *config.AuthMethod, r *http.Request) *Verdict {
	header := m.CSRFTokenHeader
	if header == "" {
		header = m.HeaderName()
	}
	token := r.Header.Get(header)
	if token == "" {
		return &Verdict{Err: "Missing CSRF token"}
	}
	for _, rec := range m.Pool() {
		if rec["key"] == token || rec["csrf_token"] == token {
			return &Verdict{Matched: true, Selection: rec}
		}
	}
	return &Verdict{Err: "Invalid CSRF token"}
}
