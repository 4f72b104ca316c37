// Package config loads and validates the three declarative documents that
// describe a mocked API: service metadata, authentication methods, and
// endpoint definitions. Documents are parsed once at startup (or on reload)
// into an immutable Snapshot; nothing in a Snapshot is mutated afterwards.
package config

import (
	"fmt"
	"strings"
)

// MethodType identifies an authentication method implementation.
// The set is closed: unknown types are rejected at load time.
type MethodType string

// Supported authentication method types.
const (
	TypeAPIKey    MethodType = "api_key"
	TypeHTTPBasic MethodType = "http_basic"
	TypeBearer    MethodType = "http_bearer"
	TypeOIDC      MethodType = "oidc"
	TypeSession   MethodType = "session"
	TypeCSRF      MethodType = "csrf"
)

// Location identifies where a credential is extracted from.
type Location string

// Credential locations.
const (
	LocationHeader Location = "header"
	LocationQuery  Location = "query"
	LocationCookie Location = "cookie"
)

// APIMetadata describes the mocked service (title, version, tags).
// Loaded from the metadata document; surfaced on the service descriptor
// route and attached to request log events.
type APIMetadata struct {
	Title       string `json:"title" yaml:"title" validate:"required"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// BasePath is prefixed to every endpoint path (e.g. "/api/v1").
	BasePath string `json:"base_path,omitempty" yaml:"base_path,omitempty"`
	// Tags document endpoint groupings.
	Tags []Tag `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Tag is a named endpoint grouping.
type Tag struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// BasicCredential is a username/password pair in an http_basic pool.
type BasicCredential struct {
	Username string `json:"username" yaml:"username" validate:"required"`
	Password string `json:"password" yaml:"password" validate:"required"`
}

// TokenRecord is one bearer/OIDC token in a pool.
type TokenRecord struct {
	AccessToken string `json:"access_token" yaml:"access_token" validate:"required"`
	TokenType   string `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Subject     string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// SessionRecord is one session in a session pool. The csrf_token is the
// token paired with this exact session; correlation between the two is the
// whole point of keeping them in one record.
type SessionRecord struct {
	SessionID string `json:"session_id" yaml:"session_id" validate:"required"`
	CSRFToken string `json:"csrf_token,omitempty" yaml:"csrf_token,omitempty"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Group     string `json:"group,omitempty" yaml:"group,omitempty"`
}

// AuthMethod is one named authentication method and its credential pool.
// The pool is static configuration and is never mutated at runtime.
type AuthMethod struct {
	// Name is the map key from the auth document, filled in during load.
	Name string `json:"-" yaml:"-"`

	Type MethodType `json:"type" yaml:"type" validate:"required"`

	// Location and FieldName say where the credential travels:
	// header/query/cookie plus the header, parameter, or cookie name.
	// Defaults depend on Type (X-API-Key header, JSESSIONID cookie, ...).
	Location  Location `json:"location,omitempty" yaml:"location,omitempty"`
	FieldName string   `json:"field_name,omitempty" yaml:"field_name,omitempty"`

	// ValidKeys is the pool for api_key and csrf methods.
	ValidKeys []string `json:"valid_keys,omitempty" yaml:"valid_keys,omitempty"`
	// ValidCredentials is the pool for http_basic.
	ValidCredentials []BasicCredential `json:"valid_credentials,omitempty" yaml:"valid_credentials,omitempty"`
	// ValidTokens is the pool for http_bearer and oidc.
	ValidTokens []TokenRecord `json:"valid_tokens,omitempty" yaml:"valid_tokens,omitempty"`
	// ValidSessions is the pool for session methods.
	ValidSessions []SessionRecord `json:"valid_sessions,omitempty" yaml:"valid_sessions,omitempty"`

	// SessionCookie overrides the cookie name for session methods
	// (default "JSESSIONID").
	SessionCookie string `json:"session_cookie,omitempty" yaml:"session_cookie,omitempty"`
	// CSRFTokenHeader is the header carrying the csrf token paired with a
	// session (default "X-XSRF-TOKEN").
	CSRFTokenHeader string `json:"csrf_token_header,omitempty" yaml:"csrf_token_header,omitempty"`

	// JWTSigningKey, when set on a bearer/oidc method, additionally accepts
	// any presented token that verifies as an HS256 JWT under this key.
	JWTSigningKey string `json:"jwt_signing_key,omitempty" yaml:"jwt_signing_key,omitempty"`
}

// Record is one credential record from a pool, normalized to a property map
// so template placeholders can project arbitrary properties off it.
type Record map[string]string

// Pool returns the method's credential pool as normalized records.
// api_key/csrf records expose "key"; sessions expose "session_id",
// "csrf_token", "username"; and so on.
func (m *AuthMethod) Pool() []Record {
	switch m.Type {
	case TypeAPIKey:
		records := make([]Record, len(m.ValidKeys))
		for i, k := range m.ValidKeys {
			records[i] = Record{"key": k}
		}
		return records
	case TypeCSRF:
		// CSRF pools come from standalone keys or from the csrf tokens
		// paired with sessions, when the method shares the session pool.
		records := make([]Record, 0, len(m.ValidKeys)+len(m.ValidSessions))
		for _, k := range m.ValidKeys {
			records = append(records, Record{"key": k})
		}
		for _, s := range m.ValidSessions {
			records = append(records, Record{
				"key":        s.CSRFToken,
				"csrf_token": s.CSRFToken,
				"session_id": s.SessionID,
				"username":   s.Username,
				"group":      s.Group,
			})
		}
		return records
	case TypeHTTPBasic:
		records := make([]Record, len(m.ValidCredentials))
		for i, c := range m.ValidCredentials {
			records[i] = Record{"username": c.Username, "password": c.Password}
		}
		return records
	case TypeBearer, TypeOIDC:
		records := make([]Record, len(m.ValidTokens))
		for i, t := range m.ValidTokens {
			records[i] = Record{
				"access_token": t.AccessToken,
				"token_type":   t.TokenType,
				"scope":        t.Scope,
				"subject":      t.Subject,
			}
		}
		return records
	case TypeSession:
		records := make([]Record, len(m.ValidSessions))
		for i, s := range m.ValidSessions {
			records[i] = Record{
				"session_id": s.SessionID,
				"csrf_token": s.CSRFToken,
				"username":   s.Username,
				"group":      s.Group,
			}
		}
		return records
	}
	return nil
}

// CookieName returns the effective session cookie name.
func (m *AuthMethod) CookieName() string {
	if m.SessionCookie != "" {
		return m.SessionCookie
	}
	return "JSESSIONID"
}

// HeaderName returns the effective credential header/query/cookie name.
func (m *AuthMethod) HeaderName() string {
	if m.FieldName != "" {
		return m.FieldName
	}
	switch m.Type {
	case TypeAPIKey:
		return "X-API-Key"
	case TypeCSRF:
		return "X-XSRF-TOKEN"
	}
	return ""
}

// AuthConfig is the authentication methods document.
type AuthConfig struct {
	// Methods maps method name to its configuration.
	Methods map[string]*AuthMethod `json:"authentication_methods" yaml:"authentication_methods"`
	// SystemMethod names the method guarding the admin API
	// (default "system_api_key" when such a method exists).
	SystemMethod string `json:"system_auth_method,omitempty" yaml:"system_auth_method,omitempty"`
}

// PersistenceSpec declares the single store operation an endpoint performs.
type PersistenceSpec struct {
	EntityName string `json:"entity_name" yaml:"entity_name" validate:"required"`
	// Action is one of create, retrieve, update, delete, list.
	Action string `json:"action" yaml:"action" validate:"required,oneof=create retrieve update delete list"`
}

// ResponseSpec is the template for one response: status, headers, body.
// Headers and body may contain placeholders resolved per request.
type ResponseSpec struct {
	StatusCode int               `json:"status_code" yaml:"status_code" validate:"required"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// ResponseRule is one conditional branch of an endpoint's responses.
// All present condition maps must match (AND across kinds); a rule with no
// conditions always matches. Condition values are compared for equality,
// except strings prefixed "regex:" which are matched as RE2 patterns.
type ResponseRule struct {
	BodyConditions   map[string]any    `json:"body_conditions,omitempty" yaml:"body_conditions,omitempty"`
	PathConditions   map[string]string `json:"path_conditions,omitempty" yaml:"path_conditions,omitempty"`
	QueryConditions  map[string]string `json:"query_conditions,omitempty" yaml:"query_conditions,omitempty"`
	HeaderConditions map[string]string `json:"header_conditions,omitempty" yaml:"header_conditions,omitempty"`

	// When is an optional expression evaluated against the request
	// (body, path, query, headers); it must be true for the rule to match.
	When string `json:"when,omitempty" yaml:"when,omitempty"`

	Response ResponseSpec `json:"response" yaml:"response"`
}

// HasConditions reports whether the rule declares any condition at all.
func (r *ResponseRule) HasConditions() bool {
	return len(r.BodyConditions) > 0 || len(r.PathConditions) > 0 ||
		len(r.QueryConditions) > 0 || len(r.HeaderConditions) > 0 || r.When != ""
}

// Endpoint is one declared route: method, path pattern, auth requirements,
// and its ordered response rules.
type Endpoint struct {
	Method string `json:"method" yaml:"method" validate:"required"`
	// Path may contain {name} segments, each capturing one non-slash segment.
	Path string `json:"path" yaml:"path" validate:"required"`
	Tag  string `json:"tag,omitempty" yaml:"tag,omitempty"`

	// Authentication lists required method names; empty means public.
	// Every listed method must succeed (AND).
	Authentication []string `json:"authentication,omitempty" yaml:"authentication,omitempty"`

	// RequiredHeaders are exact-match header gates checked before auth.
	RequiredHeaders map[string]string `json:"required_headers,omitempty" yaml:"required_headers,omitempty"`

	// FormEncoded marks endpoints that read an x-www-form-urlencoded body
	// (login flows); the parsed form is treated as the request body.
	FormEncoded bool `json:"form_encoded,omitempty" yaml:"form_encoded,omitempty"`

	// RequestSchema is a raw JSON Schema applied to the request body.
	RequestSchema map[string]any `json:"request_schema,omitempty" yaml:"request_schema,omitempty"`

	Persistence *PersistenceSpec `json:"persistence,omitempty" yaml:"persistence,omitempty"`

	Responses []*ResponseRule `json:"responses" yaml:"responses" validate:"required,min=1"`
}

// Key returns the endpoint's uniqueness key: method plus normalized path.
// Path parameters are normalized to "{}" so /users/{id} and /users/{uid}
// collide, which is what duplicate detection wants.
func (e *Endpoint) Key() string {
	segments := strings.Split(e.Path, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segments[i] = "{}"
		}
	}
	return strings.ToUpper(e.Method) + " " + strings.Join(segments, "/")
}

// EndpointsConfig is the endpoint definitions document.
type EndpointsConfig struct {
	Endpoints []*Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Snapshot is one immutable, validated view of all three documents.
// A Snapshot is safe for concurrent reads; reload swaps in a new one.
type Snapshot struct {
	API       APIMetadata
	Auth      AuthConfig
	Endpoints []*Endpoint
}

// Method looks up an authentication method by name.
func (s *Snapshot) Method(name string) (*AuthMethod, bool) {
	m, ok := s.Auth.Methods[name]
	return m, ok
}

// SystemAuthMethod returns the method guarding the admin API, or nil when
// no admin auth is configured.
func (s *Snapshot) SystemAuthMethod() *AuthMethod {
	name := s.Auth.SystemMethod
	if name == "" {
		name = "system_api_key"
	}
	return s.Auth.Methods[name]
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("config: %d endpoints, %d auth methods", len(s.Endpoints), len(s.Auth.Methods))
}
