package config

import (
	"fmt"
	"strings"

	"github.com/mockfig/mockfig/internal/placeholder"
)

var validMethodTypes = map[MethodType]bool{
	TypeAPIKey:    true,
	TypeHTTPBasic: true,
	TypeBearer:    true,
	TypeOIDC:      true,
	TypeSession:   true,
	TypeCSRF:      true,
}

var validActions = map[string]bool{
	"create":   true,
	"retrieve": true,
	"update":   true,
	"delete":   true,
	"list":     true,
}

// Validate checks a Snapshot for internal consistency. It rejects unknown
// auth method types, endpoints referencing methods that do not exist,
// duplicate (method, path) endpoint keys, empty response lists, bad
// persistence actions, and statically malformed placeholders. Any error
// here is fatal at startup.
func Validate(snap *Snapshot) error {
	if err := structValidator.Struct(&snap.API); err != nil {
		return fmt.Errorf("api document: %w", err)
	}

	for name, m := range snap.Auth.Methods {
		if !validMethodTypes[m.Type] {
			return fmt.Errorf("auth method %q: unknown type %q", name, m.Type)
		}
		if m.Location != "" && m.Location != LocationHeader && m.Location != LocationQuery && m.Location != LocationCookie {
			return fmt.Errorf("auth method %q: unknown location %q", name, m.Location)
		}
		if len(m.Pool()) == 0 {
			return fmt.Errorf("auth method %q: credential pool is empty", name)
		}
		if m.JWTSigningKey != "" && m.Type != TypeBearer && m.Type != TypeOIDC {
			return fmt.Errorf("auth method %q: jwt_signing_key only applies to bearer/oidc methods", name)
		}
	}

	methodExists := func(name string) bool {
		_, ok := snap.Auth.Methods[name]
		return ok
	}

	seen := make(map[string]string)
	for i, ep := range snap.Endpoints {
		where := fmt.Sprintf("endpoint %d (%s %s)", i, ep.Method, ep.Path)

		if err := structValidator.Struct(ep); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("%s: path must start with /", where)
		}
		if err := validatePathPattern(ep.Path); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}

		key := ep.Key()
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%s: duplicates %s", where, prev)
		}
		seen[key] = fmt.Sprintf("%s %s", ep.Method, ep.Path)

		for _, ref := range ep.Authentication {
			if !methodExists(ref) {
				return fmt.Errorf("%s: references unknown auth method %q", where, ref)
			}
		}

		if ep.Persistence != nil && !validActions[ep.Persistence.Action] {
			return fmt.Errorf("%s: unknown persistence action %q", where, ep.Persistence.Action)
		}

		for j, rule := range ep.Responses {
			if rule.Response.StatusCode < 100 || rule.Response.StatusCode > 599 {
				return fmt.Errorf("%s response %d: invalid status code %d", where, j, rule.Response.StatusCode)
			}
			for _, hv := range rule.Response.Headers {
				if err := placeholder.Check(hv, methodExists); err != nil {
					return fmt.Errorf("%s response %d header: %w", where, j, err)
				}
			}
			if err := placeholder.CheckValue(rule.Response.Body, methodExists); err != nil {
				return fmt.Errorf("%s response %d body: %w", where, j, err)
			}
		}
	}

	return nil
}

// validatePathPattern rejects malformed {name} segments. Each parameter
// must be a whole segment with a non-empty name.
func validatePathPattern(path string) error {
	for _, seg := range strings.Split(path, "/") {
		open := strings.Count(seg, "{")
		closed := strings.Count(seg, "}")
		if open == 0 && closed == 0 {
			continue
		}
		if open != 1 || closed != 1 || !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			return fmt.Errorf("malformed path segment %q", seg)
		}
		if len(seg) == 2 {
			return fmt.Errorf("path parameter in %q has no name", path)
		}
	}
	return nil
}
