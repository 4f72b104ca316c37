package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/mockfig/mockfig/internal/placeholder"
	"github.com/mockfig/mockfig/pkg/persist"
)

// Resolve walks a template value and substitutes every placeholder.
// Maps and slices are resolved recursively into fresh copies; the template
// itself is never mutated, so a config snapshot stays shared across
// requests safely.
func (rc *ResolutionContext) Resolve(v any) any {
	switch val := v.(type) {
	case string:
		return rc.ResolveString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = rc.Resolve(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = rc.Resolve(item)
		}
		return out
	default:
		return v
	}
}

// ResolveString substitutes the placeholders in one template string.
//
// A string that is exactly one placeholder resolves to the native value it
// names, so `"{{stored.data}}"` injects the stored object itself rather
// than its string form. Mixed strings concatenate stringified values, and
// their literal portions additionally pass through timestamp
// normalization so sample timestamps in config read as recent activity.
func (rc *ResolutionContext) ResolveString(s string) any {
	tokens := placeholder.Scan(s)

	if len(tokens) == 1 && tokens[0].Kind != placeholder.KindLiteral {
		if v, ok := rc.resolveToken(tokens[0]); ok {
			return v
		}
		return tokens[0].Text
	}

	var b strings.Builder
	for _, tok := range tokens {
		if tok.Kind == placeholder.KindLiteral {
			b.WriteString(rc.normalizeTimestamps(tok.Text))
			continue
		}
		v, ok := rc.resolveToken(tok)
		if !ok {
			b.WriteString(tok.Text)
			continue
		}
		b.WriteString(stringifyValue(v))
	}
	return b.String()
}

func (rc *ResolutionContext) resolveToken(tok placeholder.Token) (any, bool) {
	switch tok.Kind {
	case placeholder.KindPathCapture:
		v, ok := rc.PathParams[tok.Name]
		return v, ok
	case placeholder.KindGenerator:
		return rc.generate(tok.Name), true
	case placeholder.KindRequestRef:
		v, ok := rc.resolveRequestRef(tok.Path)
		if !ok {
			// Missing request fields substitute null, not the raw token.
			return nil, true
		}
		return v, true
	case placeholder.KindStoredRef:
		return lookupPath(rc.storedView(), tok.Path)
	case placeholder.KindAuthRef:
		return rc.resolveAuthRef(tok)
	}
	return nil, false
}

// resolveRequestRef looks up a dotted path in the request body. A
// single-segment path that misses the body falls back to path captures,
// then query parameters, then headers.
func (rc *ResolutionContext) resolveRequestRef(path []string) (any, bool) {
	if rc.Body != nil {
		if v, ok := lookupPath(rc.Body, path); ok {
			return v, true
		}
	}
	if len(path) != 1 {
		return nil, false
	}
	name := path[0]
	if v, ok := rc.PathParams[name]; ok {
		return v, true
	}
	if rc.Query != nil && rc.Query.Has(name) {
		return rc.Query.Get(name), true
	}
	if rc.Headers != nil {
		if v := rc.Headers.Get(name); v != "" {
			return v, true
		}
	}
	return nil, false
}

// storedView projects the persistence result as a lookup tree.
// Single-entity actions expose id, entity_type, created_at, and data;
// list actions expose entities and count.
func (rc *ResolutionContext) storedView() map[string]any {
	if rc.Stored == nil {
		return nil
	}
	if rc.Stored.Entities != nil {
		entities := make([]any, len(rc.Stored.Entities))
		for i, e := range rc.Stored.Entities {
			entities[i] = entityView(e)
		}
		return map[string]any{
			"entities": entities,
			"count":    len(entities),
		}
	}
	if rc.Stored.Entity == nil {
		return nil
	}
	return entityView(rc.Stored.Entity)
}

func entityView(e *persist.Entity) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"entity_type": e.EntityType,
		"created_at":  e.CreatedAt.Format(time.RFC3339),
		"data":        e.Data,
	}
}

// resolveAuthRef projects a property off a pool record chosen by the
// reference's selector.
func (rc *ResolutionContext) resolveAuthRef(tok placeholder.Token) (any, bool) {
	if rc.Auth == nil || rc.Methods == nil {
		return nil, false
	}
	m, ok := rc.Methods(tok.Method)
	if !ok {
		return nil, false
	}
	rec, ok := rc.Auth.Draw(m, tok.Selector)
	if !ok {
		return nil, false
	}

	prop := tok.Property
	if prop == "" {
		// Bare random_key projects the key itself.
		prop = "key"
	}
	v, ok := rec[prop]
	return v, ok
}

// lookupPath walks a dotted path through nested maps.
func lookupPath(root map[string]any, path []string) (any, bool) {
	if root == nil {
		return nil, false
	}
	var cur any = root
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// stringifyValue renders a resolved value for concatenation into a larger
// string. Numbers keep their JSON form; integral floats drop the fraction.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
