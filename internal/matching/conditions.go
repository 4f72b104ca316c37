package matching

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// regexPrefix marks a condition value that should be treated as an RE2
// pattern rather than compared for equality.
const regexPrefix = "regex:"

// regexCache holds compiled condition patterns across requests. Patterns
// come from configuration, so the set is small and fixed per snapshot; a
// failed compile is cached as nil so bad patterns are not retried per hit.
var regexCache sync.Map // string -> *regexp.Regexp

func compilePattern(pattern string) *regexp.Regexp {
	if cached, ok := regexCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	actual, _ := regexCache.LoadOrStore(pattern, re)
	compiled, _ := actual.(*regexp.Regexp)
	return compiled
}

// MatchValue compares an actual value against an expected condition value.
// String conditions prefixed "regex:" match as anchored-nowhere RE2
// patterns; everything else is compared for equality after normalizing
// numbers to their JSON representation.
func MatchValue(expected any, actual any) bool {
	if s, ok := expected.(string); ok {
		if pattern, isRegex := strings.CutPrefix(s, regexPrefix); isRegex {
			re := compilePattern(pattern)
			if re == nil {
				return false
			}
			return re.MatchString(stringify(actual))
		}
	}

	if expected == actual {
		return true
	}
	// JSON numbers decode as float64; conditions written as ints in YAML
	// still need to compare equal against them.
	return stringify(expected) == stringify(actual) && actual != nil
}

func stringify(v any) string {
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
	default:
		return fmt.Sprintf("%v", val)
	}
}

// MatchBodyConditions checks field conditions against a parsed JSON body.
// All conditions must hold; a nil body fails any non-empty condition set.
func MatchBodyConditions(conditions map[string]any, body map[string]any) bool {
	for field, expected := range conditions {
		if body == nil {
			return false
		}
		actual, ok := body[field]
		if !ok {
			return false
		}
		if !MatchValue(expected, actual) {
			return false
		}
	}
	return true
}

// MatchPathConditions checks conditions against captured path parameters.
func MatchPathConditions(conditions map[string]string, captures map[string]string) bool {
	for name, expected := range conditions {
		actual, ok := captures[name]
		if !ok || !MatchValue(expected, actual) {
			return false
		}
	}
	return true
}

// MatchQueryConditions checks conditions against request query parameters.
func MatchQueryConditions(conditions map[string]string, query url.Values) bool {
	for name, expected := range conditions {
		if !query.Has(name) {
			return false
		}
		if !MatchValue(expected, query.Get(name)) {
			return false
		}
	}
	return true
}

// MatchHeaderConditions checks conditions against request headers.
// Header names are compared case-insensitively.
func MatchHeaderConditions(conditions map[string]string, headers http.Header) bool {
	for name, expected := range conditions {
		actual := headers.Get(name)
		if actual == "" {
			return false
		}
		if !MatchValue(expected, actual) {
			return false
		}
	}
	return true
}
