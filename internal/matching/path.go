// Package matching implements request-to-endpoint matching.
package matching

import (
	"strings"
)

// MatchPath checks a request path against a pattern with {name} segments.
// Each parameter captures exactly one non-slash segment; literal segments
// must match exactly. Returns the captured parameters and whether the
// pattern matched. There are no wildcards or optional segments.
func MatchPath(pattern, path string) (map[string]string, bool) {
	if pattern == path {
		return map[string]string{}, true
	}

	patternParts := splitPath(pattern)
	pathParts := splitPath(path)
	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	captures := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if pathParts[i] == "" {
				return nil, false
			}
			captures[name] = pathParts[i]
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}

	return captures, true
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

// ParamNames returns the {name} parameters declared in a pattern, in order.
func ParamNames(pattern string) []string {
	var names []string
	for _, part := range splitPath(pattern) {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			names = append(names, part[1:len(part)-1])
		}
	}
	return names
}
