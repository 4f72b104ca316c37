// Package placeholder scans template strings into typed tokens.
// The scanner is a small recursive descent over the input: it recognizes
// ${auth.method.selector.property} references, {{...}} expressions
// (generators and request/stored lookups), and bare {name} path captures.
// Everything else is literal text. Resolution happens elsewhere; this
// package has no opinion on what the tokens mean.
package placeholder

import (
	"fmt"
	"strings"
)

// Kind discriminates token types.
type Kind int

// Token kinds.
const (
	KindLiteral Kind = iota
	KindPathCapture
	KindRequestRef
	KindStoredRef
	KindGenerator
	KindAuthRef
)

// Generator names understood by the resolver.
const (
	GenRandomUUID       = "random_uuid"
	GenCurrentTimestamp = "current_timestamp"
	GenTimestamp        = "timestamp"
	GenDate             = "date"
	GenUnixTimestamp    = "unix_timestamp"
	GenUnixTimestampMs  = "unix_timestamp_ms"
)

// KnownGenerators is the closed set of built-in generator names.
var KnownGenerators = map[string]bool{
	GenRandomUUID:       true,
	GenCurrentTimestamp: true,
	GenTimestamp:        true,
	GenDate:             true,
	GenUnixTimestamp:    true,
	GenUnixTimestampMs:  true,
}

// Auth reference selectors.
const (
	SelectorRandomSession  = "random_session"
	SelectorCurrentSession = "current_session"
	SelectorRandomKey      = "random_key"
)

// Token is one scanned segment of a template string.
type Token struct {
	Kind Kind

	// Text is the raw source text of the token (literal content for
	// KindLiteral, the full placeholder otherwise).
	Text string

	// Name is the capture name (path captures) or generator name.
	Name string

	// Path is the dotted lookup path for request/stored references.
	Path []string

	// Method, Selector, Property describe auth references.
	Method   string
	Selector string
	Property string
}

// Scan splits a template string into tokens. It never fails: text that
// looks like a placeholder but cannot be parsed is returned as a literal,
// so callers decide whether that is a configuration error (see Check) or
// passes through verbatim at request time.
func Scan(s string) []Token {
	var tokens []Token
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, Token{Kind: KindLiteral, Text: literal.String()})
			literal.Reset()
		}
	}

	i := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], "${auth."):
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				literal.WriteString(s[i:])
				i = len(s)
				continue
			}
			raw := s[i : i+end+1]
			if tok, ok := parseAuthRef(raw); ok {
				flush()
				tokens = append(tokens, tok)
			} else {
				literal.WriteString(raw)
			}
			i += end + 1

		case strings.HasPrefix(s[i:], "{{"):
			end := strings.Index(s[i:], "}}")
			if end < 0 {
				literal.WriteString(s[i:])
				i = len(s)
				continue
			}
			raw := s[i : i+end+2]
			if tok, ok := parseExpr(raw); ok {
				flush()
				tokens = append(tokens, tok)
			} else {
				literal.WriteString(raw)
			}
			i += end + 2

		case s[i] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				literal.WriteString(s[i:])
				i = len(s)
				continue
			}
			name := s[i+1 : i+end]
			if isIdent(name) {
				flush()
				tokens = append(tokens, Token{Kind: KindPathCapture, Text: s[i : i+end+1], Name: name})
				i += end + 1
				continue
			}
			literal.WriteByte(s[i])
			i++

		default:
			literal.WriteByte(s[i])
			i++
		}
	}
	flush()

	return tokens
}

// parseAuthRef parses ${auth.method.selector[.property]}.
func parseAuthRef(raw string) (Token, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "${auth."), "}")
	parts := strings.Split(inner, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Token{}, false
	}
	for _, p := range parts {
		if p == "" {
			return Token{}, false
		}
	}
	tok := Token{
		Kind:     KindAuthRef,
		Text:     raw,
		Method:   parts[0],
		Selector: parts[1],
	}
	if len(parts) == 3 {
		tok.Property = parts[2]
	}
	return tok, true
}

// parseExpr parses {{request.a.b}}, {{stored.a.b}}, or {{generator}}.
func parseExpr(raw string) (Token, bool) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "{{"), "}}"))
	if inner == "" {
		return Token{}, false
	}

	if rest, ok := strings.CutPrefix(inner, "request."); ok {
		path := strings.Split(rest, ".")
		for _, p := range path {
			if p == "" {
				return Token{}, false
			}
		}
		return Token{Kind: KindRequestRef, Text: raw, Path: path}, true
	}

	if rest, ok := strings.CutPrefix(inner, "stored."); ok {
		path := strings.Split(rest, ".")
		for _, p := range path {
			if p == "" {
				return Token{}, false
			}
		}
		return Token{Kind: KindStoredRef, Text: raw, Path: path}, true
	}

	if !isIdent(inner) {
		return Token{}, false
	}
	return Token{Kind: KindGenerator, Text: raw, Name: inner}, true
}

// isIdent reports whether s is a plain identifier (letters, digits,
// underscores, starting with a letter or underscore).
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Check statically validates the placeholders in a template string.
// methodExists reports whether an auth method name is configured.
// Returns the first problem found, or nil.
func Check(s string, methodExists func(string) bool) error {
	for _, tok := range Scan(s) {
		switch tok.Kind {
		case KindGenerator:
			if !KnownGenerators[tok.Name] {
				return fmt.Errorf("unknown generator {{%s}}", tok.Name)
			}
		case KindAuthRef:
			if !methodExists(tok.Method) {
				return fmt.Errorf("auth placeholder %q references unknown method %q", tok.Text, tok.Method)
			}
			switch tok.Selector {
			case SelectorRandomSession, SelectorCurrentSession:
				if tok.Property == "" {
					return fmt.Errorf("auth placeholder %q needs a property", tok.Text)
				}
			case SelectorRandomKey:
				// Property optional: bare random_key projects the key itself.
			default:
				return fmt.Errorf("auth placeholder %q uses unknown selector %q", tok.Text, tok.Selector)
			}
		}
	}
	return nil
}

// CheckValue applies Check recursively over strings in a JSON-like value.
func CheckValue(v any, methodExists func(string) bool) error {
	switch val := v.(type) {
	case string:
		return Check(val, methodExists)
	case map[string]any:
		for _, item := range val {
			if err := CheckValue(item, methodExists); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range val {
			if err := CheckValue(item, methodExists); err != nil {
				return err
			}
		}
	}
	return nil
}
