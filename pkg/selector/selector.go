// Package selector picks which of an endpoint's response rules answers a
// request. Rules are evaluated in declaration order and the first match
// wins; within one rule every declared condition must hold.
package selector

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mockfig/mockfig/internal/matching"
	"github.com/mockfig/mockfig/pkg/config"
)

// Request is the view of a request that rule conditions see.
type Request struct {
	// Body is the decoded request body, nil when absent.
	Body map[string]any
	// PathParams are the endpoint's captured path parameters.
	PathParams map[string]string
	Query      url.Values
	Headers    http.Header
}

// Selector evaluates response rules. Compiled `when` expressions are
// cached per source string across requests.
type Selector struct {
	programs sync.Map // string -> *vm.Program
}

// New returns a Selector.
func New() *Selector {
	return &Selector{}
}

// Select returns the first rule whose conditions all match, or nil when no
// rule matches. A rule with no conditions matches unconditionally, which
// is how default responses are declared (conventionally last).
func (s *Selector) Select(rules []*config.ResponseRule, req *Request) *config.ResponseRule {
	for _, rule := range rules {
		if s.matches(rule, req) {
			return rule
		}
	}
	return nil
}

func (s *Selector) matches(rule *config.ResponseRule, req *Request) bool {
	if !matching.MatchBodyConditions(rule.BodyConditions, req.Body) {
		return false
	}
	if !matching.MatchPathConditions(rule.PathConditions, req.PathParams) {
		return false
	}
	if !matching.MatchQueryConditions(rule.QueryConditions, req.Query) {
		return false
	}
	if !matching.MatchHeaderConditions(rule.HeaderConditions, req.Headers) {
		return false
	}
	if rule.When != "" && !s.evalWhen(rule.When, req) {
		return false
	}
	return true
}

// evalWhen evaluates a `when` expression against the request environment.
// Any compile or runtime failure counts as no-match; a broken expression
// should skip its rule, not break the endpoint.
func (s *Selector) evalWhen(src string, req *Request) bool {
	var program *vm.Program
	if cached, ok := s.programs.Load(src); ok {
		program = cached.(*vm.Program)
	} else {
		compiled, err := expr.Compile(src, expr.AsBool())
		if err != nil {
			return false
		}
		actual, _ := s.programs.LoadOrStore(src, compiled)
		program = actual.(*vm.Program)
	}

	query := make(map[string]string, len(req.Query))
	for k := range req.Query {
		query[k] = req.Query.Get(k)
	}
	headers := make(map[string]string, len(req.Headers))
	for k := range req.Headers {
		headers[k] = req.Headers.Get(k)
	}

	env := map[string]any{
		"body":    req.Body,
		"path":    req.PathParams,
		"query":   query,
		"headers": headers,
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}
