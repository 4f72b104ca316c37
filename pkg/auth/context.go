// Package auth evaluates composable authentication policies against
// incoming requests. An endpoint lists required method names (AND); each
// method owns a pool of credential records, any one of which satisfies it
// (OR). The record that matched becomes the method's selection, recorded in
// a per-request Context so template placeholders can project properties off
// the exact record that authenticated the request.
package auth

import (
	mathrand "math/rand/v2"

	"github.com/mockfig/mockfig/pkg/config"
)

// Verdict is the outcome of evaluating one method for one request.
type Verdict struct {
	// Matched reports whether any pool record satisfied the method.
	Matched bool
	// Selection is the record that matched, nil when Matched is false.
	Selection config.Record
	// Err is the failure description ("Missing API key", ...) when not matched.
	Err string
}

// Context carries per-request authentication state: one verdict per
// evaluated method plus the cache of pseudo-random pool draws made for
// template placeholders. A Context belongs to exactly one request and is
// only ever touched from that request's goroutine, so it needs no locking.
type Context struct {
	verdicts map[string]*Verdict
	draws    map[string]config.Record

	// Rand overrides the random source for pool draws. Nil uses the
	// process-wide math/rand/v2 source, which is safe for concurrent use.
	Rand *mathrand.Rand
}

// NewContext returns an empty per-request Context.
func NewContext() *Context {
	return &Context{
		verdicts: make(map[string]*Verdict),
		draws:    make(map[string]config.Record),
	}
}

// Verdict returns the evaluation outcome for a method, or nil if the
// method was not part of this request's required authentication.
func (c *Context) Verdict(method string) *Verdict {
	return c.verdicts[method]
}

// Selection returns the bound record for a method that matched.
func (c *Context) Selection(method string) (config.Record, bool) {
	v := c.verdicts[method]
	if v == nil || !v.Matched {
		return nil, false
	}
	return v.Selection, true
}

func (c *Context) record(method string, v *Verdict) {
	c.verdicts[method] = v
}

func (c *Context) intN(n int) int {
	if c.Rand != nil {
		return c.Rand.IntN(n)
	}
	return mathrand.IntN(n)
}

// Draw resolves a pool selection for a template placeholder.
//
// If the method was required for this request and matched, the bound
// selection is reused so placeholder values stay correlated with the
// credentials that authenticated the request. Otherwise a record is drawn
// pseudo-randomly from the configured pool and cached under
// method+selector, so two placeholders naming the same selection within
// one response always resolve against the same record.
func (c *Context) Draw(m *config.AuthMethod, selector string) (config.Record, bool) {
	if sel, ok := c.Selection(m.Name); ok {
		return sel, true
	}
	if selector == "current_session" {
		// current_session only resolves against a bound session.
		return nil, false
	}

	key := m.Name + "." + selector
	if rec, ok := c.draws[key]; ok {
		return rec, true
	}

	pool := m.Pool()
	if len(pool) == 0 {
		return nil, false
	}
	rec := pool[c.intN(len(pool))]
	c.draws[key] = rec
	return rec, true
}
