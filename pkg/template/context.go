// Package template resolves response templates against a single request.
// A template is any JSON-like value; strings inside it may carry path
// captures ({name}), request and stored-entity references and generators
// ({{...}}), and auth pool references (${auth.method.selector.property}).
// Resolution is pure over a ResolutionContext: the same context yields the
// same output, except where a generator explicitly introduces randomness.
package template

import (
	mathrand "math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/mockfig/mockfig/pkg/auth"
	"github.com/mockfig/mockfig/pkg/config"
	"github.com/mockfig/mockfig/pkg/persist"
)

// ResolutionContext is the immutable per-request view a template resolves
// against. Built once per request after auth and persistence have run.
type ResolutionContext struct {
	// PathParams are the {name} captures from endpoint matching.
	PathParams map[string]string
	// Body is the decoded request body (JSON object or parsed form), nil
	// when the request had none.
	Body map[string]any
	// Query and Headers come straight off the request.
	Query   url.Values
	Headers http.Header

	// Auth carries per-method verdicts and the pool draw cache.
	Auth *auth.Context
	// Methods resolves auth method names for ${auth...} references.
	Methods func(name string) (*config.AuthMethod, bool)

	// Stored is the persistence result for this request, nil when the
	// endpoint declares no persistence.
	Stored *persist.Result

	// Rand overrides the generator random source. Nil uses the global one.
	Rand *mathrand.Rand

	now time.Time
}

// Now returns the context's frozen clock, defaulting to wall time on first
// use so every generator in one response agrees on "now".
func (rc *ResolutionContext) Now() time.Time {
	if rc.now.IsZero() {
		rc.now = time.Now().UTC()
	}
	return rc.now
}

// SetNow pins the clock, for tests.
func (rc *ResolutionContext) SetNow(t time.Time) { rc.now = t }

func (rc *ResolutionContext) intN(n int) int {
	if rc.Rand != nil {
		return rc.Rand.IntN(n)
	}
	return mathrand.IntN(n)
}
