// Package engine ties endpoint matching, authentication, response
// selection, persistence, and template resolution into the request
// pipeline. Each request resolves against one immutable config snapshot
// taken at entry; a reload mid-request never changes behavior in flight.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mockfig/mockfig/internal/matching"
	"github.com/mockfig/mockfig/pkg/auth"
	"github.com/mockfig/mockfig/pkg/config"
	"github.com/mockfig/mockfig/pkg/persist"
	"github.com/mockfig/mockfig/pkg/schema"
	"github.com/mockfig/mockfig/pkg/selector"
	"github.com/mockfig/mockfig/pkg/template"
)

// maxBodyBytes bounds request bodies; mock payloads are small.
const maxBodyBytes = 10 << 20

// Engine resolves requests against the current configuration snapshot.
type Engine struct {
	store      *config.Store
	evaluator  *auth.Evaluator
	selector   *selector.Selector
	dispatcher *persist.Dispatcher
	log        *slog.Logger
	metrics    *Metrics

	// validators caches compiled request schemas per endpoint. Entries are
	// keyed by endpoint pointer, so a reload naturally starts a fresh set.
	validators sync.Map // *config.Endpoint -> *schema.Validator
}

// New assembles an Engine. metrics may be nil.
func New(store *config.Store, dispatcher *persist.Dispatcher, log *slog.Logger, metrics *Metrics) *Engine {
	return &Engine{
		store:      store,
		evaluator:  auth.NewEvaluator(),
		selector:   selector.New(),
		dispatcher: dispatcher,
		log:        log,
		metrics:    metrics,
	}
}

// ServeHTTP resolves one request end to end.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := e.store.Snapshot()

	ep, captures := e.match(snap, r)

	// Unmatched paths get a fixed label so client-supplied garbage cannot
	// blow up metric cardinality.
	pattern := "unmatched"
	if ep != nil {
		pattern = ep.Path
	}

	status := e.resolve(w, r, snap, ep, captures)

	elapsed := time.Since(start)
	e.metrics.observe(r.Method, pattern, status, elapsed.Seconds())
	e.log.Info("request resolved",
		"method", r.Method,
		"path", r.URL.Path,
		"endpoint", pattern,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
	)
}

// match finds the endpoint whose method and path pattern cover the request.
func (e *Engine) match(snap *config.Snapshot, r *http.Request) (*config.Endpoint, map[string]string) {
	path := r.URL.Path
	if base := snap.API.BasePath; base != "" {
		stripped, ok := strings.CutPrefix(path, base)
		if !ok {
			return nil, nil
		}
		if stripped == "" {
			stripped = "/"
		}
		path = stripped
	}

	for _, ep := range snap.Endpoints {
		if !strings.EqualFold(ep.Method, r.Method) {
			continue
		}
		if captures, ok := matching.MatchPath(ep.Path, path); ok {
			return ep, captures
		}
	}
	return nil, nil
}

// resolve runs the pipeline for a matched endpoint and returns the status
// code written.
func (e *Engine) resolve(w http.ResponseWriter, r *http.Request, snap *config.Snapshot, ep *config.Endpoint, captures map[string]string) int {
	if ep == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No endpoint matches %s %s", r.Method, r.URL.Path))
		return http.StatusNotFound
	}

	for name, expected := range ep.RequiredHeaders {
		if r.Header.Get(name) != expected {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing or invalid required header %s", name))
			return http.StatusBadRequest
		}
	}

	actx, err := e.evaluator.Evaluate(ep.Authentication, r, snap)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			for name := range authErr.Failures {
				e.metrics.authFailure(name)
			}
		}
		writeError(w, http.StatusUnauthorized, err.Error())
		return http.StatusUnauthorized
	}

	body, err := e.readBody(r, ep)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest
	}

	if err := e.validateBody(ep, body); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusUnprocessableEntity, "Request body validation failed", ve.Causes...)
			return http.StatusUnprocessableEntity
		}
		e.log.Error("request schema unusable", "endpoint", ep.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Request schema misconfigured")
		return http.StatusInternalServerError
	}

	rule := e.selector.Select(ep.Responses, &selector.Request{
		Body:       body,
		PathParams: captures,
		Query:      r.URL.Query(),
		Headers:    r.Header,
	})
	if rule == nil {
		writeError(w, http.StatusNotFound, "No matching response configured for this request")
		return http.StatusNotFound
	}

	var stored *persist.Result
	if ep.Persistence != nil {
		stored, err = e.dispatcher.Apply(r.Context(), ep.Persistence, captures, body)
		if err != nil {
			return e.writePersistError(w, ep, err)
		}
	}

	rc := &template.ResolutionContext{
		PathParams: captures,
		Body:       body,
		Query:      r.URL.Query(),
		Headers:    r.Header,
		Auth:       actx,
		Methods:    snap.Method,
		Stored:     stored,
	}
	writeResponse(w, rc, &rule.Response)
	return rule.Response.StatusCode
}

func (e *Engine) writePersistError(w http.ResponseWriter, ep *config.Endpoint, err error) int {
	switch {
	case errors.Is(err, persist.ErrNotFound):
		detail := fmt.Sprintf("%s not found", ep.Persistence.EntityName)
		writeError(w, http.StatusNotFound, detail)
		return http.StatusNotFound
	case errors.Is(err, persist.ErrUnavailable):
		e.log.Error("entity store unavailable", "entity", ep.Persistence.EntityName, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Entity store unavailable")
		return http.StatusServiceUnavailable
	default:
		e.log.Error("persistence failed", "entity", ep.Persistence.EntityName, "error", err)
		writeError(w, http.StatusInternalServerError, "Persistence operation failed")
		return http.StatusInternalServerError
	}
}

// readBody decodes the request body per the endpoint's declared encoding.
// Form endpoints parse x-www-form-urlencoded into a flat map; everything
// else with a JSON content type decodes as a JSON object. Non-object JSON
// bodies are kept under a "body" key so conditions can still see them.
func (e *Engine) readBody(r *http.Request, ep *config.Endpoint) (map[string]any, error) {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	if ep.FormEncoded {
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("Invalid form body")
		}
		form := make(map[string]any, len(r.PostForm))
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		return form, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("Failed to read request body")
	}
	if len(raw) == 0 {
		return nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			if mt != "application/json" && !strings.HasSuffix(mt, "+json") {
				return nil, nil
			}
		}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.New("Invalid JSON body")
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"body": decoded}, nil
}

func (e *Engine) validateBody(ep *config.Endpoint, body map[string]any) error {
	if ep.RequestSchema == nil {
		return nil
	}
	cached, ok := e.validators.Load(ep)
	if !ok {
		cached, _ = e.validators.LoadOrStore(ep, schema.New(ep.RequestSchema))
	}
	v := cached.(*schema.Validator)

	// Schemas validate the decoded body; an absent body validates as an
	// empty object so `required` still bites.
	var instance any = map[string]any{}
	if body != nil {
		instance = body
	}
	return v.Validate(instance)
}

// writeResponse resolves the rule's template and writes it out.
func writeResponse(w http.ResponseWriter, rc *template.ResolutionContext, spec *config.ResponseSpec) {
	for name, value := range spec.Headers {
		resolved := rc.Resolve(value)
		if s, ok := resolved.(string); ok {
			w.Header().Set(name, s)
		} else {
			w.Header().Set(name, fmt.Sprintf("%v", resolved))
		}
	}

	if spec.Body == nil {
		w.WriteHeader(spec.StatusCode)
		return
	}

	resolved := rc.Resolve(spec.Body)
	if s, ok := resolved.(string); ok && w.Header().Get("Content-Type") != "" &&
		!strings.Contains(w.Header().Get("Content-Type"), "json") {
		w.WriteHeader(spec.StatusCode)
		_, _ = io.WriteString(w, s)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(spec.StatusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resolved)
}
