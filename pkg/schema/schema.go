// Package schema validates request bodies against per-endpoint JSON
// Schemas. Schemas arrive as raw maps inside the endpoint document and are
// compiled lazily the first time an endpoint sees traffic.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles and caches one endpoint's request schema.
type Validator struct {
	raw map[string]any

	once       sync.Once
	compiled   *jsonschema.Schema
	compileErr error
}

// New wraps a raw schema document. A nil raw map yields a Validator that
// accepts everything.
func New(raw map[string]any) *Validator {
	return &Validator{raw: raw}
}

// ValidationError carries the individual field failures for a 422 payload.
type ValidationError struct {
	Causes []string
}

func (e *ValidationError) Error() string {
	return "request body validation failed: " + strings.Join(e.Causes, "; ")
}

func (v *Validator) compile() {
	doc, err := json.Marshal(v.raw)
	if err != nil {
		v.compileErr = fmt.Errorf("encode schema: %w", err)
		return
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource("request.json", bytes.NewReader(doc)); err != nil {
		v.compileErr = fmt.Errorf("add schema resource: %w", err)
		return
	}
	v.compiled, v.compileErr = c.Compile("request.json")
}

// Validate checks a decoded request body. It returns a *ValidationError on
// body failures and a plain error when the schema itself cannot compile.
func (v *Validator) Validate(body any) error {
	if v.raw == nil {
		return nil
	}
	v.once.Do(v.compile)
	if v.compileErr != nil {
		return v.compileErr
	}

	err := v.compiled.Validate(body)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Causes: []string{err.Error()}}
	}
	return &ValidationError{Causes: leafCauses(ve)}
}

// leafCauses flattens the validation tree into one message per failing
// leaf, prefixed with the instance location so clients can find the field.
func leafCauses(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, ve.Message)}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}
