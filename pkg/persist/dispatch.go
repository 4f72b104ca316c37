package persist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mockfig/mockfig/pkg/config"
)

// Dispatcher executes the single store operation an endpoint declares and
// hands the affected entity (or entity list) back for template resolution.
type Dispatcher struct {
	store EntityStore
}

// NewDispatcher returns a Dispatcher over store.
func NewDispatcher(store EntityStore) *Dispatcher {
	return &Dispatcher{store: store}
}

// Result is what a persistence action produced. Exactly one of Entity and
// Entities is set, except for delete where both are nil.
type Result struct {
	Entity   *Entity
	Entities []*Entity
}

// Apply runs the declared action. The entity id comes from the request:
// path captures for reads and deletes, the body (falling back to a fresh
// UUID) for creates.
func (d *Dispatcher) Apply(ctx context.Context, spec *config.PersistenceSpec, captures map[string]string, body map[string]any) (*Result, error) {
	switch spec.Action {
	case "create":
		return d.create(ctx, spec.EntityName, captures, body)
	case "retrieve":
		return d.retrieve(ctx, spec.EntityName, captures)
	case "update":
		return d.update(ctx, spec.EntityName, captures, body)
	case "delete":
		return d.delete(ctx, spec.EntityName, captures)
	case "list":
		return d.list(ctx, spec.EntityName)
	}
	return nil, fmt.Errorf("unknown persistence action %q", spec.Action)
}

// entityID picks the identifier from path captures: an exact "id" capture
// wins, then any capture named like "user_id". Create endpoints have no
// capture and fall through to the caller's fallback.
func entityID(captures map[string]string) (string, bool) {
	if id, ok := captures["id"]; ok {
		return id, true
	}
	for name, v := range captures {
		if strings.HasSuffix(name, "_id") {
			return v, true
		}
	}
	return "", false
}

func (d *Dispatcher) create(ctx context.Context, entityType string, captures map[string]string, body map[string]any) (*Result, error) {
	id, ok := entityID(captures)
	if !ok {
		if bodyID, isStr := body["id"].(string); isStr && bodyID != "" {
			id = bodyID
		} else {
			id = uuid.NewString()
		}
	}

	e := &Entity{
		ID:         id,
		EntityType: entityType,
		CreatedAt:  time.Now().UTC(),
		Data:       body,
	}
	if err := d.store.Put(ctx, e); err != nil {
		return nil, err
	}
	return &Result{Entity: e}, nil
}

func (d *Dispatcher) retrieve(ctx context.Context, entityType string, captures map[string]string) (*Result, error) {
	id, ok := entityID(captures)
	if !ok {
		return nil, fmt.Errorf("retrieve %s: no id parameter in path", entityType)
	}
	e, err := d.store.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	return &Result{Entity: e}, nil
}

func (d *Dispatcher) update(ctx context.Context, entityType string, captures map[string]string, body map[string]any) (*Result, error) {
	id, ok := entityID(captures)
	if !ok {
		return nil, fmt.Errorf("update %s: no id parameter in path", entityType)
	}
	e, err := d.store.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}

	// Shallow merge: updated fields replace, untouched fields survive.
	merged := make(map[string]any, len(e.Data)+len(body))
	for k, v := range e.Data {
		merged[k] = v
	}
	for k, v := range body {
		merged[k] = v
	}
	e.Data = merged

	if err := d.store.Put(ctx, e); err != nil {
		return nil, err
	}
	return &Result{Entity: e}, nil
}

func (d *Dispatcher) delete(ctx context.Context, entityType string, captures map[string]string) (*Result, error) {
	id, ok := entityID(captures)
	if !ok {
		return nil, fmt.Errorf("delete %s: no id parameter in path", entityType)
	}
	if err := d.store.Delete(ctx, entityType, id); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (d *Dispatcher) list(ctx context.Context, entityType string) (*Result, error) {
	entities, err := d.store.List(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return &Result{Entities: entities}, nil
}
