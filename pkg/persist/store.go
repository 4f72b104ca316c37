// Package persist stores entities created through mocked write endpoints
// so later reads return what was written. Entities are wrapped in a small
// envelope carrying identity and creation metadata; the payload itself is
// opaque JSON.
package persist

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrNotFound reports a missing entity.
	ErrNotFound = errors.New("entity not found")
	// ErrUnavailable reports an unreachable backend. Handlers translate it
	// to 503 rather than failing the whole request pipeline.
	ErrUnavailable = errors.New("entity store unavailable")
)

// Entity is the stored envelope around a created payload.
type Entity struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	CreatedAt  time.Time      `json:"created_at"`
	Data       map[string]any `json:"data"`
}

// EntityStore is the narrow CRUD surface handlers dispatch against.
// Implementations must be safe for concurrent use.
type EntityStore interface {
	// Get returns the entity or ErrNotFound.
	Get(ctx context.Context, entityType, id string) (*Entity, error)
	// Put creates or replaces an entity.
	Put(ctx context.Context, e *Entity) error
	// Delete removes an entity; deleting a missing entity returns ErrNotFound.
	Delete(ctx context.Context, entityType, id string) error
	// List returns all entities of a type, in unspecified order.
	List(ctx context.Context, entityType string) ([]*Entity, error)
	// Flush removes every stored entity.
	Flush(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
