package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockfig/mockfig/pkg/config"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e := &Entity{
		ID:         "dev-1",
		EntityType: "device",
		CreatedAt:  time.Now().UTC(),
		Data:       map[string]any{"hostname": "edge-router"},
	}
	require.NoError(t, s.Put(ctx, e))

	got, err := s.Get(ctx, "device", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "edge-router", got.Data["hostname"])

	_, err = s.Get(ctx, "device", "dev-2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "user", "dev-1")
	assert.ErrorIs(t, err, ErrNotFound, "type is part of the key")

	list, err := s.List(ctx, "device")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, "device", "dev-1"))
	assert.ErrorIs(t, s.Delete(ctx, "device", "dev-1"), ErrNotFound)

	require.NoError(t, s.Put(ctx, e))
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, s.Len())
}

func TestDispatcherCreateRetrieveRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(NewMemoryStore())

	created, err := d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "create"},
		nil,
		map[string]any{"hostname": "edge-router", "site": "lab"},
	)
	require.NoError(t, err)
	require.NotNil(t, created.Entity)
	assert.NotEmpty(t, created.Entity.ID)
	assert.Equal(t, "device", created.Entity.EntityType)

	got, err := d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "retrieve"},
		map[string]string{"device_id": created.Entity.ID},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "edge-router", got.Entity.Data["hostname"])
	assert.Equal(t, "lab", got.Entity.Data["site"])
}

func TestDispatcherCreateUsesBodyID(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(NewMemoryStore())

	res, err := d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "create"},
		nil,
		map[string]any{"id": "given-id"},
	)
	require.NoError(t, err)
	assert.Equal(t, "given-id", res.Entity.ID)
}

func TestDispatcherUpdateMergesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDispatcher(store)

	_, err := d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "create"},
		map[string]string{"id": "dev-1"},
		map[string]any{"hostname": "edge-router", "site": "lab"},
	)
	require.NoError(t, err)

	updated, err := d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "update"},
		map[string]string{"id": "dev-1"},
		map[string]any{"site": "prod"},
	)
	require.NoError(t, err)
	assert.Equal(t, "prod", updated.Entity.Data["site"])
	assert.Equal(t, "edge-router", updated.Entity.Data["hostname"], "untouched fields survive")
}

func TestDispatcherDeleteAndList(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(NewMemoryStore())

	for _, id := range []string{"a", "b"} {
		_, err := d.Apply(ctx,
			&config.PersistenceSpec{EntityName: "device", Action: "create"},
			map[string]string{"device_id": id},
			map[string]any{},
		)
		require.NoError(t, err)
	}

	listed, err := d.Apply(ctx, &config.PersistenceSpec{EntityName: "device", Action: "list"}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, listed.Entities, 2)

	_, err = d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "delete"},
		map[string]string{"device_id": "a"},
		nil,
	)
	require.NoError(t, err)

	_, err = d.Apply(ctx,
		&config.PersistenceSpec{EntityName: "device", Action: "retrieve"},
		map[string]string{"device_id": "a"},
		nil,
	)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatcherRetrieveNeedsID(t *testing.T) {
	d := NewDispatcher(NewMemoryStore())
	_, err := d.Apply(context.Background(),
		&config.PersistenceSpec{EntityName: "device", Action: "retrieve"},
		map[string]string{"name": "x"},
		nil,
	)
	assert.ErrorContains(t, err, "no id parameter")
}
