package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockfig/mockfig/pkg/logging"
)

func writeConfigDir(t *testing.T, endpoints string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.json"), []byte(apiDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"), []byte(authDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "endpoints.json"), []byte(endpoints), 0o644))
	return dir
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	dir := writeConfigDir(t, endpointsDoc)
	store, err := NewStore(DefaultPaths(dir), logging.Nop())
	require.NoError(t, err)

	first := store.Snapshot()
	require.Len(t, first.Endpoints, 1)

	updated := `{"endpoints":[
		{"method":"GET","path":"/devices/{device_id}","responses":[{"response":{"status_code":200}}]},
		{"method":"GET","path":"/status","responses":[{"response":{"status_code":200}}]}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "endpoints.json"), []byte(updated), 0o644))

	require.NoError(t, store.Reload())
	assert.Len(t, store.Snapshot().Endpoints, 2)

	// The old snapshot is untouched; in-flight requests keep their view.
	assert.Len(t, first.Endpoints, 1)
}

func TestStoreReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := writeConfigDir(t, endpointsDoc)
	store, err := NewStore(DefaultPaths(dir), logging.Nop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "endpoints.json"), []byte("{not json"), 0o644))

	assert.Error(t, store.Reload())
	assert.Len(t, store.Snapshot().Endpoints, 1)
}
