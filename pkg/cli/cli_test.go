package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	setVersion("1.2.3", "abc1234")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "mockfig 1.2.3")
	assert.Contains(t, out.String(), "abc1234")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("api.json", `{"title": "Mock", "version": "1.0.0"}`)
	write("auth.json", `{"authentication_methods": {}}`)
	write("endpoints.json", `{"endpoints": [{"method": "GET", "path": "/ok", "responses": [{"response": {"status_code": 200}}]}]}`)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Configuration valid")
}

func TestValidateCommandRejectsBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.json"), []byte(`{"title": "Mock"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "endpoints.json"),
		[]byte(`{"endpoints": [{"method": "GET", "path": "/x", "authentication": ["missing"], "responses": [{"response": {"status_code": 200}}]}]}`), 0o644))

	rootCmd.SetArgs([]string{"validate", dir})
	assert.Error(t, rootCmd.Execute())
}
