package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidJSON  = errors.New("invalid JSON syntax")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// Paths names the three configuration documents.
type Paths struct {
	API       string
	Auth      string
	Endpoints string
}

// DefaultPaths resolves the conventional file names inside dir
// (api.json, auth.json, endpoints.json, with .yaml fallbacks).
func DefaultPaths(dir string) Paths {
	return Paths{
		API:       findDocument(dir, "api"),
		Auth:      findDocument(dir, "auth"),
		Endpoints: findDocument(dir, "endpoints"),
	}
}

func findDocument(dir, stem string) string {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, stem+".json")
}

var structValidator = validator.New()

// Load reads, parses, and validates all three documents into a Snapshot.
// Any failure here is a fatal startup error: malformed syntax, schema
// violations, dangling references, and duplicate endpoints all reject the
// configuration as a whole.
func Load(paths Paths) (*Snapshot, error) {
	var api APIMetadata
	if err := loadDocument(paths.API, &api); err != nil {
		return nil, fmt.Errorf("api document: %w", err)
	}

	var auth AuthConfig
	if err := loadDocument(paths.Auth, &auth); err != nil {
		return nil, fmt.Errorf("auth document: %w", err)
	}

	var endpoints EndpointsConfig
	if err := loadDocument(paths.Endpoints, &endpoints); err != nil {
		return nil, fmt.Errorf("endpoints document: %w", err)
	}

	snap := &Snapshot{
		API:       api,
		Auth:      auth,
		Endpoints: endpoints.Endpoints,
	}

	// Fill in method names from map keys.
	for name, m := range snap.Auth.Methods {
		if m == nil {
			return nil, fmt.Errorf("auth document: method %q is empty", name)
		}
		m.Name = name
	}

	if err := Validate(snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// loadDocument reads one file and unmarshals it by extension
// (.yaml/.yml as YAML, everything else as JSON).
func loadDocument(path string, out any) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w in %s: %v", ErrInvalidYAML, path, err)
		}
		return nil
	}

	if !json.Valid(data) {
		return fmt.Errorf("%w in %s", ErrInvalidJSON, path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ParseSnapshot builds a Snapshot from raw document bytes. Used by tests
// and by callers that already hold the documents in memory.
func ParseSnapshot(apiJSON, authJSON, endpointsJSON []byte) (*Snapshot, error) {
	var api APIMetadata
	if len(apiJSON) > 0 {
		if err := json.Unmarshal(apiJSON, &api); err != nil {
			return nil, fmt.Errorf("api document: %w", err)
		}
	}

	var auth AuthConfig
	if len(authJSON) > 0 {
		if err := json.Unmarshal(authJSON, &auth); err != nil {
			return nil, fmt.Errorf("auth document: %w", err)
		}
	}

	var endpoints EndpointsConfig
	if err := json.Unmarshal(endpointsJSON, &endpoints); err != nil {
		return nil, fmt.Errorf("endpoints document: %w", err)
	}

	snap := &Snapshot{API: api, Auth: auth, Endpoints: endpoints.Endpoints}
	for name, m := range snap.Auth.Methods {
		if m == nil {
			return nil, fmt.Errorf("auth document: method %q is empty", name)
		}
		m.Name = name
	}

	if err := Validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}
