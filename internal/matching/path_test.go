package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPath(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		path     string
		want     bool
		captures map[string]string
	}{
		{"exact literal", "/users", "/users", true, map[string]string{}},
		{"trailing mismatch", "/users", "/users/1", false, nil},
		{"single capture", "/users/{id}", "/users/42", true, map[string]string{"id": "42"}},
		{"two captures", "/orgs/{org}/users/{id}", "/orgs/acme/users/7", true, map[string]string{"org": "acme", "id": "7"}},
		{"capture rejects empty segment", "/users/{id}", "/users//", false, nil},
		{"capture rejects slash", "/users/{id}", "/users/a/b", false, nil},
		{"literal segment must match", "/users/{id}/keys", "/users/42/locks", false, nil},
		{"root", "/", "/", true, map[string]string{}},
		{"method-ish name", "/device/{device_id}", "/device/C8K-123", true, map[string]string{"device_id": "C8K-123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captures, ok := MatchPath(tt.pattern, tt.path)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.captures, captures)
			}
		})
	}
}

func TestParamNames(t *testing.T) {
	assert.Equal(t, []string{"org", "id"}, ParamNames("/orgs/{org}/users/{id}"))
	assert.Nil(t, ParamNames("/plain/path"))
}
