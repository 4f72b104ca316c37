package matching

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchValue(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"string equal", "a", "a", true},
		{"string not equal", "a", "b", false},
		{"int condition vs json float", 5, float64(5), true},
		{"float condition vs string", "5", float64(5), true},
		{"bool equal", true, true, true},
		{"regex match", "regex:^C8K-", "C8K-123", true},
		{"regex no match", "regex:^C8K-", "ISR-123", false},
		{"regex invalid pattern", "regex:(", "anything", false},
		{"nil actual never equals", "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchValue(tt.expected, tt.actual))
		})
	}
}

func TestCompilePatternIsCached(t *testing.T) {
	first := compilePattern(`^serial-[0-9]+$`)
	require.NotNil(t, first)
	assert.Same(t, first, compilePattern(`^serial-[0-9]+$`))

	// Invalid patterns are cached as a miss and keep failing cheaply.
	assert.Nil(t, compilePattern(`(`))
	assert.Nil(t, compilePattern(`(`))
	assert.False(t, MatchValue("regex:(", "anything"))
}

func TestMatchBodyConditions(t *testing.T) {
	body := map[string]any{"action": "reboot", "count": float64(3)}

	assert.True(t, MatchBodyConditions(nil, nil))
	assert.True(t, MatchBodyConditions(map[string]any{"action": "reboot"}, body))
	assert.True(t, MatchBodyConditions(map[string]any{"action": "reboot", "count": 3}, body))
	assert.False(t, MatchBodyConditions(map[string]any{"action": "shutdown"}, body))
	assert.False(t, MatchBodyConditions(map[string]any{"missing": "x"}, body))
	assert.False(t, MatchBodyConditions(map[string]any{"action": "reboot"}, nil))
}

func TestMatchQueryConditions(t *testing.T) {
	q := url.Values{"state": []string{"active"}, "empty": []string{""}}

	assert.True(t, MatchQueryConditions(map[string]string{"state": "active"}, q))
	assert.True(t, MatchQueryConditions(map[string]string{"empty": ""}, q))
	assert.False(t, MatchQueryConditions(map[string]string{"state": "inactive"}, q))
	assert.False(t, MatchQueryConditions(map[string]string{"absent": "x"}, q))
}

func TestMatchHeaderConditions(t *testing.T) {
	h := http.Header{}
	h.Set("X-Device-Type", "edge")

	assert.True(t, MatchHeaderConditions(map[string]string{"x-device-type": "edge"}, h))
	assert.False(t, MatchHeaderConditions(map[string]string{"X-Device-Type": "core"}, h))
	assert.False(t, MatchHeaderConditions(map[string]string{"X-Missing": "x"}, h))
}
