package template

import (
	mathrand "math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockfig/mockfig/pkg/auth"
	"github.com/mockfig/mockfig/pkg/config"
	"github.com/mockfig/mockfig/pkg/persist"
)

func seededContext() *ResolutionContext {
	rc := &ResolutionContext{
		Rand: mathrand.New(mathrand.NewPCG(1, 2)),
	}
	rc.SetNow(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	return rc
}

func TestResolvePathCapture(t *testing.T) {
	rc := seededContext()
	rc.PathParams = map[string]string{"device_id": "C8K-123"}

	assert.Equal(t, "C8K-123", rc.ResolveString("{device_id}"))
	assert.Equal(t, "device C8K-123 ok", rc.ResolveString("device {device_id} ok"))
	assert.Equal(t, "{unknown}", rc.ResolveString("{unknown}"), "unknown captures pass through verbatim")
}

func TestResolveRequestRef(t *testing.T) {
	rc := seededContext()
	rc.Body = map[string]any{
		"user": map[string]any{"name": "admin"},
		"n":    float64(3),
	}
	rc.PathParams = map[string]string{"site": "lab"}

	assert.Equal(t, "admin", rc.ResolveString("{{request.user.name}}"))
	assert.Equal(t, float64(3), rc.ResolveString("{{request.n}}"), "single token keeps native type")
	assert.Equal(t, "n=3", rc.ResolveString("n={{request.n}}"))
	assert.Equal(t, "lab", rc.ResolveString("{{request.site}}"), "falls back to path captures")
	assert.Nil(t, rc.ResolveString("{{request.missing}}"), "missing fields resolve to null")
	assert.Equal(t, "x=", rc.ResolveString("x={{request.missing}}"))
}

func TestResolveGenerators(t *testing.T) {
	rc := seededContext()
	now := rc.Now()

	t.Run("random_uuid", func(t *testing.T) {
		got, ok := rc.ResolveString("{{random_uuid}}").(string)
		require.True(t, ok)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})

	t.Run("current_timestamp", func(t *testing.T) {
		assert.Equal(t, now.Format(time.RFC3339), rc.ResolveString("{{current_timestamp}}"))
	})

	t.Run("timestamp is 1 to 30 minutes in the past", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got := rc.ResolveString("{{timestamp}}").(string)
			ts, err := time.Parse(time.RFC3339, got)
			require.NoError(t, err)
			age := now.Sub(ts)
			assert.GreaterOrEqual(t, age, 1*time.Minute)
			assert.LessOrEqual(t, age, 30*time.Minute)
		}
	})

	t.Run("date is 1 to 7 days in the past", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got := rc.ResolveString("{{date}}").(string)
			d, err := time.Parse(time.DateOnly, got)
			require.NoError(t, err)
			days := int(now.Truncate(24*time.Hour).Sub(d).Hours() / 24)
			assert.GreaterOrEqual(t, days, 1)
			assert.LessOrEqual(t, days, 7)
		}
	})

	t.Run("unix_timestamp is 10 digits inside the recent window", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got := rc.ResolveString("{{unix_timestamp}}").(string)
			assert.Len(t, got, 10)
			secs, err := strconv.ParseInt(got, 10, 64)
			require.NoError(t, err)
			age := now.Sub(time.Unix(secs, 0))
			assert.GreaterOrEqual(t, age, 1*time.Minute)
			assert.LessOrEqual(t, age, 30*time.Minute)
		}
	})

	t.Run("unix_timestamp_ms is 13 digits inside the recent window", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got := rc.ResolveString("{{unix_timestamp_ms}}").(string)
			assert.Len(t, got, 13)
			millis, err := strconv.ParseInt(got, 10, 64)
			require.NoError(t, err)
			age := now.Sub(time.UnixMilli(millis))
			assert.GreaterOrEqual(t, age, 1*time.Minute)
			assert.LessOrEqual(t, age, 30*time.Minute)
		}
	})
}

func TestResolveStoredRefs(t *testing.T) {
	rc := seededContext()
	created := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)
	rc.Stored = &persist.Result{Entity: &persist.Entity{
		ID:         "dev-1",
		EntityType: "device",
		CreatedAt:  created,
		Data:       map[string]any{"hostname": "edge-router"},
	}}

	assert.Equal(t, "dev-1", rc.ResolveString("{{stored.id}}"))
	assert.Equal(t, "edge-router", rc.ResolveString("{{stored.data.hostname}}"))
	assert.Equal(t, created.Format(time.RFC3339), rc.ResolveString("{{stored.created_at}}"))

	// A whole-string token folds the native object in, enabling the
	// create/retrieve round trip to echo the stored payload exactly.
	data, ok := rc.ResolveString("{{stored.data}}").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "edge-router", data["hostname"])
}

func TestResolveStoredList(t *testing.T) {
	rc := seededContext()
	rc.Stored = &persist.Result{Entities: []*persist.Entity{
		{ID: "a", EntityType: "device", Data: map[string]any{}},
		{ID: "b", EntityType: "device", Data: map[string]any{}},
	}}

	assert.Equal(t, 2, rc.ResolveString("{{stored.count}}"))
	entities, ok := rc.ResolveString("{{stored.entities}}").([]any)
	require.True(t, ok)
	assert.Len(t, entities, 2)
}

func TestResolveAuthRefCorrelation(t *testing.T) {
	method := &config.AuthMethod{
		Name: "session_auth",
		Type: config.TypeSession,
		ValidSessions: []config.SessionRecord{
			{SessionID: "vmanage-session-123", CSRFToken: "mock-csrf-token-456", Username: "admin"},
			{SessionID: "vmanage-session-789", CSRFToken: "mock-csrf-token-abc", Username: "operator"},
		},
	}
	methods := func(name string) (*config.AuthMethod, bool) {
		if name == "session_auth" {
			return method, true
		}
		return nil, false
	}

	pairs := map[string]string{
		"vmanage-session-123": "mock-csrf-token-456",
		"vmanage-session-789": "mock-csrf-token-abc",
	}

	// Run many times: the session and csrf values in one resolution must
	// always come from the same pool record.
	for i := 0; i < 100; i++ {
		rc := seededContext()
		rc.Rand = mathrand.New(mathrand.NewPCG(uint64(i), 99))
		rc.Auth = auth.NewContext()
		rc.Auth.Rand = rc.Rand
		rc.Methods = methods

		session := rc.ResolveString("${auth.session_auth.random_session.session_id}").(string)
		csrf := rc.ResolveString("${auth.session_auth.random_session.csrf_token}").(string)
		require.Equal(t, pairs[session], csrf)
	}
}

func TestResolveRecursesThroughStructures(t *testing.T) {
	rc := seededContext()
	rc.PathParams = map[string]string{"id": "42"}

	tmpl := map[string]any{
		"device": map[string]any{"id": "{id}"},
		"tags":   []any{"{id}", float64(7)},
	}
	out := rc.Resolve(tmpl).(map[string]any)
	assert.Equal(t, "42", out["device"].(map[string]any)["id"])
	assert.Equal(t, []any{"42", float64(7)}, out["tags"])

	// Originals are untouched.
	assert.Equal(t, "{id}", tmpl["device"].(map[string]any)["id"])
}

func TestNormalizeTimestamps(t *testing.T) {
	rc := seededContext()
	now := rc.Now()

	t.Run("iso timestamp rewritten recent", func(t *testing.T) {
		out := rc.ResolveString("seen at 2023-01-15T08:30:00Z today").(string)
		assert.NotContains(t, out, "2023-01-15T08:30:00Z")
		assert.Contains(t, out, "2026-08-30T", "rewritten near the pinned clock")
	})

	t.Run("epoch seconds rewritten", func(t *testing.T) {
		out := rc.ResolveString("epoch 1673771400 end").(string)
		assert.NotContains(t, out, "1673771400")
	})

	t.Run("epoch millis rewritten", func(t *testing.T) {
		out := rc.ResolveString("epoch 1673771400000 end").(string)
		assert.NotContains(t, out, "1673771400000")
	})

	t.Run("date only rewritten", func(t *testing.T) {
		out := rc.ResolveString("on 2023-01-15 it happened").(string)
		assert.NotContains(t, out, "2023-01-15")
	})

	t.Run("generated values are not re-rolled", func(t *testing.T) {
		out := rc.ResolveString("at {{current_timestamp}}").(string)
		assert.Contains(t, out, now.Format(time.RFC3339))
	})

	t.Run("non timestamp digits untouched", func(t *testing.T) {
		out := rc.ResolveString("serial 12345 ok").(string)
		assert.Contains(t, out, "12345")
	})
}
