package subagent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestToArray(t *testing.T) {
	for _, payload := range []string{
		`[{"id":"a"}]`,
		`{"data":[{"id":"a"}]}`,
		`{"result":[{"id":"a"}]}`,
		`{"subagents":[{"id":"a"}]}`,
		`{"items":[{"id":"a"}]}`,
	} {
		assert.Len(t, ToArray(decode(t, payload)), 1, payload)
	}
	assert.Empty(t, ToArray(decode(t, `{"data":{"id":"a"}}`)))
	assert.Empty(t, ToArray(nil))
}

func TestNormalizeFallbacks(t *testing.T) {
	s := Normalize(decode(t, `{}`), 2)
	assert.Equal(t, "subagent-2", s.ID)
	assert.Equal(t, "Subagent 3", s.Name)
	assert.Equal(t, "unknown", s.Status)
	assert.Equal(t, "No scope summary provided", s.Summary)
	assert.Nil(t, s.LastActivity)
}

func TestNormalizeAlternateFields(t *testing.T) {
	s := Normalize(decode(t, `{
		"target": "karen",
		"state": "RUNNING",
		"scope": "local machine 1",
		"updated_at": "2026-01-01T00:00:00Z"
	}`), 0)
	assert.Equal(t, "karen", s.ID)
	assert.Equal(t, "karen", s.Name)
	assert.Equal(t, "running", s.Status)
	assert.Equal(t, "local machine 1", s.Summary)
	require.NotNil(t, s.LastActivity)
	assert.Equal(t, "2026-01-01T00:00:00Z", *s.LastActivity)
}

func TestNormalizePrefersPrimaryFields(t *testing.T) {
	s := Normalize(decode(t, `{
		"id": "sa-1", "target": "t", "label": "Friday", "name": "friday",
		"status": "Idle", "state": "busy", "summary": "ops", "role": "r",
		"lastActivity": "now", "updatedAt": "then"
	}`), 0)
	assert.Equal(t, "sa-1", s.ID)
	assert.Equal(t, "Friday", s.Name)
	assert.Equal(t, "idle", s.Status)
	assert.Equal(t, "ops", s.Summary)
	assert.Equal(t, "now", *s.LastActivity)
}

func TestNormalizeNonObject(t *testing.T) {
	s := Normalize("just a string", 0)
	assert.Equal(t, "subagent-0", s.ID)
	assert.Equal(t, "just a string", s.Raw)
}
