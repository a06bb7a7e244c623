package automation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/internal/automation/repositoryimpl"
	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/internal/eventbus"
	"github.com/missionctl/missionctl/internal/subagent"
	"github.com/missionctl/missionctl/internal/taskrun"
	taskrunrepo "github.com/missionctl/missionctl/internal/taskrun/repositoryimpl"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/storage"
)

type fixture struct {
	handler  http.Handler
	tasks    *fakeTasks
	runs     *taskrunrepo.YAMLRepository
	bus      *eventbus.Bus
	upstream []map[string]any
}

func newFixture(t *testing.T, upstreamStatus int) *fixture {
	t.Helper()
	f := &fixture{
		tasks: &fakeTasks{tasks: map[string]*automation.TaskRecord{
			"1": {ID: "1", Title: "Need help with client invoice", Description: "due friday"},
			"2": {ID: "2", Title: "Unrouted", Assignee: ""},
		}},
		bus: eventbus.New(),
	}

	db, err := repositoryimpl.Open(context.Background(), filepath.Join(t.TempDir(), "automation.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := automation.NewService(
		repositoryimpl.NewRuleRepository(db),
		repositoryimpl.NewMetadataRepository(db),
		repositoryimpl.NewDecisionRepository(db),
		f.tasks,
	)

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f.runs = taskrunrepo.NewYAMLRepository(st)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		f.upstream = append(f.upstream, body)
		w.WriteHeader(upstreamStatus)
		_, _ = w.Write([]byte(`{"delivered":true}`))
	}))
	t.Cleanup(upstream.Close)
	client := subagent.NewClient(&config.SubagentEnv{ToolsEndpoint: upstream.URL, Timeout: time.Second})

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	automation.NewServer(svc, f.tasks, taskrun.NewRecorder(f.runs), client, f.bus).Mount(r)
	f.handler = r
	return f
}

func (f *fixture) call(t *testing.T, method, target string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestRulesEndpoints(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	code, out := f.call(t, http.MethodGet, "/task-automation-rules", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"], 4)

	code, out = f.call(t, http.MethodPost, "/task-automation-rules", map[string]any{
		"name": "Scout", "assignTo": "scout", "keywords": []string{" Recon ", "RECON", ""},
	})
	require.Equal(t, http.StatusOK, code)
	created := out["data"].(map[string]any)
	assert.Equal(t, []any{"recon"}, created["keywords"])
	assert.Equal(t, float64(50), created["priority"])
	id := created["id"].(string)

	code, out = f.call(t, http.MethodPut, "/task-automation-rules", map[string]any{"id": id, "enabled": false})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["data"].(map[string]any)["enabled"])

	code, _ = f.call(t, http.MethodPut, "/task-automation-rules", map[string]any{"enabled": false})
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = f.call(t, http.MethodPut, "/task-automation-rules", map[string]any{"id": "rule-missing"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", out["code"])

	code, _ = f.call(t, http.MethodDelete, "/task-automation-rules?id="+id, nil)
	assert.Equal(t, http.StatusOK, code)
	code, out = f.call(t, http.MethodDelete, "/task-automation-rules?id="+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Rule not found", out["error"])
	code, _ = f.call(t, http.MethodDelete, "/task-automation-rules", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPreviewEndpoint(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	code, out := f.call(t, http.MethodPost, "/task-automation/preview", map[string]any{"title": "", "tags": []string{"home"}})
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "VERONICA", data["assignedAgent"])
	assert.Equal(t, float64(4), data["score"])

	_, out = f.call(t, http.MethodPost, "/task-automation/preview", map[string]any{})
	data = out["data"].(map[string]any)
	assert.Equal(t, "assistant", data["assignedAgent"])
	assert.Nil(t, data["matchedRuleId"])
}

func TestAssignEndpoint(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	subID, events := f.bus.Subscribe(4, eventbus.TaskAssigned)
	defer f.bus.Unsubscribe(subID)

	code, out := f.call(t, http.MethodPost, "/task-automation/assign", map[string]any{
		"taskId":   "2",
		"metadata": map[string]any{"project": "PC1"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "KAREN", out["data"].(map[string]any)["assignedAgent"])

	task, err := f.tasks.LookupTask(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "KAREN", task.Assignee)

	ev := <-events
	assert.Equal(t, "2", ev.ResourceID)
	assert.Equal(t, "KAREN", ev.Metadata["agent"])

	runs, err := f.runs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, taskrun.AssignedToSubagent, runs[0].AssignedToType)

	_, out = f.call(t, http.MethodGet, "/task-automation/metadata?taskId=2", nil)
	assert.Equal(t, "pc1", out["data"].(map[string]any)["project"])

	_, out = f.call(t, http.MethodGet, "/task-automation/decisions?taskId=2", nil)
	assert.Equal(t, "rule-pc1-karen", out["data"].(map[string]any)["matchedRuleId"])
}

func TestAssignWithoutApplying(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	code, _ := f.call(t, http.MethodPost, "/task-automation/assign", map[string]any{"taskId": "1", "applyToTask": false})
	require.Equal(t, http.StatusOK, code)

	task, err := f.tasks.LookupTask(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, task.Assignee)
}

func TestAssignErrors(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	code, _ := f.call(t, http.MethodPost, "/task-automation/assign", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, out := f.call(t, http.MethodPost, "/task-automation/assign", map[string]any{"taskId": "404"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Task not found", out["error"])
}

func TestMetadataEndpoint(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	code, out := f.call(t, http.MethodPut, "/task-automation/metadata", map[string]any{
		"taskId": "1", "tags": []string{"Work"}, "manualOverride": "scout",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "scout", out["data"].(map[string]any)["manualOverride"])

	_, out = f.call(t, http.MethodPut, "/task-automation/metadata", map[string]any{"taskId": "1", "manualOverride": nil})
	data := out["data"].(map[string]any)
	assert.Nil(t, data["manualOverride"])
	assert.Equal(t, []any{"work"}, data["tags"])

	_, out = f.call(t, http.MethodGet, "/task-automation/metadata", nil)
	assert.Len(t, out["data"], 1)

	code, _ = f.call(t, http.MethodPut, "/task-automation/metadata", map[string]any{"tags": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDispatchEndpoint(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	_, _ = f.call(t, http.MethodPost, "/task-automation/assign", map[string]any{"taskId": "1", "applyToTask": false})

	code, out := f.call(t, http.MethodPost, "/task-automation/dispatch", map[string]any{"taskId": "1"})
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "FRIDAY", data["target"])

	require.Len(t, f.upstream, 1)
	input := f.upstream[0]["input"].(map[string]any)
	assert.Equal(t, "steer", input["action"])
	assert.Equal(t, "FRIDAY", input["target"])
	assert.Equal(t, "Task Dispatch\n#1 Need help with client invoice\nAssignee: FRIDAY\nDescription: due friday", input["message"])

	code, _ = f.call(t, http.MethodPost, "/task-automation/dispatch", map[string]any{"taskId": "1", "target": "scout"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "scout", f.upstream[1]["input"].(map[string]any)["target"])
}

func TestDispatchErrors(t *testing.T) {
	f := newFixture(t, http.StatusNotFound)

	code, _ := f.call(t, http.MethodPost, "/task-automation/dispatch", map[string]any{"taskId": "404"})
	assert.Equal(t, http.StatusNotFound, code)

	code, out := f.call(t, http.MethodPost, "/task-automation/dispatch", map[string]any{"taskId": "2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No assigned target found. Run assignment first.", out["error"])

	code, out = f.call(t, http.MethodPost, "/task-automation/dispatch", map[string]any{"taskId": "1", "target": "ghost"})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Dispatch failed (404). Check OpenClaw tools endpoint and target subagent name.", out["error"])
	assert.Equal(t, "Verify OPENCLAW_TOOLS_ENDPOINT and confirm target subagent exists via /api/subagents.", out["actionable"])
}

func TestDispatchSummaryWithoutDescription(t *testing.T) {
	got := automation.DispatchSummary(&automation.TaskRecord{ID: "7", Title: "Ship"}, "KAREN")
	assert.Equal(t, "Task Dispatch\n#7 Ship\nAssignee: KAREN\n", got)
}
