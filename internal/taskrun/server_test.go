package taskrun_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/taskrun"
	"github.com/missionctl/missionctl/internal/taskrun/repositoryimpl"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/storage"
)

func TestListTaskRuns(t *testing.T) {
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(st)
	rec := taskrun.NewRecorder(repo)
	for _, title := range []string{"a", "b", "c"} {
		_, err := rec.Record(context.Background(), taskrun.Input{
			TaskID: title, Title: title, Action: taskrun.ActionCreate, Status: taskrun.StatusSuccess,
		})
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	taskrun.NewServer(repo).Mount(r)

	get := func(target string) (int, map[string]any) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		var out map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return w.Code, out
	}

	code, out := get("/task-runs")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"], 3)

	code, out = get("/task-runs?limit=2")
	require.Equal(t, http.StatusOK, code)
	runs := out["data"].([]any)
	require.Len(t, runs, 2)
	assert.Equal(t, "assistant", runs[0].(map[string]any)["assignee"])

	code, out = get("/task-runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "limit must be a positive integer", out["error"])
}
