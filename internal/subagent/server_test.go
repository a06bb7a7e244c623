package subagent

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/pkg/cerr"
)

type upstreamCall struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
	Auth  string         `json:"-"`
}

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *[]upstreamCall) {
	t.Helper()
	var calls []upstreamCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c upstreamCall
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &c)
		c.Auth = r.Header.Get("Authorization")
		calls = append(calls, c)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newRouter(endpoint string) http.Handler {
	client := NewClient(&config.SubagentEnv{ToolsEndpoint: endpoint, ToolsToken: "secret", Timeout: time.Second}, WithMaxRetries(0))
	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	NewServer(client).Mount(r)
	return r
}

func do(t *testing.T, h http.Handler, method, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/subagents", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestListSubagents(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"subagents":[{"label":"FRIDAY","status":"Active"}]}`)
	code, out := do(t, newRouter(srv.URL), http.MethodGet, "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["unavailable"])
	data := out["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "FRIDAY", data[0].(map[string]any)["name"])
	assert.Equal(t, "active", data[0].(map[string]any)["status"])

	require.Len(t, *calls, 1)
	assert.Equal(t, "subagents", (*calls)[0].Tool)
	assert.Equal(t, "list", (*calls)[0].Input["action"])
	assert.Equal(t, "Bearer secret", (*calls)[0].Auth)
}

func TestListSubagentsUpstreamFailure(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusForbidden, `{"error":"nope"}`)
	code, out := do(t, newRouter(srv.URL), http.MethodGet, "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["unavailable"])
	assert.Equal(t, []any{}, out["data"])
	assert.Equal(t, "OpenClaw tools endpoint returned 403", out["message"])
}

func TestListSubagentsNotConfigured(t *testing.T) {
	code, out := do(t, newRouter(""), http.MethodGet, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["unavailable"])
}

func TestSubagentAction(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"ok":true}`)
	code, out := do(t, newRouter(srv.URL), http.MethodPost, `{"action":"steer","target":"KAREN","message":"hi"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"ok": true}, out["data"])
	require.Len(t, *calls, 1)
	assert.Equal(t, "KAREN", (*calls)[0].Input["target"])
	assert.Equal(t, "hi", (*calls)[0].Input["message"])
}

func TestSubagentActionRejectsUnknown(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{}`)
	code, out := do(t, newRouter(srv.URL), http.MethodPost, `{"action":"spawn"}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Unsupported action", out["error"])
	assert.Empty(t, *calls)
}

func TestSubagentActionUpstreamFailure(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusInternalServerError, `{"message":"target not found"}`)
	code, out := do(t, newRouter(srv.URL), http.MethodPost, `{"action":"kill","target":"x"}`)

	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "target not found", out["error"])
	assert.Equal(t, "bad_gateway", out["code"])
}

func TestSubagentActionNotConfigured(t *testing.T) {
	code, out := do(t, newRouter(""), http.MethodPost, `{"action":"list"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", out["code"])
}

func TestListRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"a"}]`))
	}))
	defer srv.Close()

	client := NewClient(&config.SubagentEnv{ToolsEndpoint: srv.URL, Timeout: time.Second}, WithMaxRetries(2))
	subagents, err := client.List(t.Context())
	require.NoError(t, err)
	require.Len(t, subagents, 1)
	assert.Equal(t, 2, attempts)
}
