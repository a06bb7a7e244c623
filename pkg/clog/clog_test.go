package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesAreScopedToContext(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"task_id": "01J", "nested": map[string]any{"a": 1}})
	AddAttributes(ctx, map[string]any{"nested": map[string]any{"b": 2}})
	AddError(ctx, errors.New("boom"))

	assert.Equal(t, "01J", GetAttribute[string](ctx, "task_id"))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, GetAttributes(ctx)["nested"])
	assert.EqualError(t, GetError(ctx), "boom")

	// Without a bag, writes are dropped silently.
	plain := context.Background()
	AddAttribute(plain, "x", 1)
	assert.Nil(t, GetAttributes(plain))
}

func TestHTTPTextHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAttributesHandler(NewHTTPTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))
	logger := slog.New(handler)

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"method": "GET", "path": "/api/tasks", "status": 200})
	logger.InfoContext(ctx, "OK", "rule_id", "rule-work-friday")

	out := buf.String()
	require.NotEmpty(t, out)
	firstLine := strings.SplitN(out, "\n", 2)[0]
	assert.Contains(t, firstLine, "INFO GET /api/tasks 200 OK")
	assert.Contains(t, out, "    rule_id=rule-work-friday")
}

func TestHTTPStatusToLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(200))
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(404))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(400))
	assert.Equal(t, LevelError, HTTPStatusToLevel(502))
}

func TestAttributesHandlerSortsAndSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(slog.NewTextHandler(&buf, nil)))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"path": "/api/team", "method": "GET", "request_id": ""})
	logger.InfoContext(ctx, "OK")

	out := buf.String()
	assert.NotContains(t, out, "request_id")
	assert.Less(t, strings.Index(out, "method="), strings.Index(out, "path="))
}

func TestSlogChiMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil))))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.Use(SlogChiMiddleware(WithChiFilter(func(r *http.Request, status int) bool {
		return r.URL.Path != "/quiet" || status >= 400
	})))
	r.Get("/tasks/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/quiet", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks/42", nil))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/tasks/{id}", line["route"])
	assert.Equal(t, "/tasks/42", line["path"])
	assert.Equal(t, float64(http.StatusNoContent), line["status"])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quiet", nil))
	assert.Empty(t, buf.String())
}
