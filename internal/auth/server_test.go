package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/auth"
	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/pkg/cerr"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	s := auth.NewServer(&config.AuthEnv{
		AdminPassword: "hunter2",
		SessionSecret: "s3cret",
		CookieSecure:  true,
		SessionTTL:    24 * time.Hour,
	})
	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	s.Mount(r)
	r.With(s.RequireSession).Get("/private", func(_ http.ResponseWriter, r *http.Request) {
		cerr.SetJSONResponse(r.Context(), "ok")
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginFlow(t *testing.T) {
	h := newHandler(t)

	rec := do(t, h, http.MethodGet, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth", map[string]string{"password": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 86400, c.MaxAge)
	assert.Equal(t, "/", c.Path)

	rec = do(t, h, http.MethodGet, "/private", nil, c)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/auth", nil, c)
	assert.JSONEq(t, `{"success":true,"data":{"authenticated":true}}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/auth", nil, c)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLoginRejects(t *testing.T) {
	h := newHandler(t)

	rec := do(t, h, http.MethodPost, "/auth", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	rec = do(t, h, http.MethodGet, "/private", nil, &http.Cookie{Name: auth.CookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/auth", nil)
	assert.JSONEq(t, `{"success":true,"data":{"authenticated":false}}`, rec.Body.String())
}
