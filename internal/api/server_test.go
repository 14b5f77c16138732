package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrweisheng/wscontroller/internal/hub"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/logging"
	"github.com/mrweisheng/wscontroller/internal/registry"
	"github.com/mrweisheng/wscontroller/internal/registry/registrytest"
	"github.com/mrweisheng/wscontroller/internal/relay"
)

type testEnv struct {
	srv *Server
	reg *registry.Registry
	hub *hub.Hub
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	reg := registry.New()
	h := hub.New(config.Default().WebSocket, reg)
	deps := Deps{
		Config: config.ServerConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.ServerTimeoutConfig{ReadHeader: 5, Idle: 5},
		},
		Logger:     logging.Discard(),
		Registry:   reg,
		Hub:        h,
		Dispatcher: relay.NewDispatcher(reg),
		Version:    "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	require.NoError(t, err)
	return &testEnv{srv: srv, reg: reg, hub: h}
}

// install puts a fake device connection under id.
func (e *testEnv) install(id string) (*registry.Record, *registrytest.Conn) {
	conn := registrytest.NewConn("10.0.0.1:5000")
	rec := registry.NewRecord(conn, time.Now())
	e.reg.Put(id, rec)
	return rec, conn
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestNew_RequiresDeps(t *testing.T) {
	reg := registry.New()
	_, err := New(Deps{Registry: reg})
	assert.Error(t, err)

	_, err = New(Deps{Logger: logging.Discard(), Registry: reg})
	assert.Error(t, err)
}

// ─── Health ────────────────────────────────────────────────────────

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	env.install("001")

	w := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	resp := decode(t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
	assert.Equal(t, float64(1), resp["devices"])
	assert.NotContains(t, resp, "components")
}

func TestHealth_DegradedComponent(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Checks = map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
			"mqtt":     checkFunc(func(context.Context) error { return errors.New("mqtt: not connected") }),
		}
	})

	w := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, map[string]any{"database": "ok", "mqtt": "mqtt: not connected"}, resp["components"])
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-123")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "client-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS_PreflightOnAnyPath(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/send", "/no/such/route"} {
		w := env.do(t, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	}

	w := env.do(t, http.MethodGet, "/devices", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct{ method, path string }{
		{http.MethodGet, "/nonexistent"},
		{http.MethodDelete, "/send"},
		{http.MethodPost, "/devices"},
	}
	for _, tt := range tests {
		w := env.do(t, tt.method, tt.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tt.method, tt.path)
		assert.Equal(t, map[string]any{"success": false, "error": msgNotFound}, decode(t, w))
	}
}

func TestEvents_DisabledWithoutJournal(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Error(t, env.srv.HealthCheck(context.Background()), "not started yet")
	assert.Empty(t, env.srv.Addr())

	require.NoError(t, env.srv.Start(context.Background()))
	addr := env.srv.Addr()
	require.NotEmpty(t, addr)
	require.NoError(t, env.srv.HealthCheck(context.Background()))
	assert.Error(t, env.srv.Start(context.Background()), "second Start")

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.srv.Close())

	client := &http.Client{Timeout: time.Second}
	_, err = client.Get("http://" + addr + "/healthz")
	assert.Error(t, err, "server still responding after Close()")
}

func TestServer_CloseBeforeStart(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.NoError(t, env.srv.Close())
}
