package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmkeep/farmkeep/internal/api"
	"github.com/farmkeep/farmkeep/internal/registry"
	"github.com/farmkeep/farmkeep/internal/supervisor"
)

func newEchoHandler(t *testing.T) *echo.Echo {
	t.Helper()
	sup := supervisor.New(registry.New(), nil, supervisor.Options{WorkerCommand: `sh -c 'sleep 30'`})
	methods := api.Methods(sup, filepath.Join(t.TempDir(), "snapshot.json"))
	e := echo.New()
	MountEcho(e, methods, "/farm")
	return e
}

func TestEchoStatus(t *testing.T) {
	e := newEchoHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/farm/status", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestEchoStopUnknownNotFound(t *testing.T) {
	e := newEchoHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/farm/stop", strings.NewReader(`{"id":"deadbeef"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "share deadbeef is not running")
}

func TestEchoHealthz(t *testing.T) {
	e := newEchoHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/farm/healthz", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
