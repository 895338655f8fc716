package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuckbuilds/ledmatrix/internal/provider"
	"github.com/chuckbuilds/ledmatrix/internal/rotation"
)

type stubService struct{}

func (stubService) CurrentMode() string          { return "clock" }
func (stubService) CurrentState() rotation.State { return rotation.StateNormal }
func (stubService) ShowOnDemand(string, time.Duration, bool) bool {
	return true
}
func (stubService) ClearOnDemand()                         {}
func (stubService) GetOnDemandInfo() rotation.OnDemandInfo { return rotation.OnDemandInfo{} }

func TestNewServer_Health(t *testing.T) {
	t.Parallel()

	server := NewServer(stubService{}, provider.NewRegistry())
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestNewServer_Version(t *testing.T) {
	t.Parallel()

	server := NewServer(stubService{}, provider.NewRegistry())
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.NotEmpty(t, info["go_version"])
	assert.NotEmpty(t, info["platform"])
}

func TestNewServer_MetricsHandler(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# scrape me"))
	})
	server := NewServer(stubService{}, provider.NewRegistry(), WithMetricsHandler(metrics))

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scrape me")
}

func TestNewServer_NoMetricsHandler(t *testing.T) {
	t.Parallel()

	server := NewServer(stubService{}, provider.NewRegistry())
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer_MountsV1Routes(t *testing.T) {
	t.Parallel()

	server := NewServer(stubService{}, provider.NewRegistry())
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/display", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"clock"`)
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	wrapped := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
