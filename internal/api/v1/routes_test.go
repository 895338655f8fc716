package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
	"github.com/chuckbuilds/ledmatrix/internal/rotation"
)

type shownCall struct {
	mode     string
	duration time.Duration
	pinned   bool
}

// fakeService implements DisplayService with scriptable state.
type fakeService struct {
	mode       string
	state      rotation.State
	info       rotation.OnDemandInfo
	knownModes map[string]bool
	shown      []shownCall
	cleared    int
}

func (f *fakeService) CurrentMode() string           { return f.mode }
func (f *fakeService) CurrentState() rotation.State  { return f.state }
func (f *fakeService) ClearOnDemand()                { f.cleared++ }
func (f *fakeService) GetOnDemandInfo() rotation.OnDemandInfo { return f.info }

func (f *fakeService) ShowOnDemand(mode string, duration time.Duration, pinned bool) bool {
	if !f.knownModes[mode] {
		return false
	}
	f.shown = append(f.shown, shownCall{mode: mode, duration: duration, pinned: pinned})
	return true
}

type stubProvider struct {
	provider.Base
}

func (*stubProvider) Render(display.Surface, string, bool) error { return nil }

func newFixture(t *testing.T) (*fakeService, http.Handler) {
	t.Helper()

	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(&stubProvider{Base: provider.Base{
		ProviderName: "clock",
		ModeNames:    []string{"clock"},
		Duration:     10 * time.Second,
	}}))
	require.NoError(t, registry.Register(&stubProvider{Base: provider.Base{
		ProviderName: "scoreboard",
		ModeNames:    []string{"scoreboard"},
		Duration:     15 * time.Second,
	}}, provider.WithLivePriority()))

	svc := &fakeService{
		mode:       "clock",
		state:      rotation.StateNormal,
		knownModes: map[string]bool{"clock": true, "scoreboard": true},
	}
	return svc, Router(svc, registry)
}

func TestListModes(t *testing.T) {
	t.Parallel()

	_, handler := newFixture(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/modes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ModesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Modes, 2)
	assert.Equal(t, "clock", resp.Modes[0].Name)
	assert.Equal(t, "10s", resp.Modes[0].DisplayDuration)
	assert.False(t, resp.Modes[0].LivePriority)
	assert.Equal(t, "scoreboard", resp.Modes[1].Name)
	assert.True(t, resp.Modes[1].LivePriority)
}

func TestGetDisplay(t *testing.T) {
	t.Parallel()

	svc, handler := newFixture(t)
	svc.mode = "scoreboard"
	svc.state = rotation.StateLive

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/display", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DisplayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scoreboard", resp.Mode)
	assert.Equal(t, "live", resp.State)
	assert.False(t, resp.OnDemand.Active)
}

func TestGetDisplay_OnDemandActive(t *testing.T) {
	t.Parallel()

	svc, handler := newFixture(t)
	svc.mode = "clock"
	svc.state = rotation.StateOnDemand
	svc.info = rotation.OnDemandInfo{
		Active:    true,
		Mode:      "clock",
		Duration:  time.Minute,
		Elapsed:   10 * time.Second,
		Remaining: 50 * time.Second,
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/display", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DisplayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OnDemand.Active)
	assert.Equal(t, "1m0s", resp.OnDemand.Duration)
	assert.Equal(t, "50s", resp.OnDemand.Remaining)
}

func TestShowMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCall   *shownCall
	}{
		{
			name:       "no body pins until cleared",
			target:     "/display/clock",
			wantStatus: http.StatusOK,
			wantCall:   &shownCall{mode: "clock"},
		},
		{
			name:       "timed override",
			target:     "/display/scoreboard",
			body:       `{"duration":"30s"}`,
			wantStatus: http.StatusOK,
			wantCall:   &shownCall{mode: "scoreboard", duration: 30 * time.Second},
		},
		{
			name:       "pinned override",
			target:     "/display/clock",
			body:       `{"duration":"5s","pinned":true}`,
			wantStatus: http.StatusOK,
			wantCall:   &shownCall{mode: "clock", duration: 5 * time.Second, pinned: true},
		},
		{
			name:       "unknown mode",
			target:     "/display/stocks",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad duration",
			target:     "/display/clock",
			body:       `{"duration":"soon"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad body",
			target:     "/display/clock",
			body:       `{"duration":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, handler := newFixture(t)

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.target, body))

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCall != nil {
				require.Len(t, svc.shown, 1)
				assert.Equal(t, *tt.wantCall, svc.shown[0])
			} else {
				assert.Empty(t, svc.shown)
			}
		})
	}
}

func TestClearDisplay(t *testing.T) {
	t.Parallel()

	svc, handler := newFixture(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/display", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, svc.cleared)
}
