package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuckbuilds/ledmatrix/internal/config"
	"github.com/chuckbuilds/ledmatrix/internal/telemetry"
)

func TestNewDisplayApp_Defaults(t *testing.T) {
	t.Parallel()

	app, err := NewDisplayApp(context.Background(), WithTelemetry(telemetry.NewNoop()))
	require.NoError(t, err)

	components := app.GetComponents()
	require.NotNil(t, components.Cache)
	require.NotNil(t, components.Scheduler)
	require.NotNil(t, components.Controller)
	assert.Equal(t, []string{"clock"}, components.Registry.Modes())
	assert.Equal(t, ":8080", app.GetHTTPServer().Addr)
}

func TestNewDisplayApp_ScoreboardWired(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.Scoreboard = &config.ScoreboardConfig{
		Enabled:      true,
		URL:          "https://feed.example/scores",
		Team:         "phi",
		Priority:     2,
		LivePriority: true,
	}
	cfg.SetDefaults()

	app, err := NewDisplayApp(context.Background(),
		WithConfig(cfg),
		WithTelemetry(telemetry.NewNoop()),
	)
	require.NoError(t, err)

	registry := app.GetComponents().Registry
	assert.Equal(t, []string{"clock", "scoreboard"}, registry.Modes())

	reg, ok := registry.Lookup("scoreboard")
	require.True(t, ok)
	assert.True(t, reg.LivePriority)
}

func TestNewDisplayApp_NoProvidersEnabled(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.Clock.Enabled = false

	_, err := NewDisplayApp(context.Background(),
		WithConfig(cfg),
		WithTelemetry(telemetry.NewNoop()),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display providers enabled")
}

func TestNewDisplayApp_ScoreboardWithoutURL(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.Scoreboard = &config.ScoreboardConfig{Enabled: true, Priority: 2}

	_, err := NewDisplayApp(context.Background(),
		WithConfig(cfg),
		WithTelemetry(telemetry.NewNoop()),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoreboard")
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":8080", wantErr: false},
		{name: "host and port", addr: "127.0.0.1:9090", wantErr: false},
		{name: "localhost", addr: "localhost:8080", wantErr: false},
		{name: "empty", addr: "", wantErr: true},
		{name: "no port", addr: "127.0.0.1", wantErr: true},
		{name: "bad port", addr: ":notaport", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &displayAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.addr, cfg.address)
			}
		})
	}
}

func TestWithAddress_OverridesConfig(t *testing.T) {
	t.Parallel()

	app, err := NewDisplayApp(context.Background(),
		WithAddress("127.0.0.1:9999"),
		WithTelemetry(telemetry.NewNoop()),
	)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", app.GetHTTPServer().Addr)
}

func TestBuildComponents_SchedulerConfigFlowsThrough(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Scheduler.MaxWorkers = 2
	cfg.Scheduler.RequestTimeout = config.Duration(3 * time.Second)

	app, err := NewDisplayApp(context.Background(),
		WithConfig(cfg),
		WithTelemetry(telemetry.NewNoop()),
	)
	require.NoError(t, err)
	require.NotNil(t, app.GetComponents().Scheduler)
}
