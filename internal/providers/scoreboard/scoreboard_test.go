package scoreboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuckbuilds/ledmatrix/internal/cache"
	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/fetch"
)

const liveFeed = `{
	"events": [
		{
			"status": {"state": "in", "detail": "Top 5th"},
			"away": {"abbr": "NYM", "score": 1},
			"home": {"abbr": "PHI", "score": 3}
		}
	]
}`

const finalFeed = `{
	"events": [
		{
			"status": {"state": "post", "detail": "Final"},
			"away": {"abbr": "NYM", "score": 2},
			"home": {"abbr": "PHI", "score": 5}
		}
	]
}`

// newTestProvider wires a provider to a scheduler whose workers are
// never started, so the cache is the only data source.
func newTestProvider(t *testing.T) (*Provider, *cache.Cache) {
	t.Helper()

	c := cache.New()
	scheduler := fetch.NewScheduler(fetch.Config{}, c)
	p, err := New(Config{
		URL:             "http://feed.example/scores",
		Team:            "phi",
		DisplayDuration: 15 * time.Second,
		RefreshInterval: time.Minute,
		TTL:             2 * time.Minute,
		Priority:        2,
	}, scheduler)
	require.NoError(t, err)
	return p, c
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, fetch.NewScheduler(fetch.Config{}, cache.New()))
	require.Error(t, err)
}

func TestProvider_RenderNoData(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t)
	surface := display.NewTextSurface(16, 4)

	require.NoError(t, p.Render(surface, ModeName, true))
	assert.Contains(t, surface.Snapshot(), "NO DATA")
}

func TestProvider_RenderNoGames(t *testing.T) {
	t.Parallel()

	p, c := newTestProvider(t)
	c.Set(p.CacheKey(), []byte(`{"events":[]}`), time.Minute)

	surface := display.NewTextSurface(16, 4)
	require.NoError(t, p.Render(surface, ModeName, true))
	assert.Contains(t, surface.Snapshot(), "NO GAMES")
}

func TestProvider_RenderGame(t *testing.T) {
	t.Parallel()

	p, c := newTestProvider(t)
	c.Set(p.CacheKey(), []byte(liveFeed), time.Minute)

	surface := display.NewTextSurface(16, 4)
	require.NoError(t, p.Render(surface, ModeName, true))

	snapshot := surface.Snapshot()
	assert.Contains(t, snapshot, "NYM 1")
	assert.Contains(t, snapshot, "PHI 3")
	assert.Contains(t, snapshot, "Top 5th")
	assert.NotContains(t, snapshot, "*", "fresh data has no staleness marker")
}

func TestProvider_RenderStaleGameIsMarked(t *testing.T) {
	t.Parallel()

	p, c := newTestProvider(t)
	c.Set(p.CacheKey(), []byte(liveFeed), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	surface := display.NewTextSurface(16, 4)
	require.NoError(t, p.Render(surface, ModeName, true))
	assert.Contains(t, surface.Snapshot(), "Top 5th *")
}

func TestProvider_HasLiveContent(t *testing.T) {
	t.Parallel()

	p, c := newTestProvider(t)
	assert.False(t, p.HasLiveContent(), "no data means no live content")

	c.Set(p.CacheKey(), []byte(liveFeed), time.Minute)
	assert.True(t, p.HasLiveContent())
	assert.Equal(t, []string{ModeName}, p.LiveModes())

	c.Set(p.CacheKey(), []byte(finalFeed), time.Minute)
	assert.False(t, p.HasLiveContent())
}

func TestProvider_DisplayDurationDoublesWhenLive(t *testing.T) {
	t.Parallel()

	p, c := newTestProvider(t)
	assert.Equal(t, 15*time.Second, p.DisplayDuration())

	c.Set(p.CacheKey(), []byte(liveFeed), time.Minute)
	assert.Equal(t, 30*time.Second, p.DisplayDuration())
}

func TestProvider_UpdateThrottlesSubmissions(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t)
	now := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	p.Update(ctx)
	first := p.lastSubmit

	// Within the refresh interval nothing new is submitted.
	now = now.Add(30 * time.Second)
	p.Update(ctx)
	assert.Equal(t, first, p.lastSubmit)

	// Past the interval the next Update submits again.
	now = now.Add(31 * time.Second)
	p.Update(ctx)
	assert.NotEqual(t, first, p.lastSubmit)
}

func TestValidateFeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid feed", body: liveFeed, wantErr: false},
		{name: "empty events", body: `{"events":[]}`, wantErr: false},
		{name: "not json", body: `<html>down for maintenance</html>`, wantErr: true},
		{name: "missing events", body: `{"games":[]}`, wantErr: true},
		{name: "events not an array", body: `{"events":"nope"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateFeed([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
