// Package scoreboard provides the game scoreboard display mode. It is
// the reference provider for the background-fetch contract: Update
// submits throttled fetch requests to the scheduler and Render draws
// whatever the cache currently holds, stale included; neither ever
// waits on the network. While a game is in progress it reports live
// content, preempting normal rotation.
package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/fetch"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
)

// ModeName is the display mode this provider registers.
const ModeName = "scoreboard"

const defaultRefreshInterval = time.Minute

// Config holds the scoreboard provider settings.
type Config struct {
	// URL is the score feed endpoint.
	URL string

	// Team filters the feed to one team's games, passed through as a
	// query parameter.
	Team string

	DisplayDuration time.Duration

	// RefreshInterval throttles fetch submissions; the scheduler
	// coalesces anything faster.
	RefreshInterval time.Duration

	// TTL is the cache freshness window for fetched scores.
	TTL time.Duration

	// Priority of the fetch requests (1 highest .. 5 lowest).
	Priority int
}

// Provider renders game scores fetched in the background.
type Provider struct {
	provider.Base
	cfg       Config
	scheduler *fetch.Scheduler
	cacheKey  string

	// lastSubmit is only touched from the rotation loop's Update calls.
	lastSubmit time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a scoreboard provider submitting fetches to scheduler.
func New(cfg Config, scheduler *fetch.Scheduler) (*Provider, error) {
	if cfg.URL == "" {
		return nil, errors.New("scoreboard: URL is required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}

	cacheKey := "scoreboard:" + cfg.Team
	if cfg.Team == "" {
		cacheKey = "scoreboard:all"
	}

	return &Provider{
		Base: provider.Base{
			ProviderName: "scoreboard",
			ModeNames:    []string{ModeName},
			Duration:     cfg.DisplayDuration,
		},
		cfg:       cfg,
		scheduler: scheduler,
		cacheKey:  cacheKey,
		now:       time.Now,
	}, nil
}

// CacheKey returns the cache key the provider reads scores from.
func (p *Provider) CacheKey() string {
	return p.cacheKey
}

// Update submits a background fetch when the refresh interval has
// elapsed. It never blocks: Submit only queues, and duplicate keys are
// coalesced by the scheduler.
func (p *Provider) Update(_ context.Context) {
	now := p.now()
	if !p.lastSubmit.IsZero() && now.Sub(p.lastSubmit) < p.cfg.RefreshInterval {
		return
	}
	p.lastSubmit = now
	p.submit()
}

// DisplayDuration stays on a live game longer than the configured
// static duration so a score change is not cut off mid-inning.
func (p *Provider) DisplayDuration() time.Duration {
	base := p.Base.DisplayDuration()
	if p.HasLiveContent() {
		return 2 * base
	}
	return base
}

// HasLiveContent reports whether the cached feed shows a game in
// progress. Stale data still counts: better to linger on a likely-live
// game than to drop it because one fetch failed.
func (p *Provider) HasLiveContent() bool {
	value, _, ok := p.scheduler.Lookup(p.cacheKey)
	if !ok {
		return false
	}
	return gjson.GetBytes(value, "events.0.status.state").String() == "in"
}

// Render draws the most recent game from the cached feed.
func (p *Provider) Render(surface display.Surface, _ string, forceClear bool) error {
	if forceClear {
		surface.Clear()
	}

	value, fresh, ok := p.scheduler.Lookup(p.cacheKey)
	if !ok {
		surface.DrawText(0, 0, "SCORES")
		surface.DrawText(0, 1, "NO DATA")
		return nil
	}

	event := gjson.GetBytes(value, "events.0")
	if !event.Exists() {
		surface.DrawText(0, 0, "SCORES")
		surface.DrawText(0, 1, "NO GAMES")
		return nil
	}

	away := event.Get("away")
	home := event.Get("home")
	surface.DrawText(0, 0, fmt.Sprintf("%s %d", away.Get("abbr").String(), away.Get("score").Int()))
	surface.DrawText(0, 1, fmt.Sprintf("%s %d", home.Get("abbr").String(), home.Get("score").Int()))

	detail := event.Get("status.detail").String()
	if !fresh {
		// Mark a stale read so the viewer knows the score may lag.
		detail += " *"
	}
	surface.DrawText(0, 2, detail)

	return nil
}

// submit queues a feed fetch through the scheduler.
func (p *Provider) submit() {
	req := fetch.Request{
		URL:      p.cfg.URL,
		CacheKey: p.cacheKey,
		Priority: p.cfg.Priority,
		TTL:      p.cfg.TTL,
		Validate: validateFeed,
	}
	if p.cfg.Team != "" {
		req.Params = url.Values{"team": []string{p.cfg.Team}}
	}
	if _, err := p.scheduler.Submit(req); err != nil {
		logger.Errorf("scoreboard: failed to submit fetch: %v", err)
	}
}

// validateFeed rejects payloads without the expected feed shape so a
// maintenance page or truncated body never replaces good cached scores.
func validateFeed(body []byte) error {
	if !gjson.ValidBytes(body) {
		return errors.New("response is not valid JSON")
	}
	if !gjson.GetBytes(body, "events").IsArray() {
		return errors.New(`response has no "events" array`)
	}
	return nil
}
