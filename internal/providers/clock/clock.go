// Package clock provides the clock display mode. It needs no network
// data, which also makes it the usual fallback target for pinned
// on-demand displays.
package clock

import (
	"time"

	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
)

// ModeName is the display mode this provider registers.
const ModeName = "clock"

const defaultTimeFormat = "3:04 PM"

// Config holds the clock provider settings.
type Config struct {
	DisplayDuration time.Duration
	TimeFormat      string
}

// Provider renders the current time and date.
type Provider struct {
	provider.Base
	format string

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a clock provider.
func New(cfg Config) *Provider {
	format := cfg.TimeFormat
	if format == "" {
		format = defaultTimeFormat
	}
	return &Provider{
		Base: provider.Base{
			ProviderName: "clock",
			ModeNames:    []string{ModeName},
			Duration:     cfg.DisplayDuration,
		},
		format: format,
		now:    time.Now,
	}
}

// Render draws the time on the top row and the date below it.
func (p *Provider) Render(surface display.Surface, _ string, forceClear bool) error {
	if forceClear {
		surface.Clear()
	}
	now := p.now()
	surface.DrawText(0, 0, now.Format(p.format))
	surface.DrawText(0, 1, now.Format("Mon Jan 2"))
	return nil
}
