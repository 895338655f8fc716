// Package provider defines the contract every pluggable content source
// implements, and the registry mapping display modes to their owners.
package provider

import (
	"context"
	"time"

	"github.com/chuckbuilds/ledmatrix/internal/display"
)

// Provider is the uniform interface between the rotation controller and
// a content source. Implementations must never block in Update or
// Render: data is fetched in the background through the fetch scheduler
// and read back from the cache, stale or absent reads included.
type Provider interface {
	// Name identifies the provider for logging and the control API.
	Name() string

	// Modes lists the display modes this provider owns. Mode names are
	// globally unique; registration fails on collision.
	Modes() []string

	// Update is called once per rotation tick. It may submit fetch
	// requests and read the cache, but must not perform blocking I/O.
	Update(ctx context.Context)

	// Render draws the given mode onto the surface. forceClear is true
	// exactly once, on the tick the controller switches to this mode.
	Render(surface display.Surface, mode string, forceClear bool) error

	// DisplayDuration is how long the controller stays on one of this
	// provider's modes before rotating. May vary call to call.
	DisplayDuration() time.Duration

	// HasLiveContent reports urgent content, e.g. a game in progress.
	HasLiveContent() bool

	// LiveModes restricts which of the provider's modes take part in a
	// live takeover. Defaults to all of them.
	LiveModes() []string
}

// Base supplies the default behavior for the optional parts of the
// Provider interface. Embed it and override what the provider needs.
type Base struct {
	ProviderName string
	ModeNames    []string
	Duration     time.Duration
}

// Name returns the configured provider name.
func (b *Base) Name() string { return b.ProviderName }

// Modes returns the configured mode names.
func (b *Base) Modes() []string { return b.ModeNames }

// Update is a no-op by default.
func (b *Base) Update(context.Context) {}

// DisplayDuration returns the configured static duration, defaulting to
// 10 seconds when unset.
func (b *Base) DisplayDuration() time.Duration {
	if b.Duration <= 0 {
		return 10 * time.Second
	}
	return b.Duration
}

// HasLiveContent defaults to false.
func (b *Base) HasLiveContent() bool { return false }

// LiveModes defaults to all of the provider's modes.
func (b *Base) LiveModes() []string { return b.ModeNames }
