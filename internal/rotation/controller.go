// Package rotation implements the display rotation controller: a single
// loop that decides, every tick, which registered mode to render.
//
// Arbitration is three-tiered and re-evaluated on every tick, not just
// at mode boundaries: an operator on-demand override beats a live
// takeover, which beats normal round-robin rotation. Providers never
// run on their own goroutines here; the controller calls Update and
// Render and recovers anything they throw, so a misbehaving provider
// costs one blank tick, never the loop.
package rotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
	"github.com/chuckbuilds/ledmatrix/internal/telemetry"
)

const defaultModeDuration = 10 * time.Second

// Controller owns the rotation state. All rotation fields are mutated
// on the tick path; the mutex exists because ShowOnDemand and the info
// accessors are called from control-API goroutines.
type Controller struct {
	registry *provider.Registry
	surface  display.Surface
	tick     time.Duration
	metrics  *telemetry.RotationMetrics

	// now is replaceable for tests.
	now func() time.Time

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	current     string
	state       State
	modeStarted time.Time
	modeIndex   int
	liveModes   []string
	override    *onDemand
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMetrics attaches rotation metrics instruments.
func WithMetrics(m *telemetry.RotationMetrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a controller rotating the registry's modes onto
// surface, ticking every tick.
func NewController(registry *provider.Registry, surface display.Surface, tick time.Duration, opts ...ControllerOption) *Controller {
	if tick <= 0 {
		tick = time.Second
	}
	c := &Controller{
		registry: registry,
		surface:  surface,
		tick:     tick,
		now:      time.Now,
		state:    StateNormal,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the rotation loop until Stop is called or ctx is
// cancelled. Blocks; run it on its own goroutine.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	logger.Infof("rotation: starting, %d modes, tick %s", c.registry.Len(), c.tick)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Stop ends the rotation loop.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
}

// Tick runs one scheduling iteration: provider updates, arbitration,
// and a single render. Exported so tests can drive the controller with
// an injected clock instead of real time.
func (c *Controller) Tick(ctx context.Context) {
	c.updateProviders(ctx)

	now := c.now()

	c.mu.Lock()
	mode, state, reason := c.selectMode(now)
	changed := mode != c.current || state != c.state
	if changed {
		c.current = mode
		c.state = state
		c.modeStarted = now
	}
	c.mu.Unlock()

	if mode == "" {
		return
	}
	if changed {
		logger.Debugf("rotation: switched to mode %q (%s)", mode, reason)
		c.metrics.RecordModeSwitch(ctx, mode, reason)
	}
	c.render(ctx, mode, changed)
}

// selectMode arbitrates the three tiers. Caller holds c.mu.
func (c *Controller) selectMode(now time.Time) (mode string, state State, reason string) {
	// Tier 1: on-demand override.
	if c.override != nil {
		if !c.override.expired(now) {
			return c.override.mode, StateOnDemand, "on_demand"
		}
		logger.Infof("rotation: on-demand display of %q expired", c.override.mode)
		c.override = nil
		// Fall through to live/normal with a fresh boundary.
	}

	// Tier 2: live takeover. The live set is recomputed every tick so
	// a provider's flip in either direction takes effect within one.
	live := c.collectLiveModes()
	if len(live) > 0 {
		c.liveModes = live
		if c.state != StateLive {
			return live[0], StateLive, "live"
		}
		idx := indexOf(live, c.current)
		if idx < 0 {
			// Current live mode dropped out of the set.
			return live[0], StateLive, "live"
		}
		if now.Sub(c.modeStarted) >= c.modeDuration(c.current) {
			return live[(idx+1)%len(live)], StateLive, "live_rotation"
		}
		return c.current, StateLive, "live"
	}
	c.liveModes = nil

	// Tier 3: normal round-robin over the full configured mode list.
	modes := c.registry.Modes()
	if len(modes) == 0 {
		return "", StateNormal, ""
	}
	if c.modeIndex >= len(modes) {
		c.modeIndex = 0
	}
	if c.state == StateNormal && c.current == modes[c.modeIndex] {
		if now.Sub(c.modeStarted) < c.modeDuration(c.current) {
			return c.current, StateNormal, "rotation"
		}
		c.modeIndex = (c.modeIndex + 1) % len(modes)
	}
	return modes[c.modeIndex], StateNormal, "rotation"
}

// collectLiveModes unions the live modes of every provider that opted
// into live priority and currently reports live content. Mode names not
// actually registered to that provider are ignored. Caller holds c.mu.
func (c *Controller) collectLiveModes() []string {
	var live []string
	seen := make(map[string]struct{})

	for _, reg := range c.registry.Registrations() {
		if !reg.LivePriority {
			continue
		}
		p := reg.Provider
		hasLive, modes := c.probeLive(p)
		if !hasLive {
			continue
		}
		for _, mode := range modes {
			owner, ok := c.registry.Lookup(mode)
			if !ok || owner != reg {
				logger.Warnf("rotation: provider %q reported unregistered live mode %q", p.Name(), mode)
				continue
			}
			if _, dup := seen[mode]; dup {
				continue
			}
			seen[mode] = struct{}{}
			live = append(live, mode)
		}
	}
	return live
}

// probeLive queries a provider's live status with panic recovery.
func (c *Controller) probeLive(p provider.Provider) (hasLive bool, modes []string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("rotation: provider %q panicked reporting live status: %v", p.Name(), r)
			c.metrics.RecordProviderFault(context.Background(), p.Name(), "live_status")
			hasLive = false
		}
	}()
	if !p.HasLiveContent() {
		return false, nil
	}
	return true, p.LiveModes()
}

// modeDuration asks the owning provider how long its mode should stay
// up. Caller holds c.mu.
func (c *Controller) modeDuration(mode string) time.Duration {
	reg, ok := c.registry.Lookup(mode)
	if !ok {
		return defaultModeDuration
	}
	d := reg.Provider.DisplayDuration()
	if d <= 0 {
		return defaultModeDuration
	}
	return d
}

// updateProviders gives every provider its per-tick Update call, with
// panic recovery so one provider cannot take down the loop.
func (c *Controller) updateProviders(ctx context.Context) {
	for _, reg := range c.registry.Registrations() {
		c.safeUpdate(ctx, reg.Provider)
	}
}

func (c *Controller) safeUpdate(ctx context.Context, p provider.Provider) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("rotation: provider %q panicked in Update: %v", p.Name(), r)
			c.metrics.RecordProviderFault(ctx, p.Name(), "update")
		}
	}()
	p.Update(ctx)
}

// render dispatches to the mode's owner. Errors and panics are logged
// and counted; the tick simply produces no output for that provider.
func (c *Controller) render(ctx context.Context, mode string, forceClear bool) {
	reg, ok := c.registry.Lookup(mode)
	if !ok {
		return
	}
	if err := c.safeRender(reg.Provider, mode, forceClear); err != nil {
		logger.Errorf("rotation: provider %q failed to render %q: %v", reg.Provider.Name(), mode, err)
		c.metrics.RecordProviderFault(ctx, reg.Provider.Name(), "render")
	}
}

func (c *Controller) safeRender(p provider.Provider, mode string, forceClear bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Render(c.surface, mode, forceClear)
}

// ShowOnDemand overrides rotation with mode. A zero duration or
// pinned=true keeps it up until ClearOnDemand. Returns false when the
// mode is not registered.
func (c *Controller) ShowOnDemand(mode string, duration time.Duration, pinned bool) bool {
	if _, ok := c.registry.Lookup(mode); !ok {
		logger.Warnf("rotation: on-demand request for unknown mode %q", mode)
		return false
	}
	if duration < 0 {
		duration = 0
	}

	c.mu.Lock()
	c.override = &onDemand{
		mode:      mode,
		duration:  duration,
		startedAt: c.now(),
		pinned:    pinned,
	}
	c.mu.Unlock()

	logger.Infof("rotation: on-demand display of %q (duration %s, pinned %v)", mode, duration, pinned)
	return true
}

// ClearOnDemand removes the on-demand override. Clearing when none is
// active is a no-op.
func (c *Controller) ClearOnDemand() {
	c.mu.Lock()
	cleared := c.override != nil
	c.override = nil
	c.mu.Unlock()

	if cleared {
		logger.Info("rotation: on-demand display cleared")
	}
}

// OnDemandActive reports whether an on-demand override is in effect.
func (c *Controller) OnDemandActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.override != nil && !c.override.expired(c.now())
}

// GetOnDemandInfo returns the current override for the control API.
func (c *Controller) GetOnDemandInfo() OnDemandInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.override
	if o == nil || o.expired(c.now()) {
		return OnDemandInfo{}
	}

	elapsed := c.now().Sub(o.startedAt)
	var remaining time.Duration
	if !o.pinned && o.duration > 0 {
		remaining = o.duration - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}
	return OnDemandInfo{
		Active:    true,
		Mode:      o.mode,
		Duration:  o.duration,
		Elapsed:   elapsed,
		Remaining: remaining,
		Pinned:    o.pinned,
	}
}

// CurrentMode returns the mode rendered on the most recent tick.
func (c *Controller) CurrentMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentState returns the arbitration tier of the most recent tick.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
