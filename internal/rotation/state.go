package rotation

import "time"

// State names the tier currently deciding the rendered mode.
type State string

// Arbitration tiers, strongest first.
const (
	StateOnDemand State = "on_demand"
	StateLive     State = "live"
	StateNormal   State = "normal"
)

// onDemand is an operator-triggered display override. It dominates both
// live takeover and normal rotation until it expires or is cleared.
type onDemand struct {
	mode      string
	duration  time.Duration
	startedAt time.Time
	pinned    bool
}

// expired reports whether the override should auto-clear at now.
// Pinned overrides and overrides with no duration never expire.
func (o *onDemand) expired(now time.Time) bool {
	if o.pinned || o.duration <= 0 {
		return false
	}
	return now.Sub(o.startedAt) >= o.duration
}

// OnDemandInfo is the control-API view of the on-demand override.
type OnDemandInfo struct {
	Active    bool          `json:"active"`
	Mode      string        `json:"mode,omitempty"`
	Duration  time.Duration `json:"duration"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
	Pinned    bool          `json:"pinned"`
}
