package app

import (
	"github.com/chuckbuilds/ledmatrix/internal/cache"
	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/fetch"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
	"github.com/chuckbuilds/ledmatrix/internal/rotation"
	"github.com/chuckbuilds/ledmatrix/internal/telemetry"
)

// Components groups the daemon's long-lived pieces. Exposed so tests
// can reach into a built app.
type Components struct {
	Cache      *cache.Cache
	Scheduler  *fetch.Scheduler
	Registry   *provider.Registry
	Surface    *display.TextSurface
	Controller *rotation.Controller
	Telemetry  *telemetry.Telemetry
}
