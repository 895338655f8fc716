// Package config provides configuration loading for the ledmatrix daemon.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML decoding of strings like "30s".
type Duration time.Duration

// UnmarshalYAML decodes a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration back to its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration structure.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Display   DisplayConfig   `yaml:"display"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
}

// HTTPConfig holds the control API settings.
type HTTPConfig struct {
	// Address the control API listens on.
	Address string `yaml:"address"`
}

// DisplayConfig holds the render surface and rotation settings.
type DisplayConfig struct {
	// TickInterval is the rotation loop cadence.
	TickInterval Duration `yaml:"tickInterval"`

	// Width and Height of the simulated surface in cells.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SchedulerConfig holds the fetch scheduler settings.
type SchedulerConfig struct {
	MaxWorkers     int      `yaml:"maxWorkers"`
	RequestTimeout Duration `yaml:"requestTimeout"`
	MaxRetries     int      `yaml:"maxRetries"`
	DefaultTTL     Duration `yaml:"defaultTTL"`
	BackoffInitial Duration `yaml:"backoffInitial"`
	BackoffMax     Duration `yaml:"backoffMax"`
}

// CacheConfig holds the cache reaper settings.
type CacheConfig struct {
	// ReapInterval is how often stale entries are swept; zero disables
	// the reaper (staleness is still evaluated lazily on reads).
	ReapInterval Duration `yaml:"reapInterval"`

	// Retention is how long past its TTL an entry survives a sweep.
	Retention Duration `yaml:"retention"`
}

// ProvidersConfig holds the per-provider blocks. A nil block leaves the
// provider disabled.
type ProvidersConfig struct {
	Clock      *ClockConfig      `yaml:"clock,omitempty"`
	Scoreboard *ScoreboardConfig `yaml:"scoreboard,omitempty"`
}

// ClockConfig configures the clock provider.
type ClockConfig struct {
	Enabled         bool     `yaml:"enabled"`
	DisplayDuration Duration `yaml:"displayDuration"`
	TimeFormat      string   `yaml:"timeFormat,omitempty"`
}

// ScoreboardConfig configures the scoreboard provider.
type ScoreboardConfig struct {
	Enabled         bool     `yaml:"enabled"`
	DisplayDuration Duration `yaml:"displayDuration"`
	URL             string   `yaml:"url"`
	Team            string   `yaml:"team,omitempty"`
	RefreshInterval Duration `yaml:"refreshInterval"`
	TTL             Duration `yaml:"ttl"`
	Priority        int      `yaml:"priority"`

	// LivePriority lets a game in progress preempt normal rotation.
	LivePriority bool `yaml:"livePriority"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in zero-valued fields.
func (c *Config) SetDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Display.TickInterval <= 0 {
		c.Display.TickInterval = Duration(time.Second)
	}
	if c.Display.Width <= 0 {
		c.Display.Width = 64
	}
	if c.Display.Height <= 0 {
		c.Display.Height = 8
	}
	if c.Scheduler.MaxWorkers <= 0 {
		c.Scheduler.MaxWorkers = 4
	}
	if c.Scheduler.RequestTimeout <= 0 {
		c.Scheduler.RequestTimeout = Duration(10 * time.Second)
	}
	if c.Scheduler.MaxRetries < 0 {
		c.Scheduler.MaxRetries = 3
	}
	if c.Scheduler.DefaultTTL <= 0 {
		c.Scheduler.DefaultTTL = Duration(time.Minute)
	}
	if c.Scheduler.BackoffInitial <= 0 {
		c.Scheduler.BackoffInitial = Duration(500 * time.Millisecond)
	}
	if c.Scheduler.BackoffMax <= 0 {
		c.Scheduler.BackoffMax = Duration(30 * time.Second)
	}
	if c.Cache.Retention <= 0 {
		c.Cache.Retention = Duration(10 * time.Minute)
	}
	if c.Providers.Clock == nil {
		c.Providers.Clock = &ClockConfig{Enabled: true}
	}
	if c.Providers.Clock.DisplayDuration <= 0 {
		c.Providers.Clock.DisplayDuration = Duration(10 * time.Second)
	}
	if c.Providers.Scoreboard != nil {
		sb := c.Providers.Scoreboard
		if sb.DisplayDuration <= 0 {
			sb.DisplayDuration = Duration(15 * time.Second)
		}
		if sb.RefreshInterval <= 0 {
			sb.RefreshInterval = Duration(time.Minute)
		}
		if sb.TTL <= 0 {
			sb.TTL = Duration(2 * time.Minute)
		}
		if sb.Priority == 0 {
			sb.Priority = 2
		}
	}
}

// Validate checks the configuration for errors the daemon cannot
// recover from at runtime.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display dimensions must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	if sb := c.Providers.Scoreboard; sb != nil && sb.Enabled {
		if sb.URL == "" {
			return fmt.Errorf("providers.scoreboard.url is required when the scoreboard is enabled")
		}
		if sb.Priority < 1 || sb.Priority > 5 {
			return fmt.Errorf("providers.scoreboard.priority must be 1..5, got %d", sb.Priority)
		}
	}
	return nil
}
