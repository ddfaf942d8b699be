package crb

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oruby/crb/internal/rb"
)

// Config holds the VM and binding settings. It is usually read from a
// crb.yaml file:
//
//	gc:
//	  initial_slots: 20000
//	  growth_factor: 1.8
//	  auto_compact: true
//	debug:
//	  check_liveness: true
//	log:
//	  gc: true
type Config struct {
	GC    GCConfig    `yaml:"gc"`
	Debug DebugConfig `yaml:"debug"`
	Log   LogConfig   `yaml:"log"`
}

// GCConfig tunes the collector
type GCConfig struct {
	// InitialSlots is the heap size at boot. Defaults to 10000.
	InitialSlots int `yaml:"initial_slots,omitempty"`

	// GrowthFactor scales the heap when it runs out of free slots.
	// Defaults to 1.8; values below 1.1 are rejected.
	GrowthFactor float64 `yaml:"growth_factor,omitempty"`

	// FreeSlotsMinRatio is the share of free slots a collection must leave
	// before the heap grows. Defaults to 0.20.
	FreeSlotsMinRatio float64 `yaml:"free_slots_min_ratio,omitempty"`

	Stress      bool `yaml:"stress,omitempty"`
	Disabled    bool `yaml:"disabled,omitempty"`
	AutoCompact bool `yaml:"auto_compact,omitempty"`
}

// DebugConfig enables the debug-only checks. Both default to on when built
// with the crbdebug tag.
type DebugConfig struct {
	// CheckLiveness panics when a view refers to a freed or moved slot
	CheckLiveness bool `yaml:"check_liveness"`

	// CheckThread panics when the binding is used from a goroutine that
	// does not hold the VM lock
	CheckThread bool `yaml:"check_thread"`
}

// LogConfig selects what the state logs
type LogConfig struct {
	// GC logs every collection at debug level
	GC bool `yaml:"gc,omitempty"`

	// Level is read by the crbstat command
	Level string `yaml:"level,omitempty"`
}

// DefaultConfig returns the settings New uses without options
func DefaultConfig() Config {
	return Config{
		GC: GCConfig{
			InitialSlots:      10000,
			GrowthFactor:      1.8,
			FreeSlotsMinRatio: 0.20,
		},
		Debug: DebugConfig{
			CheckLiveness: debugChecks,
			CheckThread:   debugChecks,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads and parses a config file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML over DefaultConfig, so missing keys keep their
// defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for values the VM cannot use
func (c Config) Validate() error {
	if c.GC.InitialSlots < 0 {
		return fmt.Errorf("gc.initial_slots: must not be negative, got %d", c.GC.InitialSlots)
	}
	if c.GC.GrowthFactor != 0 && c.GC.GrowthFactor < 1.1 {
		return fmt.Errorf("gc.growth_factor: must be at least 1.1, got %v", c.GC.GrowthFactor)
	}
	if c.GC.FreeSlotsMinRatio < 0 || c.GC.FreeSlotsMinRatio >= 1 {
		return fmt.Errorf("gc.free_slots_min_ratio: must be in [0, 1), got %v", c.GC.FreeSlotsMinRatio)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// Marshal renders the config as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) vmOptions() rb.Options {
	return rb.Options{
		InitialSlots:      c.GC.InitialSlots,
		GrowthFactor:      c.GC.GrowthFactor,
		FreeSlotsMinRatio: c.GC.FreeSlotsMinRatio,
		Stress:            c.GC.Stress,
		Disabled:          c.GC.Disabled,
		AutoCompact:       c.GC.AutoCompact,
	}
}
