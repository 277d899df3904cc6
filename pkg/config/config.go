package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Config captures module-level configuration knobs. Feature packages
// (connection, feed, alerts) pull from these nested structs.
type Config struct {
	Streams   StreamConfig    `mapstructure:"streams" json:"streams"`
	Reconnect ReconnectConfig `mapstructure:"reconnect" json:"reconnect"`
	Alerts    AlertConfig     `mapstructure:"alerts" json:"alerts"`
	Native    NativeConfig    `mapstructure:"native" json:"native"`
}

// StreamConfig controls the paginated stream fetches.
type StreamConfig struct {
	PageSize int `mapstructure:"page_size" json:"page_size"`
}

// ReconnectConfig bounds the push-channel retry policy: a fixed number of
// attempts with a fixed inter-attempt delay. Exhausting the budget leaves
// the connection degraded, not failed.
type ReconnectConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay" json:"delay"`
}

// AlertConfig scopes the transient on-screen alert queue.
type AlertConfig struct {
	TTL time.Duration `mapstructure:"ttl" json:"ttl"`
}

// NativeConfig toggles fan-out to the host notification surface. Enabled is
// a pointer so an explicit false survives defaulting.
type NativeConfig struct {
	Enabled *bool `mapstructure:"enabled" json:"enabled"`
}

// IsEnabled reports the toggle, defaulting to enabled when unset.
func (c NativeConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Bool returns a pointer to v, for literal config values.
func Bool(v bool) *bool { return &v }

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Streams: StreamConfig{PageSize: 20},
		Reconnect: ReconnectConfig{
			MaxAttempts: 5,
			Delay:       3 * time.Second,
		},
		Alerts: AlertConfig{
			TTL: 5 * time.Second,
		},
		Native: NativeConfig{
			Enabled: Bool(true),
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Streams.PageSize <= 0 {
		return errors.New("streams.page_size must be > 0")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must be >= 0")
	}
	if c.Reconnect.Delay <= 0 {
		return fmt.Errorf("reconnect.delay must be > 0")
	}
	if c.Alerts.TTL <= 0 {
		return fmt.Errorf("alerts.ttl must be > 0")
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// While cfgx.Build still returns zero values, we fallback to a lightweight
// decoder to keep smoke tests meaningful. Once cfgx is fully implemented we
// can drop the fallback.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Streams.PageSize == 0 {
		c.Streams.PageSize = defaults.Streams.PageSize
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = defaults.Reconnect.MaxAttempts
	}
	if c.Reconnect.Delay == 0 {
		c.Reconnect.Delay = defaults.Reconnect.Delay
	}
	if c.Alerts.TTL == 0 {
		c.Alerts.TTL = defaults.Alerts.TTL
	}
	if c.Native.Enabled == nil {
		c.Native.Enabled = defaults.Native.Enabled
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
