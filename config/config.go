// Package config loads bridge settings from TOML or YAML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ia-bridge/bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// DefaultAddr is the address the CLI serves and dials when none is configured.
const DefaultAddr = "127.0.0.1:7420"

// Config holds bridge, transport and logging settings.
type Config struct {
	TickInterval time.Duration `toml:"tick_interval" yaml:"tick_interval"`
	CallTimeout  time.Duration `toml:"call_timeout" yaml:"call_timeout"`
	Delivery     string        `toml:"delivery" yaml:"delivery"`
	DeepMarshal  bool          `toml:"deep_marshal" yaml:"deep_marshal"`
	LogLevel     string        `toml:"log_level" yaml:"log_level"`
	Addr         string        `toml:"addr" yaml:"addr"`
	Guest        string        `toml:"guest" yaml:"guest"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		TickInterval: bridge.DefaultTickInterval,
		CallTimeout:  bridge.DefaultCallTimeout,
		Delivery:     bridge.DeliverLatest.String(),
		LogLevel:     "info",
		Addr:         DefaultAddr,
	}
}

// Load reads path, choosing the decoder by extension (.toml, .yaml, .yml).
// Unset fields keep their defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.ParseFailed(path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ParseFailed(path, err)
		}
	default:
		return nil, errors.Unsupported(errors.PhaseConfig, "config format "+filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	if _, err := c.DeliveryMode(); err != nil {
		return err
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Member("log_level").
			Value(c.LogLevel).
			Cause(err).
			Build()
	}
	if c.TickInterval < 0 || c.CallTimeout < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "durations must not be negative")
	}
	return nil
}

// DeliveryMode parses the delivery field.
func (c *Config) DeliveryMode() (bridge.DeliveryMode, error) {
	switch strings.ToLower(c.Delivery) {
	case "", "latest":
		return bridge.DeliverLatest, nil
	case "all":
		return bridge.DeliverAll, nil
	}
	return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Member("delivery").
		Value(c.Delivery).
		Detail("want latest or all").
		Build()
}

// Options converts the configuration to bridge options.
func (c *Config) Options() []bridge.Option {
	mode, _ := c.DeliveryMode()
	return []bridge.Option{
		bridge.WithTickInterval(c.TickInterval),
		bridge.WithCallTimeout(c.CallTimeout),
		bridge.WithDeliveryMode(mode),
		bridge.WithDeepMarshal(c.DeepMarshal),
	}
}

// Logger builds a development logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log_level")
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = level
	zc.DisableStacktrace = true
	return zc.Build()
}
