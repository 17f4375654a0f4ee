// Package config provides unified configuration loading for ternkit.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/ternkit/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all ternkit configuration settings.
type Config struct {
	// Kernel contains settings for the adaptive threshold kernel.
	Kernel KernelConfig `json:"kernel" yaml:"kernel"`

	// Fusion contains settings for the sensor fusion engine.
	Fusion FusionConfig `json:"fusion" yaml:"fusion"`

	// Control contains settings for the mode-switching controller.
	Control ControlConfig `json:"control" yaml:"control"`

	// Solver contains settings for the constraint solver.
	Solver SolverConfig `json:"solver" yaml:"solver"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// KernelConfig configures the adaptive confidence threshold.
type KernelConfig struct {
	// Enabled turns threshold adaptation and coercion on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Theta is the initial confidence threshold. Range: 0.0 to 1.0.
	Theta float64 `json:"theta" yaml:"theta"`

	// Alpha and Beta seed the Bayesian success and failure pseudo-counts.
	// Both must be positive.
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`

	// SigmoidSteepness and SigmoidOffset shape the coercion sigmoid.
	SigmoidSteepness float64 `json:"sigmoid_steepness" yaml:"sigmoid_steepness"`
	SigmoidOffset    float64 `json:"sigmoid_offset" yaml:"sigmoid_offset"`

	// VarianceThreshold is the mean sensor variance above which the
	// threshold drifts upward. Range: 0.0 to 1.0.
	VarianceThreshold float64 `json:"variance_threshold" yaml:"variance_threshold"`
}

// FusionConfig configures the weighted fusion scan.
type FusionConfig struct {
	// FastFirstTrue stops scanning at the first confident TRUE reading.
	FastFirstTrue bool `json:"fast_first_true" yaml:"fast_first_true"`

	// Epsilon guards the consensus division. Zero selects the default.
	Epsilon float64 `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
}

// ControlConfig configures the control loop.
type ControlConfig struct {
	// DT is the tick period in seconds.
	DT float64 `json:"dt" yaml:"dt"`

	// ActuatorLimit clamps the final command magnitude.
	ActuatorLimit float64 `json:"actuator_limit" yaml:"actuator_limit"`

	// Nominal, Degraded, and Safe adjust the built-in mode packs field by
	// field. Emergency is not tunable; it always commands zero.
	Nominal  ModeOverride `json:"nominal,omitempty" yaml:"nominal,omitempty"`
	Degraded ModeOverride `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Safe     ModeOverride `json:"safe,omitempty" yaml:"safe,omitempty"`
}

// ModeOverride adjusts one operating mode's parameter pack. Nil fields keep
// the built-in value, so a YAML file names only what it changes.
type ModeOverride struct {
	EntryThreshold *float64 `json:"entry_threshold,omitempty" yaml:"entry_threshold,omitempty"`
	Hysteresis     *float64 `json:"hysteresis,omitempty" yaml:"hysteresis,omitempty"`
	MinDwell       *float64 `json:"min_dwell,omitempty" yaml:"min_dwell,omitempty"`
	ConfidenceLow  *float64 `json:"confidence_low,omitempty" yaml:"confidence_low,omitempty"`
	ConfidenceHigh *float64 `json:"confidence_high,omitempty" yaml:"confidence_high,omitempty"`
	OutputMin      *float64 `json:"output_min,omitempty" yaml:"output_min,omitempty"`
	OutputNominal  *float64 `json:"output_nominal,omitempty" yaml:"output_nominal,omitempty"`
	OutputMax      *float64 `json:"output_max,omitempty" yaml:"output_max,omitempty"`
	GainLow        *float64 `json:"gain_low,omitempty" yaml:"gain_low,omitempty"`
	GainHigh       *float64 `json:"gain_high,omitempty" yaml:"gain_high,omitempty"`
	RateLimit      *float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// SolverConfig configures the constraint solver.
type SolverConfig struct {
	// Timeout bounds a single solve. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Workers bounds batch-solve concurrency. Zero means one worker per
	// CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// UnmarshalYAML accepts the timeout as a Go duration string ("30s", "2m")
// or as integer nanoseconds. Keys absent from the file keep the values
// already in place, so defaults survive partial configs.
func (s *SolverConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timeout yaml.Node `yaml:"timeout"`
		Workers *int      `yaml:"workers"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Workers != nil {
		s.Workers = *raw.Workers
	}
	if raw.Timeout.IsZero() {
		return nil
	}

	var str string
	if err := raw.Timeout.Decode(&str); err == nil {
		d, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("solver.timeout: %w", err)
		}
		s.Timeout = d
		return nil
	}
	var ns int64
	if err := raw.Timeout.Decode(&ns); err != nil {
		return fmt.Errorf("solver.timeout must be a duration string or nanoseconds, got %q", raw.Timeout.Value)
	}
	s.Timeout = time.Duration(ns)
	return nil
}

// MarshalYAML writes the timeout in duration-string form so saved files
// stay human-editable.
func (s SolverConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Timeout string `yaml:"timeout,omitempty"`
		Workers int    `yaml:"workers,omitempty"`
	}{
		Timeout: s.Timeout.String(),
		Workers: s.Workers,
	}, nil
}

// LoggingConfig configures ternkit's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables trace logging to <trace_dir>/trace.jsonl.
	// "trace" additionally includes per-tick fusion detail.
	Level string `json:"level" yaml:"level"`

	// Format selects the operational log handler: "text" (default) or
	// "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// TraceDir is where the trace log lands. Supports ${VAR} syntax for
	// env vars. Empty means the working directory.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			Enabled:           true,
			Theta:             constants.DefaultTheta,
			Alpha:             constants.DefaultAlpha,
			Beta:              constants.DefaultBeta,
			SigmoidSteepness:  constants.DefaultSigmoidSteepness,
			SigmoidOffset:     constants.DefaultSigmoidOffset,
			VarianceThreshold: constants.DefaultVarianceThreshold,
		},
		Fusion: FusionConfig{
			FastFirstTrue: false,
			Epsilon:       constants.WeightSumEpsilon,
		},
		Control: ControlConfig{
			DT:            0.01,
			ActuatorLimit: 10.0,
		},
		Solver: SolverConfig{
			Timeout: 10 * time.Second,
			Workers: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.ternkit/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".ternkit", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads configuration from an explicit file, then applies
// environment variable overrides on top, mirroring Load.
func LoadPath(path string) (*Config, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in the trace directory
	config.Logging.TraceDir = expandEnvVars(config.Logging.TraceDir)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Kernel.Theta < 0 || c.Kernel.Theta > 1 {
		return fmt.Errorf("kernel.theta must be between 0 and 1, got %f", c.Kernel.Theta)
	}
	if c.Kernel.Alpha <= 0 || c.Kernel.Beta <= 0 {
		return fmt.Errorf("kernel.alpha and kernel.beta must be positive, got %f and %f",
			c.Kernel.Alpha, c.Kernel.Beta)
	}
	if c.Kernel.SigmoidSteepness <= 0 {
		return fmt.Errorf("kernel.sigmoid_steepness must be positive, got %f", c.Kernel.SigmoidSteepness)
	}
	if c.Kernel.SigmoidOffset < 0 || c.Kernel.SigmoidOffset > 1 {
		return fmt.Errorf("kernel.sigmoid_offset must be between 0 and 1, got %f", c.Kernel.SigmoidOffset)
	}
	if c.Kernel.VarianceThreshold < 0 || c.Kernel.VarianceThreshold > 1 {
		return fmt.Errorf("kernel.variance_threshold must be between 0 and 1, got %f", c.Kernel.VarianceThreshold)
	}

	if c.Fusion.Epsilon < 0 {
		return fmt.Errorf("fusion.epsilon must be non-negative, got %g", c.Fusion.Epsilon)
	}

	if c.Control.DT <= 0 {
		return fmt.Errorf("control.dt must be positive, got %f", c.Control.DT)
	}
	if c.Control.ActuatorLimit <= 0 {
		return fmt.Errorf("control.actuator_limit must be positive, got %f", c.Control.ActuatorLimit)
	}
	for _, m := range []struct {
		name string
		mode ModeOverride
	}{
		{"control.nominal", c.Control.Nominal},
		{"control.degraded", c.Control.Degraded},
		{"control.safe", c.Control.Safe},
	} {
		if err := validateModeOverride(m.name, m.mode); err != nil {
			return err
		}
	}

	if c.Solver.Timeout < 0 {
		return fmt.Errorf("solver.timeout must be non-negative, got %v", c.Solver.Timeout)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("solver.workers must be non-negative, got %d", c.Solver.Workers)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json, or empty for default)", c.Logging.Format)
	}

	return nil
}

// validateModeOverride range-checks the fields an override actually sets.
// Cross-field structure (band ordering, threshold nesting) is checked by
// the control package when the pack is assembled.
func validateModeOverride(name string, m ModeOverride) error {
	unit := func(field string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s.%s must be between 0 and 1, got %f", name, field, *v)
		}
		return nil
	}
	nonNeg := func(field string, v *float64) error {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s.%s must be non-negative, got %f", name, field, *v)
		}
		return nil
	}

	if err := unit("entry_threshold", m.EntryThreshold); err != nil {
		return err
	}
	if err := unit("confidence_low", m.ConfidenceLow); err != nil {
		return err
	}
	if err := unit("confidence_high", m.ConfidenceHigh); err != nil {
		return err
	}
	if err := nonNeg("hysteresis", m.Hysteresis); err != nil {
		return err
	}
	if err := nonNeg("min_dwell", m.MinDwell); err != nil {
		return err
	}
	if err := nonNeg("gain_low", m.GainLow); err != nil {
		return err
	}
	if err := nonNeg("gain_high", m.GainHigh); err != nil {
		return err
	}
	return nonNeg("rate_limit", m.RateLimit)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TERNKIT_ADAPTIVE"); v != "" {
		config.Kernel.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("TERNKIT_THETA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Kernel.Theta = f
		}
	}

	if v := os.Getenv("TERNKIT_FAST_PATH"); v != "" {
		config.Fusion.FastFirstTrue = v == "true" || v == "1"
	}

	if v := os.Getenv("TERNKIT_ACTUATOR_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Control.ActuatorLimit = f
		}
	}

	if v := os.Getenv("TERNKIT_SOLVE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Solver.Timeout = d
		}
	}

	if v := os.Getenv("TERNKIT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("TERNKIT_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if v := os.Getenv("TERNKIT_TRACE_DIR"); v != "" {
		config.Logging.TraceDir = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
