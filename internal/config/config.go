package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "optimist.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "OPTIMIST_"

	// DefaultAddr is the default serve address.
	DefaultAddr = "localhost:9090"
)

// Duration is a time.Duration that reads and writes as "250ms" in JSON
// and environment variables.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents the complete optimist.json configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" env:"LOG_LEVEL"`

	// Simulate configures the optimistic action simulation.
	Simulate SimulateConfig `json:"simulate" envPrefix:"SIMULATE_"`

	// Serve configures the HTTP server.
	Serve ServeConfig `json:"serve" envPrefix:"SERVE_"`

	// Metrics configures Prometheus collectors.
	Metrics MetricsConfig `json:"metrics" envPrefix:"METRICS_"`

	// Tracing configures OpenTelemetry.
	Tracing TracingConfig `json:"tracing" envPrefix:"TRACING_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SimulateConfig configures a simulation run.
type SimulateConfig struct {
	// Actions is the number of concurrent optimistic actions.
	Actions int `json:"actions" env:"ACTIONS"`

	// Keys is the number of board keys the actions spread over.
	Keys int `json:"keys" env:"KEYS"`

	// FailRate is the probability that a confirmation fails.
	FailRate float64 `json:"failRate" env:"FAIL_RATE"`

	// MinLatency and MaxLatency bound each confirmation's duration.
	MinLatency Duration `json:"minLatency" env:"MIN_LATENCY"`
	MaxLatency Duration `json:"maxLatency" env:"MAX_LATENCY"`

	// Label groups the simulated actions.
	Label string `json:"label,omitempty" env:"LABEL"`

	// Seed makes runs reproducible. Zero picks a random seed.
	Seed uint64 `json:"seed,omitempty" env:"SEED"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr            string   `json:"addr" env:"ADDR"`
	Interval        Duration `json:"interval" env:"INTERVAL"`
	ShutdownTimeout Duration `json:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
	Subsystem string `json:"subsystem,omitempty" env:"SUBSYSTEM"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	TracerName string `json:"tracerName,omitempty" env:"TRACER_NAME"`

	// Endpoint is an OTLP/HTTP collector URL. Empty disables export.
	Endpoint string `json:"endpoint,omitempty" env:"ENDPOINT"`

	// SampleRatio is the fraction of confirmations traced. Zero means all.
	SampleRatio float64 `json:"sampleRatio,omitempty" env:"SAMPLE_RATIO"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Simulate: SimulateConfig{
			Actions:    20,
			Keys:       4,
			FailRate:   0.25,
			MinLatency: Duration(10 * time.Millisecond),
			MaxLatency: Duration(200 * time.Millisecond),
			Label:      "sim",
		},
		Serve: ServeConfig{
			Addr:            DefaultAddr,
			Interval:        Duration(5 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Tracing: TracingConfig{
			TracerName: "optimist",
		},
	}
}

// Load reads configuration from the specified directory.
// A missing optimist.json yields the defaults; environment overrides are
// applied in both cases.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	if !Exists(dir) {
		cfg := New()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path, then applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("C001").
			Wrap(err).
			WithSuggestion("Check the --config path")
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C001").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from OPTIMIST_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New("C006").Wrap(err)
	}
	return nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("C001").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C001").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	defaults := New()

	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Simulate.Label == "" {
		c.Simulate.Label = defaults.Simulate.Label
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = defaults.Serve.Addr
	}
	if c.Serve.Interval == 0 {
		c.Serve.Interval = defaults.Serve.Interval
	}
	if c.Serve.ShutdownTimeout == 0 {
		c.Serve.ShutdownTimeout = defaults.Serve.ShutdownTimeout
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = defaults.Tracing.TracerName
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	s := c.Simulate
	if s.Actions < 1 {
		return errors.New("C002").
			WithDetailf("simulate.actions is %d", s.Actions).
			WithSuggestion("Set simulate.actions to 1 or more")
	}
	if s.Keys < 1 {
		return errors.New("C007").
			WithDetailf("simulate.keys is %d", s.Keys).
			WithSuggestion("Set simulate.keys to 1 or more")
	}
	if s.FailRate < 0 || s.FailRate > 1 {
		return errors.New("C003").
			WithDetailf("simulate.failRate is %g", s.FailRate).
			WithSuggestion("Use a value between 0 and 1")
	}
	if s.MinLatency < 0 || s.MaxLatency < 0 || s.MinLatency > s.MaxLatency {
		return errors.New("C004").
			WithDetailf("simulate.minLatency is %s, simulate.maxLatency is %s", s.MinLatency.Std(), s.MaxLatency.Std()).
			WithSuggestion("Use minLatency <= maxLatency")
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return errors.New("C008").
			WithDetailf("tracing.sampleRatio is %g", r).
			WithSuggestion("Use a value between 0 and 1")
	}
	if _, _, err := net.SplitHostPort(c.Serve.Addr); err != nil {
		return errors.New("C005").
			Wrap(err).
			WithSuggestion("Use host:port, e.g. localhost:9090 or :9090")
	}
	return nil
}

// SlogLevel returns the configured log level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Exists checks if an optimist.json file exists in the directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
