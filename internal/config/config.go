// Package config defines the greeks engine configuration and its validation.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atmx/greeks-engine/internal/volatility"
)

// Config is the root configuration. Fields come from an optional TOML file
// over Defaults and may be overridden by GREEKS_* environment variables.
type Config struct {
	Server   ServerConfig       `toml:"server"`
	Curves   CurvesConfig       `toml:"curves"`
	Advisory AdvisoryConfig     `toml:"advisory"`
	Batch    BatchConfig        `toml:"batch"`
	Stream   StreamConfig       `toml:"stream"`
	Surface  []volatility.Slice `toml:"surface"`
	LogLevel string             `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	IdleTimeout     duration `toml:"idle_timeout"`
	RequestTimeout  duration `toml:"request_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
	CORSOrigins     []string `toml:"cors_origins"`
}

// CurvesConfig holds chart defaults used when a request leaves them out.
type CurvesConfig struct {
	SpotLow   float64 `toml:"spot_low"`  // fraction of strike
	SpotHigh  float64 `toml:"spot_high"` // fraction of strike
	Points    int     `toml:"points"`
	MaxDays   int     `toml:"max_days"`
	MaxPoints int     `toml:"max_points"` // upper bound a request may ask for
}

// AdvisoryConfig selects the classifier mode.
type AdvisoryConfig struct {
	ReturnAllMatches bool `toml:"return_all_matches"`
}

// BatchConfig bounds the batch pricing endpoint.
type BatchConfig struct {
	MaxItems int `toml:"max_items"`
	Workers  int `toml:"workers"`
}

// StreamConfig holds live calculator WebSocket parameters.
type StreamConfig struct {
	PingInterval duration `toml:"ping_interval"`
	ReadTimeout  duration `toml:"read_timeout"`
	MaxClients   int      `toml:"max_clients"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the calculator's standard values.
// These match configs/greeks.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     duration{10 * time.Second},
			WriteTimeout:    duration{10 * time.Second},
			IdleTimeout:     duration{60 * time.Second},
			RequestTimeout:  duration{30 * time.Second},
			ShutdownTimeout: duration{5 * time.Second},
			CORSOrigins:     []string{"*"},
		},
		Curves: CurvesConfig{
			SpotLow:   0.7,
			SpotHigh:  1.3,
			Points:    50,
			MaxDays:   90,
			MaxPoints: 1000,
		},
		Batch: BatchConfig{
			MaxItems: 500,
			Workers:  8,
		},
		Stream: StreamConfig{
			PingInterval: duration{30 * time.Second},
			ReadTimeout:  duration{60 * time.Second},
			MaxClients:   1024,
		},
		Surface: []volatility.Slice{
			{Maturity: 1.0 / 12, Params: volatility.SVI{A: 0.04, B: 0.10, Rho: -0.40, M: 0, Sigma: 0.20}},
			{Maturity: 0.25, Params: volatility.SVI{A: 0.045, B: 0.11, Rho: -0.35, M: 0, Sigma: 0.22}},
			{Maturity: 0.5, Params: volatility.SVI{A: 0.05, B: 0.12, Rho: -0.30, M: 0, Sigma: 0.25}},
			{Maturity: 1.0, Params: volatility.SVI{A: 0.055, B: 0.13, Rho: -0.25, M: 0, Sigma: 0.28}},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid values and returns a combined error
// describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	for _, t := range []struct {
		name string
		d    duration
	}{
		{"read_timeout", c.Server.ReadTimeout},
		{"write_timeout", c.Server.WriteTimeout},
		{"request_timeout", c.Server.RequestTimeout},
		{"shutdown_timeout", c.Server.ShutdownTimeout},
	} {
		if t.d.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("server: %s must be > 0", t.name))
		}
	}

	// Curves
	if c.Curves.SpotLow <= 0 || c.Curves.SpotLow >= c.Curves.SpotHigh {
		errs = append(errs, fmt.Sprintf("curves: need 0 < spot_low < spot_high, got %v and %v", c.Curves.SpotLow, c.Curves.SpotHigh))
	}
	if c.Curves.Points < 2 {
		errs = append(errs, "curves: points must be >= 2")
	}
	if c.Curves.MaxDays < 1 {
		errs = append(errs, "curves: max_days must be >= 1")
	}
	if c.Curves.MaxPoints < c.Curves.Points || c.Curves.MaxPoints < c.Curves.MaxDays {
		errs = append(errs, "curves: max_points must cover points and max_days")
	}

	// Batch
	if c.Batch.MaxItems < 1 {
		errs = append(errs, "batch: max_items must be >= 1")
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, "batch: workers must be >= 1")
	}

	// Stream
	if c.Stream.PingInterval.Duration <= 0 {
		errs = append(errs, "stream: ping_interval must be > 0")
	}
	if c.Stream.ReadTimeout.Duration <= c.Stream.PingInterval.Duration {
		errs = append(errs, "stream: read_timeout must exceed ping_interval")
	}
	if c.Stream.MaxClients < 1 {
		errs = append(errs, "stream: max_clients must be >= 1")
	}

	// Surface
	if _, err := volatility.NewSurface(c.Surface...); err != nil {
		errs = append(errs, "surface: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Matching is case-insensitive;
// anything unknown logs at info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// VolSurface builds the configured volatility surface.
func (c *Config) VolSurface() (*volatility.Surface, error) {
	return volatility.NewSurface(c.Surface...)
}
