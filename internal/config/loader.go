package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (if path is non-empty) over Defaults,
// then applies GREEKS_* environment overrides. A .env file in the working
// directory is loaded first when present. The result is not validated; call
// Config.Validate after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads GREEKS_* environment variables and overwrites the
// corresponding Config fields when a variable is set and parses.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PORT") // platform convention
	setInt(&cfg.Server.Port, "GREEKS_SERVER_PORT")
	setDuration(&cfg.Server.ReadTimeout, "GREEKS_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "GREEKS_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "GREEKS_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.RequestTimeout, "GREEKS_SERVER_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "GREEKS_SERVER_SHUTDOWN_TIMEOUT")
	setStringSlice(&cfg.Server.CORSOrigins, "GREEKS_SERVER_CORS_ORIGINS")

	// ── Curves ──
	setFloat64(&cfg.Curves.SpotLow, "GREEKS_CURVES_SPOT_LOW")
	setFloat64(&cfg.Curves.SpotHigh, "GREEKS_CURVES_SPOT_HIGH")
	setInt(&cfg.Curves.Points, "GREEKS_CURVES_POINTS")
	setInt(&cfg.Curves.MaxDays, "GREEKS_CURVES_MAX_DAYS")
	setInt(&cfg.Curves.MaxPoints, "GREEKS_CURVES_MAX_POINTS")

	// ── Advisory ──
	setBool(&cfg.Advisory.ReturnAllMatches, "GREEKS_ADVISORY_RETURN_ALL_MATCHES")

	// ── Batch ──
	setInt(&cfg.Batch.MaxItems, "GREEKS_BATCH_MAX_ITEMS")
	setInt(&cfg.Batch.Workers, "GREEKS_BATCH_WORKERS")

	// ── Stream ──
	setDuration(&cfg.Stream.PingInterval, "GREEKS_STREAM_PING_INTERVAL")
	setDuration(&cfg.Stream.ReadTimeout, "GREEKS_STREAM_READ_TIMEOUT")
	setInt(&cfg.Stream.MaxClients, "GREEKS_STREAM_MAX_CLIENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "GREEKS_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
