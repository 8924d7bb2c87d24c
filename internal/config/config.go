// Package config loads kxgossipd's runtime configuration from environment
// variables (with an optional .env file for local development), following
// the lineage repo's config.go: caarlos0/env for parsing and validation,
// godotenv for the optional file, zerolog for structured startup logging.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every environment-tunable setting for a kxgossipd process.
type Config struct {
	// BindAddr is the UDP address this node's gossip engine listens on.
	BindAddr string `env:"KXGOSSIP_BIND_ADDR" envDefault:":7946"`
	// Seeds is the comma-separated list of peer addresses Join dials on
	// startup. Empty means this node bootstraps its own cluster.
	Seeds []string `env:"KXGOSSIP_SEEDS" envSeparator:","`

	// MetricsAddr serves the Prometheus /metrics endpoint.
	MetricsAddr string `env:"KXGOSSIP_METRICS_ADDR" envDefault:":9946"`

	// NATSURL and NATSSubject configure the optional external data feed
	// that forwards inbound messages into Engine.SendData.
	NATSURL     string `env:"KXGOSSIP_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSSubject string `env:"KXGOSSIP_NATS_SUBJECT" envDefault:"kxgossip.outbound"`

	// SendRatePerSecond caps the sustained rate of ProcessSend's drain, in
	// datagrams per second; burst is fixed at MAX_OUTPUT_MESSAGES (the
	// outbound buffer pool's slot count) so one drain can always clear a
	// full pool's worth of due retries.
	SendRatePerSecond float64 `env:"KXGOSSIP_SEND_RATE" envDefault:"200"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file, then parses environment variables into
// a Config, validating the result. logger may be nil during the earliest
// startup, before a structured logger exists.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internally-inconsistent or
// out-of-range values.
func (c *Config) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("KXGOSSIP_BIND_ADDR is required")
	}
	if c.SendRatePerSecond <= 0 {
		return fmt.Errorf("KXGOSSIP_SEND_RATE must be positive (got %v)", c.SendRatePerSecond)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}

	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of json, pretty (got %q)", c.LogFormat)
	}

	return nil
}

// LogConfig emits the loaded configuration as one structured log line, the
// way the lineage repo's Config.LogConfig does for Loki-friendly startup
// diagnostics.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("bind_addr", c.BindAddr).
		Strs("seeds", c.Seeds).
		Str("metrics_addr", c.MetricsAddr).
		Str("nats_url", c.NATSURL).
		Str("nats_subject", c.NATSSubject).
		Float64("send_rate_per_second", c.SendRatePerSecond).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("kxgossipd configuration loaded")
}
