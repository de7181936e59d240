package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the pocketlend client.
type Config struct {
	// APIBaseURL is prepended to every logical operation path.
	APIBaseURL string
	// APIKey is sent as "apikey" and bearer token; empty disables both.
	APIKey string
	// HealthGRPCAddr switches the connectivity probe to gRPC health checks.
	HealthGRPCAddr string
	// DBPath is the SQLite DSN of the local store.
	DBPath string

	ProbeInterval    time.Duration
	ProbeMaxInterval time.Duration
	HTTPTimeout      time.Duration

	MaxReplayAttempts int
	ReplaySchedule    string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:3000"
	c.DBPath = "pocketlend.db"
	c.ProbeInterval = 3 * time.Second
	c.ProbeMaxInterval = time.Minute
	c.HTTPTimeout = 10 * time.Second
	c.MaxReplayAttempts = 5
	c.ReplaySchedule = "@every 30s"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones. Malformed input panics.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
