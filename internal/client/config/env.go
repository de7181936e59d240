package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig mirrors the overridable settings. envconfig leaves a field
// untouched when its variable is unset, so seeding it with the current values
// turns Process into an overlay.
type envConfig struct {
	APIBaseURL        string        `envconfig:"API_BASE_URL"`
	APIKey            string        `envconfig:"API_KEY"`
	HealthGRPCAddr    string        `envconfig:"HEALTH_GRPC_ADDR"`
	DBPath            string        `envconfig:"DB_PATH"`
	ProbeInterval     time.Duration `envconfig:"PROBE_INTERVAL"`
	ProbeMaxInterval  time.Duration `envconfig:"PROBE_MAX_INTERVAL"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT"`
	MaxReplayAttempts int           `envconfig:"MAX_REPLAY_ATTEMPTS"`
	ReplaySchedule    string        `envconfig:"REPLAY_SCHEDULE"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`
	LogFormat         string        `envconfig:"LOG_FORMAT"`
}

const envPrefix = "POCKETLEND"

// parseEnv overlays Config with POCKETLEND_* environment variables, e.g.
// POCKETLEND_API_BASE_URL or POCKETLEND_PROBE_INTERVAL=5s. Malformed values
// panic.
func parseEnv(cfg *Config) {
	ec := envConfig{
		APIBaseURL:        cfg.APIBaseURL,
		APIKey:            cfg.APIKey,
		HealthGRPCAddr:    cfg.HealthGRPCAddr,
		DBPath:            cfg.DBPath,
		ProbeInterval:     cfg.ProbeInterval,
		ProbeMaxInterval:  cfg.ProbeMaxInterval,
		HTTPTimeout:       cfg.HTTPTimeout,
		MaxReplayAttempts: cfg.MaxReplayAttempts,
		ReplaySchedule:    cfg.ReplaySchedule,
		LogLevel:          cfg.LogLevel,
		LogFormat:         cfg.LogFormat,
	}
	if err := envconfig.Process(envPrefix, &ec); err != nil {
		panic(err)
	}

	cfg.APIBaseURL = ec.APIBaseURL
	cfg.APIKey = ec.APIKey
	cfg.HealthGRPCAddr = ec.HealthGRPCAddr
	cfg.DBPath = ec.DBPath
	cfg.ProbeInterval = ec.ProbeInterval
	cfg.ProbeMaxInterval = ec.ProbeMaxInterval
	cfg.HTTPTimeout = ec.HTTPTimeout
	cfg.MaxReplayAttempts = ec.MaxReplayAttempts
	cfg.ReplaySchedule = ec.ReplaySchedule
	cfg.LogLevel = ec.LogLevel
	cfg.LogFormat = ec.LogFormat
}
