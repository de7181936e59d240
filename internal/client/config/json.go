package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pocketlend/internal/flagx"
	"github.com/dmitrijs2005/pocketlend/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from zero so a partial file only overrides what it names.
type JsonConfig struct {
	APIBaseURL        *string         `json:"api_base_url"`
	APIKey            *string         `json:"api_key"`
	HealthGRPCAddr    *string         `json:"health_grpc_addr"`
	DBPath            *string         `json:"db_path"`
	ProbeInterval     *timex.Duration `json:"probe_interval"`
	ProbeMaxInterval  *timex.Duration `json:"probe_max_interval"`
	HTTPTimeout       *timex.Duration `json:"http_timeout"`
	MaxReplayAttempts *int            `json:"max_replay_attempts"`
	ReplaySchedule    *string         `json:"replay_schedule"`
	LogLevel          *string         `json:"log_level"`
	LogFormat         *string         `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config in args. Without such a flag nothing happens. Read or unmarshal
// errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.HealthGRPCAddr, jc.HealthGRPCAddr)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.ReplaySchedule, jc.ReplaySchedule)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.ProbeInterval != nil {
		cfg.ProbeInterval = jc.ProbeInterval.Duration
	}
	if jc.ProbeMaxInterval != nil {
		cfg.ProbeMaxInterval = jc.ProbeMaxInterval.Duration
	}
	if jc.HTTPTimeout != nil {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}
	if jc.MaxReplayAttempts != nil {
		cfg.MaxReplayAttempts = *jc.MaxReplayAttempts
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
