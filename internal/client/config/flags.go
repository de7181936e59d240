package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/flagx"
)

var knownFlags = []string{"-u", "-k", "-g", "-db", "-i", "-t", "-r", "-s", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
// Parse errors panic.
func parseFlags(cfg *Config, args []string) {
	filtered := flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "u", cfg.APIBaseURL, "base URL of the remote API")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "API key")
	fs.StringVar(&cfg.HealthGRPCAddr, "g", cfg.HealthGRPCAddr, "gRPC health endpoint (host:port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "local database path")
	probeInterval := fs.Int("i", int(cfg.ProbeInterval.Seconds()), "connectivity probe interval (in seconds)")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout (in seconds)")
	fs.IntVar(&cfg.MaxReplayAttempts, "r", cfg.MaxReplayAttempts, "replay attempts before a write is marked failed")
	fs.StringVar(&cfg.ReplaySchedule, "s", cfg.ReplaySchedule, "cron spec of the replay sweep")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}

	// Second-granularity flags only replace durations they were given for, so a
	// sub-second value from JSON survives an absent flag.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.ProbeInterval = time.Duration(*probeInterval) * time.Second
		case "t":
			cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
		}
	})
}
