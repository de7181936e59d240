package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		expected    func() *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "Test1 OK",
			args: []string{"-u", "http://api:8080", "-i", "10", "-db", "x.db", "-r", "2", "-l", "debug"},
			expected: func() *Config {
				c := base()
				c.APIBaseURL = "http://api:8080"
				c.ProbeInterval = 10 * time.Second
				c.DBPath = "x.db"
				c.MaxReplayAttempts = 2
				c.LogLevel = "debug"
				return c
			},
		},
		{
			name:     "Test2 unrelated flags ignored",
			args:     []string{"-x", "1", "--verbose"},
			expected: base,
		},
		{name: "Test3 incorrect check interval", args: []string{"-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config, tt.args) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected(), config))
		})
	}
}

func TestParseFlags_AbsentDurationFlagKeepsSubSecondValue(t *testing.T) {
	cfg := &Config{ProbeInterval: 1500 * time.Millisecond, HTTPTimeout: 250 * time.Millisecond}
	parseFlags(cfg, []string{"-u", "http://x"})

	assert.Equal(t, 1500*time.Millisecond, cfg.ProbeInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTPTimeout)
}
