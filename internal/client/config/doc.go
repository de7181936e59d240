// Package config loads runtime configuration for the pocketlend client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables with the POCKETLEND_ prefix.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-u string   base URL of the remote REST API
//	-k string   API key sent with every request
//	-g string   host:port of a gRPC health endpoint used as connectivity probe
//	-db string  path of the local SQLite database
//	-i int      connectivity probe interval (seconds)
//	-t int      HTTP request timeout (seconds)
//	-r int      replay attempts before a queued write is marked failed
//	-s string   cron spec of the periodic replay sweep
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.example.com/rest/v1",
//	  "db_path": "pocketlend.db",
//	  "probe_interval": "3s",
//	  "probe_max_interval": "1m",
//	  "replay_schedule": "@every 30s"
//	}
package config
