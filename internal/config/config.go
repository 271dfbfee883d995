// Package config holds the static configuration injected at startup:
// chat-transport tokens, remote API key, limiter/cache/history constants,
// storage and telemetry settings.
package config

import "time"

// Config is the root configuration for the musebot gateway.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Discord   DiscordConfig   `json:"discord,omitempty"`
	Features  FeaturesConfig  `json:"features"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Quiz      QuizConfig      `json:"quiz,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled    bool    `json:"enabled"`
	Token      string  `json:"token,omitempty"` // MUSEBOT_TELEGRAM_TOKEN overrides
	AllowFrom  []int64 `json:"allow_from,omitempty"`
	AdminIDs   []int64 `json:"admin_ids,omitempty"` // extra moderation admins beyond chat admins
	FloodLimit int     `json:"flood_limit,omitempty"`
}

// DiscordConfig configures the optional Discord channel (text features only).
type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"` // MUSEBOT_DISCORD_TOKEN overrides
}

// FeaturesConfig configures the remote feature API client.
// APIKey is NEVER read from the config file (secret), only from env
// MUSEBOT_DEEPAI_KEY.
type FeaturesConfig struct {
	APIKey  string `json:"-"`
	APIBase string `json:"api_base,omitempty"` // override for testing/self-hosting
}

// DispatchConfig tunes the per-identity request-shaping layer.
type DispatchConfig struct {
	LimiterCapacity  int `json:"limiter_capacity,omitempty"`   // tokens per window (default 5)
	LimiterWindowSec int `json:"limiter_window_sec,omitempty"` // window length (default 60)
	CacheTTLSec      int `json:"cache_ttl_sec,omitempty"`      // result TTL (default 3600)
	CacheMaxEntries  int `json:"cache_max_entries,omitempty"`  // per-identity bound (default 64)
	HistoryDepth     int `json:"history_depth,omitempty"`      // recent features kept (default 3)
	DrainIntervalMS  int `json:"drain_interval_ms,omitempty"`  // drain tick (default 1000)
	DrainBudget      int `json:"drain_budget,omitempty"`       // items per identity per tick (default 8)
}

// LimiterWindow returns the configured window as a duration.
func (d DispatchConfig) LimiterWindow() time.Duration {
	if d.LimiterWindowSec <= 0 {
		return time.Minute
	}
	return time.Duration(d.LimiterWindowSec) * time.Second
}

// CacheTTL returns the configured TTL as a duration.
func (d DispatchConfig) CacheTTL() time.Duration {
	if d.CacheTTLSec <= 0 {
		return time.Hour
	}
	return time.Duration(d.CacheTTLSec) * time.Second
}

// DrainInterval returns the configured drain tick as a duration.
func (d DispatchConfig) DrainInterval() time.Duration {
	if d.DrainIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(d.DrainIntervalMS) * time.Millisecond
}

// DatabaseConfig selects the storage backend.
// PostgresDSN is env-only (MUSEBOT_POSTGRES_DSN), never persisted.
type DatabaseConfig struct {
	SQLitePath  string `json:"sqlite_path,omitempty"` // default ~/.musebot/musebot.db
	PostgresDSN string `json:"-"`
}

// QuizConfig configures the periodic quiz broadcaster.
type QuizConfig struct {
	Enabled  bool   `json:"enabled"`
	ChatID   int64  `json:"chat_id,omitempty"`  // group chat to broadcast to
	Schedule string `json:"schedule,omitempty"` // cron expression, default "* * * * *"
}

// TelemetryConfig configures optional OTLP trace export.
// Tracing is disabled when Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string `json:"endpoint,omitempty"` // OTLP HTTP collector, e.g. "localhost:4318"
	ServiceName string `json:"service_name,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled:    true,
			FloodLimit: 30,
		},
		Dispatch: DispatchConfig{
			LimiterCapacity:  5,
			LimiterWindowSec: 60,
			CacheTTLSec:      3600,
			CacheMaxEntries:  64,
			HistoryDepth:     3,
			DrainIntervalMS:  1000,
			DrainBudget:      8,
		},
		Database: DatabaseConfig{
			SQLitePath: "~/.musebot/musebot.db",
		},
		Quiz: QuizConfig{
			Schedule: "* * * * *",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "musebot",
		},
	}
}
