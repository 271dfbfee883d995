package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/titanous/json5"
)

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	expandPaths(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables. Secrets (API key, Postgres DSN)
// come from env only.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MUSEBOT_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("MUSEBOT_DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	cfg.Features.APIKey = os.Getenv("MUSEBOT_DEEPAI_KEY")
	cfg.Database.PostgresDSN = os.Getenv("MUSEBOT_POSTGRES_DSN")
}

// expandPaths resolves "~/..." in path-valued settings.
func expandPaths(cfg *Config) {
	cfg.Database.SQLitePath = expandHome(cfg.Database.SQLitePath)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks settings needed before startup.
func (c *Config) Validate() error {
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram enabled but no token set (config telegram.token or MUSEBOT_TELEGRAM_TOKEN)")
	}
	if c.Discord.Enabled && c.Discord.Token == "" {
		return fmt.Errorf("discord enabled but no token set (config discord.token or MUSEBOT_DISCORD_TOKEN)")
	}
	if c.Features.APIKey == "" {
		return fmt.Errorf("MUSEBOT_DEEPAI_KEY environment variable is not set")
	}
	return nil
}

// Watch reloads the config file on change and invokes onChange with the new
// config. Only non-secret knobs are expected to change at runtime; channel
// tokens require a restart. Runs until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	// Watch the directory; editors often replace the file atomically,
	// which drops a watch placed on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					slog.Warn("config reload failed", "path", path, "error", err)
					continue
				}
				slog.Info("config reloaded", "path", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
