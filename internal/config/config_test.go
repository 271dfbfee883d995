package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatch.LimiterCapacity != 5 {
		t.Fatalf("limiter capacity = %d, want default 5", cfg.Dispatch.LimiterCapacity)
	}
	if cfg.Dispatch.CacheTTL() != time.Hour {
		t.Fatalf("cache ttl = %v, want 1h", cfg.Dispatch.CacheTTL())
	}
	if cfg.Dispatch.DrainInterval() != time.Second {
		t.Fatalf("drain interval = %v, want 1s", cfg.Dispatch.DrainInterval())
	}
}

func TestLoad_FileOverridesAndEnvSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		// json5 comments are allowed
		"dispatch": {"limiter_capacity": 9, "limiter_window_sec": 30},
		"telegram": {"enabled": true, "token": "from-file"},
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MUSEBOT_TELEGRAM_TOKEN", "from-env")
	t.Setenv("MUSEBOT_DEEPAI_KEY", "secret-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatch.LimiterCapacity != 9 {
		t.Fatalf("limiter capacity = %d, want 9", cfg.Dispatch.LimiterCapacity)
	}
	if cfg.Dispatch.LimiterWindow() != 30*time.Second {
		t.Fatalf("window = %v, want 30s", cfg.Dispatch.LimiterWindow())
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, env must override file", cfg.Telegram.Token)
	}
	if cfg.Features.APIKey != "secret-key" {
		t.Fatalf("api key = %q, want env value", cfg.Features.APIKey)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("MUSEBOT_DEEPAI_KEY", "")

	cfg := Default()
	cfg.Telegram.Token = "tok"
	cfg.Features.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing API key must fail validation")
	}

	cfg.Features.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.Telegram.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram enabled without token must fail validation")
	}
}
