package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"laborbook/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "HTTP_ADDR", "JWT_SECRET", "REDIS_ADDR", "REDIS_PASSWORD", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE", "WEEKLY_HOUR_CAP", config.EnvConfigPath} {
		t.Setenv(key, "")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file")
	}
	if !strings.HasSuffix(resolved, "laborbook.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Booking.WeeklyHourCap != 50 {
		t.Fatalf("expected weekly cap 50, got %v", cfg.Booking.WeeklyHourCap)
	}
	if cfg.Booking.PostingTTL.Duration != 7*24*time.Hour {
		t.Fatalf("expected 7 day posting ttl, got %s", cfg.Booking.PostingTTL)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTP.Addr)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	body := `
[database]
url = "postgres://file"

[booking]
timezone = "UTC"
posting_ttl = "48h"
tx_attempts = 5

[redis]
addr = "localhost:6379"
apply_limit = 3
apply_window = "30s"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("WEEKLY_HOUR_CAP", "40")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %s to be read, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Database.URL != "postgres://env" {
		t.Fatalf("expected env to win, got %q", cfg.Database.URL)
	}
	if cfg.Booking.PostingTTL.Duration != 48*time.Hour || cfg.Booking.TxAttempts != 5 {
		t.Fatalf("unexpected booking section %+v", cfg.Booking)
	}
	if cfg.Booking.WeeklyHourCap != 40 {
		t.Fatalf("expected env weekly cap 40, got %v", cfg.Booking.WeeklyHourCap)
	}
	if cfg.Redis.ApplyWindow.Duration != 30*time.Second || cfg.Redis.ApplyLimit != 3 {
		t.Fatalf("unexpected redis section %+v", cfg.Redis)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", cfg.Location())
	}
}

func TestLoadEnvConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "from-env.toml")
	if err := os.WriteFile(path, []byte("[http]\naddr = \":9999\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvConfigPath, path)

	cfg, _, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || cfg.HTTP.Addr != ":9999" {
		t.Fatalf("expected file from %s, got addr %q", config.EnvConfigPath, cfg.HTTP.Addr)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	clearEnv(t)
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadRejectsUnknownKeysAndBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknown, []byte("[booking]\nweekly_cap = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(unknown); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}

	bad := filepath.Join(dir, "bad.toml")
	body := "[booking]\nweekly_hour_cap = 0\ntx_attempts = 0\ntimezone = \"Mars/Olympus\"\n"
	if err := os.WriteFile(bad, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(bad)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"weekly_hour_cap", "tx_attempts", "booking.timezone"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestSampleConfigDecodesToDefaults(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	def := config.Default()
	if cfg.Booking.WeeklyHourCap != def.Booking.WeeklyHourCap {
		t.Fatalf("sample weekly cap %v differs from default %v", cfg.Booking.WeeklyHourCap, def.Booking.WeeklyHourCap)
	}
	if cfg.Booking.PostingTTL != def.Booking.PostingTTL {
		t.Fatalf("sample posting ttl %s differs from default %s", cfg.Booking.PostingTTL, def.Booking.PostingTTL)
	}
	if cfg.Redis.ApplyLimit != def.Redis.ApplyLimit {
		t.Fatalf("sample apply limit differs from default")
	}
}
