package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Scan.BatchSize != 5 {
		t.Fatalf("scan.batch_size default = %d, want 5", cfg.Scan.BatchSize)
	}
	if cfg.Scan.MaxAttempts != 3 {
		t.Fatalf("scan.max_attempts default = %d, want 3", cfg.Scan.MaxAttempts)
	}
	if cfg.Scan.PerItemDelay != 2*time.Second {
		t.Fatalf("scan.per_item_delay default = %s, want 2s", cfg.Scan.PerItemDelay)
	}
	if len(cfg.Fetch.Timeframes) != 3 {
		t.Fatalf("fetch.timeframes default = %v, want 3 entries", cfg.Fetch.Timeframes)
	}
	if cfg.Fetch.BaseURL != "https://scanner.tradingview.com" {
		t.Fatalf("unexpected fetch.base_url: %s", cfg.Fetch.BaseURL)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("scheduler.interval default = %s, want 24h", cfg.Scheduler.Interval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RSIWATCH_SCAN_BATCH_SIZE", "7")
	t.Setenv("RSIWATCH_FETCH_MARKET", "germany")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Scan.BatchSize != 7 {
		t.Fatalf("env override ignored: batch_size = %d", cfg.Scan.BatchSize)
	}
	if cfg.Fetch.Market != "germany" {
		t.Fatalf("env override ignored: market = %s", cfg.Fetch.Market)
	}
}

func TestValidateRejectsInvalid(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Scan.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero batch size")
	}

	cfg = base()
	cfg.Scan.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max attempts")
	}

	cfg = base()
	cfg.Fetch.Timeframes = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty timeframes")
	}

	cfg = base()
	cfg.Alerting.OversoldBelow = 80
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted thresholds")
	}

	cfg = base()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram enabled without token should fail validation")
	}
}
