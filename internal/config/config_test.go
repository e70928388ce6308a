package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
tick_interval: 10s
log_level: debug
heartbeat:
  warn_after: 45s
  stale_after: 2m
promotion:
  min_trades: 100
graduation:
  paper:
    min_trades: 60
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.TickInterval != 10*time.Second {
		t.Fatalf("expected tick_interval 10s, got %s", cfg.TickInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log_level debug, got %q", cfg.LogLevel)
	}
	if cfg.Heartbeat.WarnAfter != 45*time.Second || cfg.Heartbeat.StaleAfter != 2*time.Minute {
		t.Fatalf("heartbeat overrides not applied: %+v", cfg.Heartbeat)
	}
	if cfg.Promotion.MinTrades != 100 {
		t.Fatalf("expected min_trades 100, got %d", cfg.Promotion.MinTrades)
	}
	if cfg.Graduation["paper"].MinTrades != 60 {
		t.Fatalf("expected graduation paper min_trades 60, got %d", cfg.Graduation["paper"].MinTrades)
	}
	// Untouched sections keep their defaults.
	if cfg.Health.WarnBelow != 70 {
		t.Fatalf("expected default warn_below 70, got %f", cfg.Health.WarnBelow)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ORCHESTRATOR_PROMOTION_ENABLED", "false")
	t.Setenv("ORCHESTRATOR_TELEGRAM_BOT_TOKEN", "tok-123")
	t.Setenv("ORCHESTRATOR_TELEGRAM_CHAT_ID", "chat-456")
	t.Setenv("ORCHESTRATOR_LOG_LEVEL", "DEBUG")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Promotion.Enabled {
		t.Fatal("env should disable promotion")
	}
	if cfg.Telegram.BotToken != "tok-123" || cfg.Telegram.ChatID != "chat-456" {
		t.Fatalf("telegram env not applied: %+v", cfg.Telegram)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lowercased log level, got %q", cfg.LogLevel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero warn_after", func(c *Config) { c.Heartbeat.WarnAfter = 0 }, "warn_after"},
		{"stale before warn", func(c *Config) { c.Heartbeat.StaleAfter = time.Second }, "stale_after"},
		{"warn_below range", func(c *Config) { c.Health.WarnBelow = 150 }, "warn_below"},
		{"degraded above warn", func(c *Config) { c.Health.DegradedBelow = 80 }, "degraded_below"},
		{"empty stage table", func(c *Config) { c.Stages.AllowedModes = nil }, "allowed_modes"},
		{"stage without modes", func(c *Config) { c.Stages.AllowedModes["live"] = nil }, "allowed_modes[live]"},
		{"negative min_trades", func(c *Config) { c.Promotion.MinTrades = -1 }, "min_trades"},
		{"bad health requirement", func(c *Config) { c.Promotion.HealthRequirement = "ALWAYS" }, "health_requirement"},
		{"drawdown range", func(c *Config) { c.Promotion.MaxDrawdownPct = 120 }, "max_drawdown_pct"},
		{"graduation win rate", func(c *Config) {
			th := c.Graduation["paper"]
			th.MinWinRate = 200
			c.Graduation["paper"] = th
		}, "min_win_rate"},
		{"zero window", func(c *Config) { c.Rollup.WindowDays = 0 }, "window_days"},
		{"zero capital", func(c *Config) { c.Rollup.CapitalBase = 0 }, "capital_base"},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestModeTable(t *testing.T) {
	table := DefaultStages().ModeTable()
	modes, ok := table["shadow"]
	if !ok {
		t.Fatal("expected shadow stage in mode table")
	}
	if len(modes) != 2 || modes[0] != "shadow" || modes[1] != "paper" {
		t.Fatalf("unexpected shadow modes: %v", modes)
	}
}

func TestStateThresholds(t *testing.T) {
	cfg := Default()
	th := cfg.StateThresholds()
	if th.Heartbeat.WarnAfter != cfg.Heartbeat.WarnAfter || th.Heartbeat.StaleAfter != cfg.Heartbeat.StaleAfter {
		t.Fatalf("heartbeat thresholds not carried over: %+v", th.Heartbeat)
	}
	if th.Health.WarnBelow != 70 || th.Health.DegradedBelow != 40 {
		t.Fatalf("health thresholds not carried over: %+v", th.Health)
	}
	if len(th.AllowedModes) != 5 {
		t.Fatalf("expected 5 stages in the mode table, got %d", len(th.AllowedModes))
	}
}

func TestRollupWindow(t *testing.T) {
	cfg := Default()
	if got := cfg.RollupWindow(); got != 30*24*time.Hour {
		t.Fatalf("expected 30d window, got %s", got)
	}
}
