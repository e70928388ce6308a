package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantfleet/bot-orchestrator/internal/graduation"
	"github.com/quantfleet/bot-orchestrator/internal/promotion"
)

type Config struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	LogLevel     string        `yaml:"log_level"`

	Heartbeat  HeartbeatConfig                  `yaml:"heartbeat"`
	Health     HealthConfig                     `yaml:"health"`
	Stages     StagesConfig                     `yaml:"stages"`
	Promotion  promotion.Rules                  `yaml:"promotion"`
	Graduation map[string]graduation.Thresholds `yaml:"graduation"`
	Rollup     RollupConfig                     `yaml:"rollup"`
	Telegram   TelegramConfig                   `yaml:"telegram"`
}

type HeartbeatConfig struct {
	WarnAfter  time.Duration `yaml:"warn_after"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type HealthConfig struct {
	WarnBelow     float64 `yaml:"warn_below"`
	DegradedBelow float64 `yaml:"degraded_below"`
}

type RollupConfig struct {
	WindowDays  int     `yaml:"window_days"`
	CapitalBase float64 `yaml:"capital_base"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

func Default() Config {
	return Config{
		TickInterval: 30 * time.Second,
		LogLevel:     "info",
		Heartbeat: HeartbeatConfig{
			WarnAfter:  90 * time.Second,
			StaleAfter: 5 * time.Minute,
		},
		Health: HealthConfig{
			WarnBelow:     70,
			DegradedBelow: 40,
		},
		Stages: DefaultStages(),
		Promotion: promotion.Rules{
			Enabled:            true,
			MinTrades:          50,
			MinActiveDays:      10,
			WindowDays:         30,
			MinProfitFactor:    1.5,
			MinSharpe:          1.0,
			MaxDrawdownPct:     20,
			MinExpectancy:      0,
			HealthRequirement:  promotion.HealthWarnOK,
			RecentActivityDays: 3,
			BacktestRequired:   true,
			BacktestMaxAgeDays: 14,
		},
		Graduation: map[string]graduation.Thresholds{
			"paper":  {MinTrades: 30, MinWinRate: 45, MinProfitFactor: 1.2, MaxDrawdownPct: 25, MinExpectancy: 0},
			"shadow": {MinTrades: 50, MinWinRate: 48, MinProfitFactor: 1.3, MaxDrawdownPct: 20, MinExpectancy: 0},
			"canary": {MinTrades: 80, MinWinRate: 50, MinProfitFactor: 1.4, MaxDrawdownPct: 15, MinExpectancy: 0},
		},
		Rollup: RollupConfig{
			WindowDays:  30,
			CapitalBase: 1000,
		},
	}
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := os.Getenv("ORCHESTRATOR_PROMOTION_ENABLED"); v != "" {
		c.Promotion.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("ORCHESTRATOR_TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("ORCHESTRATOR_TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("ORCHESTRATOR_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}
