package config

import (
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// StagesConfig is the stage→allowed-modes table. Keys and values are the
// persisted stage/mode strings.
type StagesConfig struct {
	AllowedModes map[string][]string `yaml:"allowed_modes"`
}

// DefaultStages returns the standard lifecycle table: research bots only
// backtest, each later stage runs in its own mode, and shadow additionally
// tolerates paper mode during cutover.
func DefaultStages() StagesConfig {
	return StagesConfig{
		AllowedModes: map[string][]string{
			"research": {"backtest"},
			"paper":    {"paper"},
			"shadow":   {"shadow", "paper"},
			"canary":   {"canary"},
			"live":     {"live"},
		},
	}
}

// ModeTable converts the raw table to typed stage/mode keys.
func (s StagesConfig) ModeTable() map[state.Stage][]state.Mode {
	out := make(map[state.Stage][]state.Mode, len(s.AllowedModes))
	for stage, modes := range s.AllowedModes {
		typed := make([]state.Mode, 0, len(modes))
		for _, m := range modes {
			typed = append(typed, state.Mode(m))
		}
		out[state.Stage(stage)] = typed
	}
	return out
}

// StateThresholds assembles the injected threshold tables the synthesizer
// consumes.
func (c Config) StateThresholds() state.Thresholds {
	return state.Thresholds{
		Heartbeat: state.HeartbeatThresholds{
			WarnAfter:  c.Heartbeat.WarnAfter,
			StaleAfter: c.Heartbeat.StaleAfter,
		},
		Health: state.HealthThresholds{
			WarnBelow:     c.Health.WarnBelow,
			DegradedBelow: c.Health.DegradedBelow,
		},
		AllowedModes: c.Stages.ModeTable(),
	}
}

// RollupWindow returns the configured rollup window as a duration.
func (c Config) RollupWindow() time.Duration {
	return time.Duration(c.Rollup.WindowDays) * 24 * time.Hour
}
