package fleet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/rollup"
	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// TradeSample is one closed trade as observed by the collaborators.
type TradeSample struct {
	At  time.Time `json:"at"`
	PnL float64   `json:"pnl"`
}

// BotSnapshot is everything the collaborator layer knows about one bot at
// the moment a tick starts. Instance, Improvement and Metrics may be null.
// When Metrics is null the tick builds a rollup from Trades, so collaborators
// can ship either a pre-aggregated rollup or the raw closed trades.
type BotSnapshot struct {
	Bot               state.BotContext          `json:"bot"`
	Instance          *state.InstanceContext    `json:"instance"`
	Jobs              state.JobsSummary         `json:"jobs"`
	Improvement       *state.ImprovementContext `json:"improvement"`
	Metrics           *rollup.MetricsRollup     `json:"metrics"`
	Trades            []TradeSample             `json:"trades,omitempty"`
	LastBacktestAt    *time.Time                `json:"last_backtest_at"`
	BacktestCompleted bool                      `json:"backtest_completed"`
}

// Snapshot is one fleet-wide observation set.
type Snapshot struct {
	TakenAt time.Time     `json:"taken_at"`
	Bots    []BotSnapshot `json:"bots"`
}

// LoadSnapshot reads a fleet snapshot from a JSON file.
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("fleet: read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("fleet: decode snapshot: %w", err)
	}
	return snap, nil
}
