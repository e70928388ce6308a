package promotion

import (
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/rollup"
	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// Decision is a promotion verdict. DEMOTE is part of the persisted contract
// (manual overrides record it) but Evaluate itself only emits PROMOTE, KEEP
// and FREEZE.
type Decision string

const (
	DecisionPromote Decision = "PROMOTE"
	DecisionDemote  Decision = "DEMOTE"
	DecisionKeep    Decision = "KEEP"
	DecisionFreeze  Decision = "FREEZE"
)

// HealthRequirement restricts which health states may promote.
type HealthRequirement string

const (
	HealthOKOnly HealthRequirement = "OK_ONLY"
	HealthWarnOK HealthRequirement = "WARN_OK"
)

// Rules is the externally-supplied promotion rule set. Thresholds set to
// zero disable the corresponding gate.
type Rules struct {
	Enabled               bool              `yaml:"enabled"`
	MinTrades             int               `yaml:"min_trades"`
	MinActiveDays         int               `yaml:"min_active_days"`
	WindowDays            int               `yaml:"window_days"`
	MinProfitFactor       float64           `yaml:"min_profit_factor"`
	MinSharpe             float64           `yaml:"min_sharpe"`
	MaxDrawdownPct        float64           `yaml:"max_drawdown_pct"`
	MinExpectancy         float64           `yaml:"min_expectancy"`
	HealthRequirement     HealthRequirement `yaml:"health_requirement"`
	RecentActivityDays    int               `yaml:"recent_activity_days"`
	BacktestRequired      bool              `yaml:"backtest_required"`
	BacktestMaxAgeDays    int               `yaml:"backtest_max_age_days"`
	ManualOverrideAllowed bool              `yaml:"manual_override_allowed"`
}

// Input is one evaluation's snapshot: the bot's stage and health plus the
// windowed metrics and backtest-coverage facts. Metrics may be nil.
type Input struct {
	BotID             string
	Stage             state.Stage
	Health            state.HealthState
	Metrics           *rollup.MetricsRollup
	LastBacktestAt    *time.Time
	BacktestCompleted bool
	Now               time.Time
}

// Result is an auditable promotion decision. Reasons is never empty.
type Result struct {
	Decision  Decision              `json:"decision"`
	FromStage state.Stage           `json:"from_stage"`
	ToStage   state.Stage           `json:"to_stage"`
	Reasons   []string              `json:"reasons"`
	Metrics   *rollup.MetricsRollup `json:"metrics_snapshot"`
}
