package state

import "time"

// Stage is a bot's lifecycle phase. Values are persisted by external systems
// and must stay bit-exact.
type Stage string

const (
	StageResearch Stage = "research"
	StagePaper    Stage = "paper"
	StageShadow   Stage = "shadow"
	StageCanary   Stage = "canary"
	StageLive     Stage = "live"
)

// RequiresRunner reports whether a stage expects a live runner process.
func (s Stage) RequiresRunner() bool { return s != StageResearch && s != "" }

// NextStage returns the stage following s in the lifecycle order. The second
// return is false for the final stage and for unknown stages.
func NextStage(s Stage) (Stage, bool) {
	switch s {
	case StageResearch:
		return StagePaper, true
	case StagePaper:
		return StageShadow, true
	case StageShadow:
		return StageCanary, true
	case StageCanary:
		return StageLive, true
	default:
		return "", false
	}
}

// Mode is the execution mode a bot is configured to run in; it must belong
// to its stage's allowed set.
type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModePaper    Mode = "paper"
	ModeShadow   Mode = "shadow"
	ModeCanary   Mode = "canary"
	ModeLive     Mode = "live"
)

// RunnerState is the synthesized runner sub-state.
type RunnerState string

const (
	RunnerNone        RunnerState = "none"
	RunnerStarting    RunnerState = "starting"
	RunnerRestarting  RunnerState = "restarting"
	RunnerRunning     RunnerState = "running"
	RunnerScanning    RunnerState = "scanning"
	RunnerTrading     RunnerState = "trading"
	RunnerStalled     RunnerState = "stalled"
	RunnerPaused      RunnerState = "paused"
	RunnerStopped     RunnerState = "stopped"
	RunnerError       RunnerState = "error"
	RunnerCircuitOpen RunnerState = "circuit_open"
)

// JobState is the synthesized job-queue sub-state.
type JobState string

const (
	JobIdle        JobState = "idle"
	JobQueued      JobState = "queued"
	JobBacktesting JobState = "backtesting"
	JobEvolving    JobState = "evolving"
	JobEvaluating  JobState = "evaluating"
)

// EvolutionState is the synthesized evolution-cycle sub-state.
type EvolutionState string

const (
	EvolutionIdle         EvolutionState = "idle"
	EvolutionDisabled     EvolutionState = "disabled"
	EvolutionQueued       EvolutionState = "queued"
	EvolutionEvolving     EvolutionState = "evolving"
	EvolutionPaused       EvolutionState = "paused"
	EvolutionWaitingRetry EvolutionState = "waiting_retry"
	EvolutionActive       EvolutionState = "active"
)

// HealthState classifies overall bot health. FROZEN is set externally (e.g.
// by an operator or kill switch) and never produced by the classifier.
type HealthState string

const (
	HealthOK       HealthState = "OK"
	HealthWarn     HealthState = "WARN"
	HealthDegraded HealthState = "DEGRADED"
	HealthFrozen   HealthState = "FROZEN"
)

// Severity ranks a blocker.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// BlockerCode identifies a typed obstacle. Codes are persisted and compared
// by external systems.
type BlockerCode string

const (
	CodeNoPrimaryRunner      BlockerCode = "NO_PRIMARY_RUNNER"
	CodeModeStageMismatch    BlockerCode = "MODE_STAGE_MISMATCH"
	CodeUnknownStage         BlockerCode = "UNKNOWN_STAGE"
	CodePreStageRunnerActive BlockerCode = "PRE_STAGE_RUNNER_ACTIVE"
	CodeRunnerStalled        BlockerCode = "RUNNER_STALLED"
	CodeRunnerError          BlockerCode = "RUNNER_ERROR"
	CodeHeartbeatLagging     BlockerCode = "HEARTBEAT_LAGGING"
	CodeCircuitOpen          BlockerCode = "CIRCUIT_OPEN"
	CodeKillSwitchEngaged    BlockerCode = "KILL_SWITCH_ENGAGED"
)

// Blocker is a typed, severity-ranked obstacle. All five core fields are
// always populated.
type Blocker struct {
	Code            BlockerCode `json:"code"`
	Severity        Severity    `json:"severity"`
	Message         string      `json:"message"`
	SuggestedAction string      `json:"suggested_action"`
	AutoHealable    bool        `json:"auto_healable"`
	Evidence        string      `json:"evidence,omitempty"`
}

// RunnerStatus is the raw status reported by a runner process.
type RunnerStatus string

const (
	StatusStarting RunnerStatus = "starting"
	StatusRunning  RunnerStatus = "running"
	StatusPaused   RunnerStatus = "paused"
	StatusStopping RunnerStatus = "stopping"
	StatusStopped  RunnerStatus = "stopped"
	StatusError    RunnerStatus = "error"
)

// Activity is the runner's self-reported activity flag.
type Activity string

const (
	ActivityIdle     Activity = "idle"
	ActivityScanning Activity = "scanning"
	ActivityTrading  Activity = "trading"
)

// BotContext is the bot record as stored; read-only input.
type BotContext struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Stage            Stage       `json:"stage"`
	Mode             Mode        `json:"mode"`
	TradingEnabled   bool        `json:"trading_enabled"`
	HealthScore      float64     `json:"health_score"`
	HealthState      HealthState `json:"health_state"`
	HealthReason     string      `json:"health_reason"`
	EvolutionMode    string      `json:"evolution_mode"`
	KillSwitch       bool        `json:"kill_switch"`
	KillSwitchReason string      `json:"kill_switch_reason"`
}

// InstanceContext is the at-most-one live runner record for a bot.
type InstanceContext struct {
	ID                   string       `json:"id"`
	Status               RunnerStatus `json:"status"`
	Activity             Activity     `json:"activity"`
	LastHeartbeatAt      *time.Time   `json:"last_heartbeat_at"`
	LastError            string       `json:"last_error"`
	CircuitOpen          bool         `json:"circuit_open"`
	RestartCount         int          `json:"restart_count"`
	NextRestartAllowedAt *time.Time   `json:"next_restart_allowed_at"`
}

// JobsSummary carries queued/running counts per job type.
type JobsSummary struct {
	QueuedBacktest      int `json:"queued_backtest"`
	QueuedEvolve        int `json:"queued_evolve"`
	QueuedEvaluate      int `json:"queued_evaluate"`
	QueuedRunnerStart   int `json:"queued_runner_start"`
	QueuedRunnerRestart int `json:"queued_runner_restart"`
	RunningBacktest     int `json:"running_backtest"`
	RunningEvolve       int `json:"running_evolve"`
	RunningEvaluate     int `json:"running_evaluate"`
	TotalQueued         int `json:"total_queued"`
	TotalRunning        int `json:"total_running"`
}

// ImprovementContext is the evolution-cycle record for a bot.
type ImprovementContext struct {
	CycleStatus    string            `json:"cycle_status"`
	PausedScope    string            `json:"paused_scope"`
	PausedBy       string            `json:"paused_by"`
	NextRetryAt    *time.Time        `json:"next_retry_at"`
	WhyNotPromoted map[string]string `json:"why_not_promoted"`
}

// CanonicalBotState is the single authoritative state synthesized per
// evaluation. Produced fresh every call and never retained by this package.
type CanonicalBotState struct {
	RunnerState      RunnerState    `json:"runner_state"`
	RunnerReason     string         `json:"runner_reason"`
	JobState         JobState       `json:"job_state"`
	JobReason        string         `json:"job_reason"`
	EvolutionState   EvolutionState `json:"evolution_state"`
	EvolutionReason  string         `json:"evolution_reason"`
	HealthState      HealthState    `json:"health_state"`
	HealthScore      float64        `json:"health_score"`
	HealthReason     string         `json:"health_reason"`
	Blockers         []Blocker      `json:"blockers"`
	WhyNotTrading    []string       `json:"why_not_trading"`
	WhyNotPromoted   []string       `json:"why_not_promoted"`
	IsAutoHealable   bool           `json:"is_auto_healable"`
	SuggestedActions []string       `json:"suggested_actions"`
	EvaluatedAt      time.Time      `json:"evaluated_at"`
}

// HasCritical reports whether any blocker is CRITICAL.
func (s CanonicalBotState) HasCritical() bool {
	for _, b := range s.Blockers {
		if b.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
