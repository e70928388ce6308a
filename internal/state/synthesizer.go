package state

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// HeartbeatThresholds are the injected heartbeat-age cutoffs.
type HeartbeatThresholds struct {
	WarnAfter  time.Duration
	StaleAfter time.Duration
}

// Thresholds bundles every externally-defined table the synthesizer needs.
// Passed explicitly so each call is self-contained and testable.
type Thresholds struct {
	Heartbeat    HeartbeatThresholds
	Health       HealthThresholds
	AllowedModes map[Stage][]Mode
}

// Synthesizer reconciles raw bot/runner/job/evolution observations into one
// CanonicalBotState. It is pure and deterministic: identical inputs always
// yield identical output, and no state is retained between calls.
type Synthesizer struct {
	th Thresholds
}

// NewSynthesizer creates a Synthesizer with the given threshold tables.
func NewSynthesizer(th Thresholds) *Synthesizer {
	return &Synthesizer{th: th}
}

// evalContext carries one evaluation's inputs alongside the result builder.
type evalContext struct {
	bot         BotContext
	instance    *InstanceContext
	jobs        JobsSummary
	improvement *ImprovementContext
	now         time.Time
	th          Thresholds
	b           *stateBuilder
}

// runnerRule is one entry of the first-match-wins runner cascade.
type runnerRule struct {
	name  string
	apply func(*evalContext) (RunnerState, string, bool)
}

// Evaluate derives the canonical state for one bot. instance and improvement
// may be nil; both are valid states with defined fallbacks, not errors.
func (s *Synthesizer) Evaluate(bot BotContext, instance *InstanceContext, jobs JobsSummary, improvement *ImprovementContext, now time.Time) CanonicalBotState {
	ec := &evalContext{
		bot:         bot,
		instance:    instance,
		jobs:        jobs,
		improvement: improvement,
		now:         now,
		th:          s.th,
		b:           newStateBuilder(),
	}

	runnerState, runnerReason := deriveRunner(ec)
	runnerState, runnerReason = applyQueuedJobOverride(ec, runnerState, runnerReason)
	jobState, jobReason := deriveJobs(ec)
	evoState, evoReason := deriveEvolution(ec)

	checkInvariants(ec, runnerState)

	fresh := Classify(bot.HealthScore, ec.b.hasCritical(), ec.b.hasWarning(), s.th.Health)
	health := applySticky(fresh, bot.HealthState, bot.HealthScore, s.th.Health)
	healthReason := healthReasonFor(health, bot, fresh)

	whyNotPromoted := flattenWhyNotPromoted(improvement)

	return ec.b.finish(CanonicalBotState{
		RunnerState:     runnerState,
		RunnerReason:    runnerReason,
		JobState:        jobState,
		JobReason:       jobReason,
		EvolutionState:  evoState,
		EvolutionReason: evoReason,
		HealthState:     health,
		HealthScore:     bot.HealthScore,
		HealthReason:    healthReason,
		WhyNotPromoted:  whyNotPromoted,
		EvaluatedAt:     now,
	})
}

// runnerCascade is evaluated top to bottom; the first matching rule wins.
var runnerCascade = []runnerRule{
	{"pre-runner-stage", rulePreRunnerStage},
	{"no-instance", ruleNoInstance},
	{"circuit-open", ruleCircuitOpen},
	{"paused", rulePaused},
	{"error", ruleError},
	{"starting", ruleStarting},
	{"running", ruleRunning},
	{"stopped", ruleStopped},
}

func deriveRunner(ec *evalContext) (RunnerState, string) {
	for _, r := range runnerCascade {
		if st, reason, ok := r.apply(ec); ok {
			return st, reason
		}
	}
	return RunnerNone, "no runner instance"
}

// rulePreRunnerStage forces the pre-runner stage to the "no runner"
// substate. Any instance record is an artifact; one that is actually running
// additionally raises a warning.
func rulePreRunnerStage(ec *evalContext) (RunnerState, string, bool) {
	if ec.bot.Stage.RequiresRunner() {
		return "", "", false
	}
	if ec.instance != nil && ec.instance.Status == StatusRunning {
		ec.b.addBlocker(Blocker{
			Code:            CodePreStageRunnerActive,
			Severity:        SeverityWarning,
			Message:         fmt.Sprintf("runner %s is active while bot is in %s stage", ec.instance.ID, ec.bot.Stage),
			SuggestedAction: "stop the runner; research-stage bots do not run",
			AutoHealable:    true,
			Evidence:        fmt.Sprintf("instance status=%s", ec.instance.Status),
		})
	}
	return RunnerNone, fmt.Sprintf("stage %s does not run a runner", ec.bot.Stage), true
}

func ruleNoInstance(ec *evalContext) (RunnerState, string, bool) {
	if ec.instance != nil {
		return "", "", false
	}
	return RunnerNone, "no runner instance", true
}

func ruleCircuitOpen(ec *evalContext) (RunnerState, string, bool) {
	if !ec.instance.CircuitOpen {
		return "", "", false
	}
	ec.b.addBlocker(Blocker{
		Code:            CodeCircuitOpen,
		Severity:        SeverityCritical,
		Message:         "runner circuit breaker is open",
		SuggestedAction: "investigate repeated failures before resetting the breaker",
		AutoHealable:    false,
		Evidence:        fmt.Sprintf("restart_count=%d", ec.instance.RestartCount),
	})
	ec.b.blockTrading("circuit breaker open")
	return RunnerCircuitOpen, "circuit breaker open after repeated failures", true
}

// rulePaused distinguishes an operator pause from a system auto-pause by
// scanning the stored health reason for substrings. This is a weak signal:
// the upstream source should provide an explicit pause-origin enum instead.
// TODO: replace the substring heuristic once the runner reports pause origin.
func rulePaused(ec *evalContext) (RunnerState, string, bool) {
	if ec.instance.Status != StatusPaused {
		return "", "", false
	}
	reason := "auto-paused by system"
	lower := strings.ToLower(ec.bot.HealthReason)
	if strings.Contains(lower, "manual") || strings.Contains(lower, "operator") {
		reason = "paused by operator"
	}
	ec.b.blockTrading("runner paused")
	return RunnerPaused, reason, true
}

func ruleError(ec *evalContext) (RunnerState, string, bool) {
	if ec.instance.Status != StatusError {
		return "", "", false
	}
	msg := ec.instance.LastError
	if msg == "" {
		msg = "runner reported an error"
	}
	ec.b.addBlocker(Blocker{
		Code:            CodeRunnerError,
		Severity:        SeverityCritical,
		Message:         msg,
		SuggestedAction: "restart the runner",
		AutoHealable:    true,
		Evidence:        fmt.Sprintf("restart_count=%d", ec.instance.RestartCount),
	})
	ec.b.blockTrading("runner in error state")
	return RunnerError, msg, true
}

func ruleStarting(ec *evalContext) (RunnerState, string, bool) {
	if ec.instance.Status != StatusStarting {
		return "", "", false
	}
	return RunnerStarting, "runner is starting", true
}

// ruleRunning subdivides a running instance into three heartbeat tiers:
// fresh, aging (warning) and stale (critical, auto-healable).
func ruleRunning(ec *evalContext) (RunnerState, string, bool) {
	if ec.instance.Status != StatusRunning {
		return "", "", false
	}
	hb := ec.instance.LastHeartbeatAt
	if hb == nil {
		ec.b.addBlocker(Blocker{
			Code:            CodeRunnerStalled,
			Severity:        SeverityCritical,
			Message:         "runner claims to be running but has never sent a heartbeat",
			SuggestedAction: "restart the runner",
			AutoHealable:    true,
		})
		return RunnerStalled, "running with no heartbeat", true
	}

	age := ec.now.Sub(*hb)
	st := activityState(ec.instance.Activity)
	switch {
	case age >= ec.th.Heartbeat.StaleAfter:
		ec.b.addBlocker(Blocker{
			Code:            CodeRunnerStalled,
			Severity:        SeverityCritical,
			Message:         fmt.Sprintf("heartbeat is %s old (stale threshold %s)", age.Truncate(time.Second), ec.th.Heartbeat.StaleAfter),
			SuggestedAction: "restart the runner",
			AutoHealable:    true,
			Evidence:        fmt.Sprintf("last_heartbeat_at=%s", hb.UTC().Format(time.RFC3339)),
		})
		ec.b.blockTrading("runner stalled")
		return RunnerStalled, fmt.Sprintf("heartbeat stale by %s", age.Truncate(time.Second)), true
	case age >= ec.th.Heartbeat.WarnAfter:
		ec.b.addBlocker(Blocker{
			Code:            CodeHeartbeatLagging,
			Severity:        SeverityWarning,
			Message:         fmt.Sprintf("heartbeat is %s old (warn threshold %s)", age.Truncate(time.Second), ec.th.Heartbeat.WarnAfter),
			SuggestedAction: "watch the runner; restart if the lag persists",
			AutoHealable:    false,
			Evidence:        fmt.Sprintf("last_heartbeat_at=%s", hb.UTC().Format(time.RFC3339)),
		})
		return st, fmt.Sprintf("heartbeat lagging by %s", age.Truncate(time.Second)), true
	default:
		return st, fmt.Sprintf("heartbeat fresh, activity %s", ec.instance.Activity), true
	}
}

func ruleStopped(ec *evalContext) (RunnerState, string, bool) {
	if ec.instance.Status != StatusStopped && ec.instance.Status != StatusStopping {
		return "", "", false
	}
	return RunnerStopped, "runner stopped", true
}

func activityState(a Activity) RunnerState {
	switch a {
	case ActivityScanning:
		return RunnerScanning
	case ActivityTrading:
		return RunnerTrading
	default:
		return RunnerRunning
	}
}

// applyQueuedJobOverride makes queued remediation visible before it
// completes: a queued start/restart job overrides the derived runner state.
func applyQueuedJobOverride(ec *evalContext, st RunnerState, reason string) (RunnerState, string) {
	if ec.bot.Stage.RequiresRunner() {
		if ec.jobs.QueuedRunnerRestart > 0 {
			return RunnerRestarting, "runner restart queued"
		}
		if ec.jobs.QueuedRunnerStart > 0 {
			return RunnerStarting, "runner start queued"
		}
	}
	return st, reason
}

// deriveJobs maps queue counters to a job sub-state with running jobs
// outranking queued ones; counters are closer to ground truth than records.
func deriveJobs(ec *evalContext) (JobState, string) {
	j := ec.jobs
	switch {
	case j.RunningBacktest > 0:
		return JobBacktesting, fmt.Sprintf("%d backtest job(s) running", j.RunningBacktest)
	case j.RunningEvolve > 0:
		return JobEvolving, fmt.Sprintf("%d evolve job(s) running", j.RunningEvolve)
	case j.RunningEvaluate > 0:
		return JobEvaluating, fmt.Sprintf("%d evaluate job(s) running", j.RunningEvaluate)
	case j.TotalQueued > 0:
		return JobQueued, fmt.Sprintf("%d job(s) queued", j.TotalQueued)
	default:
		return JobIdle, "no jobs queued or running"
	}
}

// deriveEvolution follows the same fixed-priority pattern; job-derived
// states outrank improvement-record states.
func deriveEvolution(ec *evalContext) (EvolutionState, string) {
	if ec.jobs.RunningEvolve > 0 {
		return EvolutionEvolving, fmt.Sprintf("%d evolve job(s) running", ec.jobs.RunningEvolve)
	}
	if ec.jobs.QueuedEvolve > 0 {
		return EvolutionQueued, fmt.Sprintf("%d evolve job(s) queued", ec.jobs.QueuedEvolve)
	}
	if strings.EqualFold(ec.bot.EvolutionMode, "off") {
		return EvolutionDisabled, "evolution mode off"
	}
	imp := ec.improvement
	if imp == nil {
		return EvolutionIdle, "no improvement record"
	}
	if imp.PausedScope != "" {
		reason := fmt.Sprintf("evolution paused (scope %s)", imp.PausedScope)
		if imp.PausedBy != "" {
			reason += " by " + imp.PausedBy
		}
		return EvolutionPaused, reason
	}
	if imp.NextRetryAt != nil && imp.NextRetryAt.After(ec.now) {
		return EvolutionWaitingRetry, fmt.Sprintf("next retry at %s", imp.NextRetryAt.UTC().Format(time.RFC3339))
	}
	if strings.EqualFold(imp.CycleStatus, "active") || strings.EqualFold(imp.CycleStatus, "running") {
		return EvolutionActive, "improvement cycle active"
	}
	return EvolutionIdle, "improvement cycle idle"
}

// checkInvariants runs the cross-field checks after all sub-states are
// derived. Malformed data (unknown stage) is surfaced as a blocker rather
// than aborting: the synthesizer always returns a usable state.
func checkInvariants(ec *evalContext, runnerState RunnerState) {
	bot := ec.bot

	if bot.KillSwitch {
		msg := "kill switch engaged"
		if bot.KillSwitchReason != "" {
			msg = "kill switch engaged: " + bot.KillSwitchReason
		}
		ec.b.addBlocker(Blocker{
			Code:            CodeKillSwitchEngaged,
			Severity:        SeverityCritical,
			Message:         msg,
			SuggestedAction: "operator must clear the kill switch",
			AutoHealable:    false,
		})
		ec.b.blockTrading(msg)
	}

	if !bot.TradingEnabled {
		ec.b.blockTrading("trading disabled on bot record")
	}

	noRunner := ec.instance == nil || runnerState == RunnerNone || runnerState == RunnerStopped
	if bot.Stage.RequiresRunner() && bot.TradingEnabled && noRunner {
		ec.b.addBlocker(Blocker{
			Code:            CodeNoPrimaryRunner,
			Severity:        SeverityCritical,
			Message:         fmt.Sprintf("stage %s requires an active runner but none exists", bot.Stage),
			SuggestedAction: "start a runner",
			AutoHealable:    true,
		})
		ec.b.blockTrading("no primary runner")
	}

	allowed, known := ec.th.AllowedModes[bot.Stage]
	switch {
	case !known:
		ec.b.addBlocker(Blocker{
			Code:            CodeUnknownStage,
			Severity:        SeverityCritical,
			Message:         fmt.Sprintf("stage %q is not in the allowed-modes table", bot.Stage),
			SuggestedAction: "fix the bot record or extend the stage table",
			AutoHealable:    false,
		})
		ec.b.blockTrading(fmt.Sprintf("unknown stage %q", bot.Stage))
	case !modeAllowed(bot.Mode, allowed):
		suggested := ""
		if len(allowed) > 0 {
			suggested = string(allowed[0])
		}
		ec.b.addBlocker(Blocker{
			Code:            CodeModeStageMismatch,
			Severity:        SeverityCritical,
			Message:         fmt.Sprintf("mode %q is not allowed in stage %s", bot.Mode, bot.Stage),
			SuggestedAction: fmt.Sprintf("set mode to %q", suggested),
			AutoHealable:    true,
			Evidence:        fmt.Sprintf("allowed=%v", allowed),
		})
		ec.b.blockTrading(fmt.Sprintf("mode %q invalid for stage %s", bot.Mode, bot.Stage))
	}
}

func modeAllowed(m Mode, allowed []Mode) bool {
	for _, a := range allowed {
		if a == m {
			return true
		}
	}
	return false
}

func healthReasonFor(health HealthState, bot BotContext, fresh HealthState) string {
	if health == HealthDegraded && fresh != HealthDegraded && bot.HealthState == HealthDegraded {
		return "degraded state retained while score remains below threshold"
	}
	if bot.HealthReason != "" {
		return bot.HealthReason
	}
	return fmt.Sprintf("score %.1f classified %s", bot.HealthScore, health)
}

func flattenWhyNotPromoted(imp *ImprovementContext) []string {
	if imp == nil || len(imp.WhyNotPromoted) == 0 {
		return nil
	}
	keys := make([]string, 0, len(imp.WhyNotPromoted))
	for k := range imp.WhyNotPromoted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %s", k, imp.WhyNotPromoted[k]))
	}
	return out
}
