package promotion

import (
	"strings"
	"testing"
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/rollup"
	"github.com/quantfleet/bot-orchestrator/internal/state"
)

var engineNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func testRules() Rules {
	return Rules{
		Enabled:            true,
		MinTrades:          50,
		MinActiveDays:      10,
		WindowDays:         30,
		MinProfitFactor:    1.5,
		MinSharpe:          1.0,
		MaxDrawdownPct:     20,
		MinExpectancy:      0,
		HealthRequirement:  HealthWarnOK,
		RecentActivityDays: 3,
		BacktestRequired:   true,
		BacktestMaxAgeDays: 14,
	}
}

func passingMetrics() *rollup.MetricsRollup {
	last := engineNow.Add(-24 * time.Hour)
	return &rollup.MetricsRollup{
		Trades:         60,
		WinRate:        56,
		ProfitFactor:   f(1.8),
		Sharpe:         f(1.4),
		Expectancy:     12,
		MaxDrawdownPct: 8,
		ActiveDays:     15,
		LastTradeAt:    &last,
		WindowDays:     30,
	}
}

func passingInput() Input {
	bt := engineNow.Add(-48 * time.Hour)
	return Input{
		BotID:             "bot-1",
		Stage:             state.StagePaper,
		Health:            state.HealthOK,
		Metrics:           passingMetrics(),
		LastBacktestAt:    &bt,
		BacktestCompleted: true,
		Now:               engineNow,
	}
}

func hasReason(reasons []string, substr string) bool {
	for _, r := range reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestPromoteWhenAllGatesPass(t *testing.T) {
	res := Evaluate(passingInput(), testRules())
	if res.Decision != DecisionPromote {
		t.Fatalf("expected PROMOTE, got %s (%v)", res.Decision, res.Reasons)
	}
	if res.FromStage != state.StagePaper || res.ToStage != state.StageShadow {
		t.Fatalf("expected paper->shadow, got %s->%s", res.FromStage, res.ToStage)
	}
	if len(res.Reasons) == 0 {
		t.Fatal("promote must carry positive confirmations")
	}
	if res.Metrics == nil {
		t.Fatal("metrics snapshot must be set")
	}
}

func TestKeepOnTooFewTrades(t *testing.T) {
	in := passingInput()
	in.Metrics.Trades = 10
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep {
		t.Fatalf("expected KEEP, got %s", res.Decision)
	}
	if !hasReason(res.Reasons, "Trades 10 < required 50") {
		t.Fatalf("expected trade-count reason, got %v", res.Reasons)
	}
	if res.ToStage != res.FromStage {
		t.Fatal("KEEP must not advance the stage")
	}
}

func TestFreezeOnDegradedHealth(t *testing.T) {
	in := passingInput()
	in.Health = state.HealthDegraded
	in.Metrics.Trades = 0 // metrics must not matter
	res := Evaluate(in, testRules())
	if res.Decision != DecisionFreeze {
		t.Fatalf("expected FREEZE, got %s", res.Decision)
	}
	if len(res.Reasons) == 0 {
		t.Fatal("freeze must carry a reason")
	}
}

func TestFreezeOnFrozenHealth(t *testing.T) {
	in := passingInput()
	in.Health = state.HealthFrozen
	if res := Evaluate(in, testRules()); res.Decision != DecisionFreeze {
		t.Fatalf("expected FREEZE, got %s", res.Decision)
	}
}

func TestKeepOnFinalStage(t *testing.T) {
	in := passingInput()
	in.Stage = state.StageLive
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep || len(res.Reasons) != 1 {
		t.Fatalf("expected KEEP with single reason, got %s %v", res.Decision, res.Reasons)
	}
}

func TestKeepWhenRulesDisabled(t *testing.T) {
	rules := testRules()
	rules.Enabled = false
	res := Evaluate(passingInput(), rules)
	if res.Decision != DecisionKeep || !hasReason(res.Reasons, "disabled") {
		t.Fatalf("expected KEEP on disabled rules, got %s %v", res.Decision, res.Reasons)
	}
}

func TestKeepOnMissingMetrics(t *testing.T) {
	in := passingInput()
	in.Metrics = nil
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep {
		t.Fatalf("expected KEEP, got %s", res.Decision)
	}
	if res.Metrics != nil {
		t.Fatal("snapshot must be nil when no rollup exists")
	}
	if len(res.Reasons) != 1 {
		t.Fatalf("expected single reason, got %v", res.Reasons)
	}
}

func TestNilProfitFactorFails(t *testing.T) {
	in := passingInput()
	in.Metrics.ProfitFactor = nil
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep || !hasReason(res.Reasons, "Profit factor unavailable") {
		t.Fatalf("nil profit factor must fail, got %s %v", res.Decision, res.Reasons)
	}
}

func TestNilSharpeFails(t *testing.T) {
	in := passingInput()
	in.Metrics.Sharpe = nil
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep || !hasReason(res.Reasons, "Sharpe unavailable") {
		t.Fatalf("nil sharpe must fail, got %s %v", res.Decision, res.Reasons)
	}
}

func TestAllFailuresReported(t *testing.T) {
	in := passingInput()
	in.Metrics.Trades = 5
	in.Metrics.ActiveDays = 2
	in.Metrics.ProfitFactor = f(0.9)
	in.Metrics.Sharpe = f(0.1)
	in.Metrics.MaxDrawdownPct = 35
	in.LastBacktestAt = nil
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep {
		t.Fatalf("expected KEEP, got %s", res.Decision)
	}
	if len(res.Reasons) < 6 {
		t.Fatalf("metric gates must not short-circuit, got only %v", res.Reasons)
	}
}

func TestWarnHealthUnderOKOnlyFails(t *testing.T) {
	rules := testRules()
	rules.HealthRequirement = HealthOKOnly
	in := passingInput()
	in.Health = state.HealthWarn
	res := Evaluate(in, rules)
	if res.Decision != DecisionKeep || !hasReason(res.Reasons, "Health WARN") {
		t.Fatalf("WARN under OK_ONLY must fail, got %s %v", res.Decision, res.Reasons)
	}
}

func TestWarnHealthUnderWarnOKPasses(t *testing.T) {
	in := passingInput()
	in.Health = state.HealthWarn
	if res := Evaluate(in, testRules()); res.Decision != DecisionPromote {
		t.Fatalf("WARN under WARN_OK should still promote, got %s %v", res.Decision, res.Reasons)
	}
}

func TestStaleBacktestFails(t *testing.T) {
	in := passingInput()
	bt := engineNow.Add(-30 * 24 * time.Hour)
	in.LastBacktestAt = &bt
	res := Evaluate(in, testRules())
	if res.Decision != DecisionKeep || !hasReason(res.Reasons, "Backtest is 30 day(s) old") {
		t.Fatalf("stale backtest must fail, got %s %v", res.Decision, res.Reasons)
	}
}

func TestIncompleteBacktestFails(t *testing.T) {
	in := passingInput()
	in.BacktestCompleted = false
	res := Evaluate(in, testRules())
	if !hasReason(res.Reasons, "not completed") {
		t.Fatalf("incomplete backtest must fail, got %v", res.Reasons)
	}
}

func TestNoRecentActivityFails(t *testing.T) {
	in := passingInput()
	old := engineNow.Add(-10 * 24 * time.Hour)
	in.Metrics.LastTradeAt = &old
	res := Evaluate(in, testRules())
	if !hasReason(res.Reasons, "No trades within the last 3 day(s)") {
		t.Fatalf("stale activity must fail, got %v", res.Reasons)
	}
}

func TestZeroThresholdDisablesGate(t *testing.T) {
	rules := testRules()
	rules.MinSharpe = 0
	in := passingInput()
	in.Metrics.Sharpe = nil
	if res := Evaluate(in, rules); res.Decision != DecisionPromote {
		t.Fatalf("zero threshold must disable the gate, got %s %v", res.Decision, res.Reasons)
	}
}

func TestReasonsNeverEmpty(t *testing.T) {
	inputs := []Input{
		passingInput(),
		{Stage: state.StageLive, Health: state.HealthOK, Now: engineNow},
		{Stage: state.StagePaper, Health: state.HealthDegraded, Now: engineNow},
		{Stage: state.StagePaper, Health: state.HealthOK, Now: engineNow},
	}
	for i, in := range inputs {
		if res := Evaluate(in, testRules()); len(res.Reasons) == 0 {
			t.Fatalf("input %d produced empty reasons", i)
		}
	}
}
