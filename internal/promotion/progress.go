package promotion

import (
	"fmt"
	"math"

	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// Gate weights. The eight metric gates sum to 1.0; health participates as a
// multiplier, not a weighted term.
const (
	weightTrades     = 0.20
	weightActiveDays = 0.10
	weightSharpe     = 0.15
	weightPF         = 0.15
	weightDrawdown   = 0.15
	weightExpectancy = 0.10
	weightRecent     = 0.10
	weightBacktest   = 0.05

	warnMultiplier = 0.7
)

// GateResult is one scored criterion. Score is a clamped ratio in [0,1]; a
// passing gate always scores exactly 1 so a fully-passing bot reaches 100%.
type GateResult struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Required float64 `json:"required"`
	Current  float64 `json:"current"`
	Passed   bool    `json:"passed"`
}

// Progress is the continuous closeness-to-promotion score. It is softer
// than, and independent of, the binary Evaluate decision.
type Progress struct {
	FromStage   state.Stage  `json:"from_stage"`
	TargetStage *state.Stage `json:"target_stage"`
	Percent     int          `json:"percent"`
	Blocked     bool         `json:"blocked"`
	BlockReason string       `json:"block_reason,omitempty"`
	Gates       []GateResult `json:"gates"`
}

// ScoreProgress computes the weighted 0-100 promotion progress for one bot.
// A bot with zero trades always scores 0: partial credit from default metric
// values would otherwise advertise progress that does not exist.
func ScoreProgress(in Input, rules Rules) Progress {
	next, ok := state.NextStage(in.Stage)
	if !ok {
		return Progress{FromStage: in.Stage}
	}
	p := Progress{FromStage: in.Stage, TargetStage: &next}

	if in.Health == state.HealthDegraded || in.Health == state.HealthFrozen {
		p.Blocked = true
		p.BlockReason = fmt.Sprintf("health is %s", in.Health)
		p.Gates = zeroGates()
		return p
	}
	if in.Metrics == nil {
		p.Blocked = true
		p.BlockReason = "no metrics rollup available"
		p.Gates = zeroGates()
		return p
	}

	m := *in.Metrics
	gates := []GateResult{
		minGate("trades", float64(m.Trades), float64(rules.MinTrades)),
		minGate("active_days", float64(m.ActiveDays), float64(rules.MinActiveDays)),
		minGate("sharpe", deref(m.Sharpe), rules.MinSharpe),
		minGate("profit_factor", deref(m.ProfitFactor), rules.MinProfitFactor),
		maxGate("max_drawdown", m.MaxDrawdownPct, rules.MaxDrawdownPct),
		minGate("expectancy", m.Expectancy, rules.MinExpectancy),
		boolGate("recent_activity", recentTrade(m.LastTradeAt, rules.RecentActivityDays, in.Now) || rules.RecentActivityDays <= 0),
		boolGate("backtest_coverage", !rules.BacktestRequired || len(backtestFailures(in, rules)) == 0),
	}

	weighted := weightTrades*gates[0].Score +
		weightActiveDays*gates[1].Score +
		weightSharpe*gates[2].Score +
		weightPF*gates[3].Score +
		weightDrawdown*gates[4].Score +
		weightExpectancy*gates[5].Score +
		weightRecent*gates[6].Score +
		weightBacktest*gates[7].Score

	healthGate := GateResult{Name: "health", Required: 1}
	mult := warnMultiplier
	switch in.Health {
	case state.HealthOK:
		healthGate.Score, healthGate.Current, healthGate.Passed = 1, 1, true
		mult = 1.0
	case state.HealthWarn:
		healthGate.Score, healthGate.Current = warnMultiplier, warnMultiplier
	}
	gates = append(gates, healthGate)
	p.Gates = gates

	if m.Trades == 0 {
		p.Blocked = true
		p.BlockReason = "no trades in window"
		return p
	}

	p.Percent = int(math.Round(100 * mult * weighted))
	return p
}

// MissingGates returns one line per failing gate, or the block reason alone
// when progress is globally blocked.
func (p Progress) MissingGates() []string {
	if p.Blocked {
		return []string{p.BlockReason}
	}
	var missing []string
	for _, g := range p.Gates {
		if !g.Passed {
			missing = append(missing, fmt.Sprintf("%s: %.2f of %.2f", g.Name, g.Current, g.Required))
		}
	}
	return missing
}

// minGate scores current against a floor. A disabled gate (required <= 0)
// passes with a full score rather than dividing by zero.
func minGate(name string, current, required float64) GateResult {
	g := GateResult{Name: name, Required: required, Current: current}
	if required <= 0 || current >= required {
		g.Score, g.Passed = 1, true
		return g
	}
	g.Score = clamp01(current / required)
	return g
}

// maxGate scores current against a ceiling, inverted since lower is better.
func maxGate(name string, current, max float64) GateResult {
	g := GateResult{Name: name, Required: max, Current: current}
	switch {
	case max <= 0:
		g.Passed = current <= 0
		if g.Passed {
			g.Score = 1
		}
	case current <= max:
		g.Score, g.Passed = 1, true
	default:
		g.Score = clamp01(1 - current/max)
	}
	return g
}

func boolGate(name string, pass bool) GateResult {
	g := GateResult{Name: name, Required: 1}
	if pass {
		g.Score, g.Current, g.Passed = 1, 1, true
	}
	return g
}

func zeroGates() []GateResult {
	names := []string{"trades", "active_days", "sharpe", "profit_factor", "max_drawdown", "expectancy", "recent_activity", "backtest_coverage", "health"}
	gates := make([]GateResult, len(names))
	for i, n := range names {
		gates[i] = GateResult{Name: n}
	}
	return gates
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
