// Package promotion decides stage advancement from windowed performance
// rollups. Every decision carries a non-empty reason list so the audit log
// can replay exactly why a bot moved, froze or stayed put.
package promotion

import (
	"fmt"
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/rollup"
	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// Evaluate produces one promotion decision. Gating order: transition and
// health checks return early; the metric gates then all run without
// short-circuiting so the audit trail names every failing criterion, not
// just the first.
func Evaluate(in Input, rules Rules) Result {
	keep := func(reasons ...string) Result {
		return Result{
			Decision:  DecisionKeep,
			FromStage: in.Stage,
			ToStage:   in.Stage,
			Reasons:   reasons,
			Metrics:   in.Metrics,
		}
	}

	next, ok := state.NextStage(in.Stage)
	if !ok {
		return keep(fmt.Sprintf("Stage %s has no promotion transition", in.Stage))
	}
	if !rules.Enabled {
		return keep("Promotion rules disabled")
	}
	if in.Health == state.HealthDegraded || in.Health == state.HealthFrozen {
		return Result{
			Decision:  DecisionFreeze,
			FromStage: in.Stage,
			ToStage:   in.Stage,
			Reasons:   []string{fmt.Sprintf("Health is %s; promotion frozen until health recovers", in.Health)},
			Metrics:   in.Metrics,
		}
	}

	var failing []string
	if in.Health == state.HealthWarn && rules.HealthRequirement == HealthOKOnly {
		failing = append(failing, "Health WARN but rules require OK")
	}

	if in.Metrics == nil {
		return keep("No metrics rollup available for the evaluation window")
	}
	m := *in.Metrics

	if rules.MinTrades > 0 && m.Trades < rules.MinTrades {
		failing = append(failing, fmt.Sprintf("Trades %d < required %d", m.Trades, rules.MinTrades))
	}
	if rules.MinActiveDays > 0 && m.ActiveDays < rules.MinActiveDays {
		failing = append(failing, fmt.Sprintf("Active days %d < required %d", m.ActiveDays, rules.MinActiveDays))
	}
	if rules.MinProfitFactor > 0 {
		switch {
		case m.ProfitFactor == nil:
			failing = append(failing, fmt.Sprintf("Profit factor unavailable (required >= %.2f)", rules.MinProfitFactor))
		case *m.ProfitFactor < rules.MinProfitFactor:
			failing = append(failing, fmt.Sprintf("Profit factor %.2f < required %.2f", *m.ProfitFactor, rules.MinProfitFactor))
		}
	}
	if rules.MinSharpe > 0 {
		switch {
		case m.Sharpe == nil:
			failing = append(failing, fmt.Sprintf("Sharpe unavailable (required >= %.2f)", rules.MinSharpe))
		case *m.Sharpe < rules.MinSharpe:
			failing = append(failing, fmt.Sprintf("Sharpe %.2f < required %.2f", *m.Sharpe, rules.MinSharpe))
		}
	}
	if rules.MaxDrawdownPct > 0 && m.MaxDrawdownPct > rules.MaxDrawdownPct {
		failing = append(failing, fmt.Sprintf("Max drawdown %.2f%% > allowed %.2f%%", m.MaxDrawdownPct, rules.MaxDrawdownPct))
	}
	if rules.MinExpectancy > 0 && m.Expectancy < rules.MinExpectancy {
		failing = append(failing, fmt.Sprintf("Expectancy %.2f < required %.2f", m.Expectancy, rules.MinExpectancy))
	}
	if rules.RecentActivityDays > 0 && !recentTrade(m.LastTradeAt, rules.RecentActivityDays, in.Now) {
		failing = append(failing, fmt.Sprintf("No trades within the last %d day(s)", rules.RecentActivityDays))
	}
	if rules.BacktestRequired {
		failing = append(failing, backtestFailures(in, rules)...)
	}

	if len(failing) > 0 {
		return keep(failing...)
	}

	return Result{
		Decision:  DecisionPromote,
		FromStage: in.Stage,
		ToStage:   next,
		Reasons:   confirmations(m, rules),
		Metrics:   in.Metrics,
	}
}

func recentTrade(last *time.Time, days int, now time.Time) bool {
	if last == nil {
		return false
	}
	return now.Sub(*last) <= time.Duration(days)*24*time.Hour
}

func backtestFailures(in Input, rules Rules) []string {
	if in.LastBacktestAt == nil {
		return []string{"No backtest coverage on record"}
	}
	var failing []string
	if !in.BacktestCompleted {
		failing = append(failing, "Latest backtest has not completed")
	}
	if rules.BacktestMaxAgeDays > 0 {
		age := in.Now.Sub(*in.LastBacktestAt)
		maxAge := time.Duration(rules.BacktestMaxAgeDays) * 24 * time.Hour
		if age > maxAge {
			failing = append(failing, fmt.Sprintf("Backtest is %d day(s) old (max %d)", int(age.Hours()/24), rules.BacktestMaxAgeDays))
		}
	}
	return failing
}

// confirmations records the positive evidence behind a PROMOTE so the
// decision stays explainable even when nothing failed.
func confirmations(m rollup.MetricsRollup, rules Rules) []string {
	reasons := []string{
		fmt.Sprintf("Trades %d >= %d", m.Trades, rules.MinTrades),
	}
	if m.Sharpe != nil {
		reasons = append(reasons, fmt.Sprintf("Sharpe %.2f >= %.2f", *m.Sharpe, rules.MinSharpe))
	}
	if m.ProfitFactor != nil {
		reasons = append(reasons, fmt.Sprintf("Profit factor %.2f >= %.2f", *m.ProfitFactor, rules.MinProfitFactor))
	}
	reasons = append(reasons, fmt.Sprintf("Max drawdown %.2f%% within %.2f%%", m.MaxDrawdownPct, rules.MaxDrawdownPct))
	return reasons
}
