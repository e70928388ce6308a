// Package graduation evaluates a flat metrics snapshot against five
// symmetric pass/fail gates for stage-readiness dashboards. Its simple
// passed/total percentage is a different instrument from the promotion
// package's weighted progress score and the two must not be conflated.
package graduation

import (
	"fmt"
	"math"

	"github.com/quantfleet/bot-orchestrator/internal/rollup"
)

// Bucket is a letter grade summarizing gate performance.
type Bucket string

const (
	BucketAPlus   Bucket = "A+"
	BucketA       Bucket = "A"
	BucketB       Bucket = "B"
	BucketC       Bucket = "C"
	BucketD       Bucket = "D"
	BucketUnrated Bucket = "UNRATED"
)

// Direction states which side of the threshold passes.
type Direction string

const (
	DirectionMin Direction = "min"
	DirectionMax Direction = "max"
)

// Thresholds are the stage-specific gate requirements.
type Thresholds struct {
	MinTrades       int     `yaml:"min_trades"`
	MinWinRate      float64 `yaml:"min_win_rate"`
	MinProfitFactor float64 `yaml:"min_profit_factor"`
	MaxDrawdownPct  float64 `yaml:"max_drawdown_pct"`
	MinExpectancy   float64 `yaml:"min_expectancy"`
}

// Gate is one pass/fail criterion with its evidence.
type Gate struct {
	Name      string    `json:"name"`
	Required  float64   `json:"required"`
	Current   float64   `json:"current"`
	Passed    bool      `json:"passed"`
	Unit      string    `json:"unit"`
	Direction Direction `json:"direction"`
}

// Status is the aggregate graduation readout.
type Status struct {
	GatesPassed     int      `json:"gates_passed"`
	GatesTotal      int      `json:"gates_total"`
	Eligible        bool     `json:"is_eligible"`
	ProgressPercent int      `json:"progress_percent"`
	Gates           []Gate   `json:"gates"`
	Blockers        []string `json:"blockers"`
	Bucket          Bucket   `json:"bucket"`
}

// A+ requires every gate plus these extras.
const (
	aPlusWinRate      = 55.0
	aPlusProfitFactor = 1.5
	aPlusSharpe       = 1.0
)

// Evaluate runs the five gates against the snapshot. The drawdown gate never
// passes by default for a bot with zero trades or an undefined drawdown: an
// empty track record is not evidence of controlled risk.
func Evaluate(m rollup.MetricsRollup, th Thresholds) Status {
	pf := 0.0
	if m.ProfitFactor != nil {
		pf = *m.ProfitFactor
	}
	ddPassed := m.Trades > 0 && m.MaxDrawdownPct <= th.MaxDrawdownPct

	gates := []Gate{
		{Name: "sample_size", Required: float64(th.MinTrades), Current: float64(m.Trades), Passed: m.Trades >= th.MinTrades, Unit: "trades", Direction: DirectionMin},
		{Name: "win_rate", Required: th.MinWinRate, Current: m.WinRate, Passed: m.WinRate >= th.MinWinRate, Unit: "%", Direction: DirectionMin},
		{Name: "profit_factor", Required: th.MinProfitFactor, Current: pf, Passed: m.ProfitFactor != nil && pf >= th.MinProfitFactor, Unit: "ratio", Direction: DirectionMin},
		{Name: "max_drawdown", Required: th.MaxDrawdownPct, Current: m.MaxDrawdownPct, Passed: ddPassed, Unit: "%", Direction: DirectionMax},
		{Name: "expectancy", Required: th.MinExpectancy, Current: m.Expectancy, Passed: m.Expectancy >= th.MinExpectancy, Unit: "usd", Direction: DirectionMin},
	}

	st := Status{GatesTotal: len(gates), Gates: gates}
	for _, g := range gates {
		if g.Passed {
			st.GatesPassed++
			continue
		}
		switch g.Direction {
		case DirectionMax:
			st.Blockers = append(st.Blockers, fmt.Sprintf("%s %.2f%s exceeds %.2f%s", g.Name, g.Current, g.Unit, g.Required, g.Unit))
		default:
			st.Blockers = append(st.Blockers, fmt.Sprintf("%s %.2f%s below %.2f%s", g.Name, g.Current, g.Unit, g.Required, g.Unit))
		}
	}
	st.Eligible = st.GatesPassed == st.GatesTotal
	st.ProgressPercent = int(math.Round(100 * float64(st.GatesPassed) / float64(st.GatesTotal)))
	st.Bucket = bucketFor(m, st.GatesPassed, st.GatesTotal)
	return st
}

func bucketFor(m rollup.MetricsRollup, passed, total int) Bucket {
	if m.Trades == 0 {
		return BucketUnrated
	}
	if passed == total {
		pf := 0.0
		if m.ProfitFactor != nil {
			pf = *m.ProfitFactor
		}
		sharpe := 0.0
		if m.Sharpe != nil {
			sharpe = *m.Sharpe
		}
		if m.WinRate >= aPlusWinRate && pf >= aPlusProfitFactor && sharpe >= aPlusSharpe {
			return BucketAPlus
		}
		return BucketA
	}
	switch {
	case passed >= 4:
		return BucketB
	case passed >= 3:
		return BucketC
	case passed >= 1:
		return BucketD
	default:
		return BucketUnrated
	}
}
