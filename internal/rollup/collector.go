// Package rollup aggregates closed-trade samples over a sliding window into
// immutable MetricsRollup snapshots for the promotion and graduation
// engines. The engines themselves never read the collector; they accept a
// snapshot taken at the top of an evaluation tick.
package rollup

import (
	"math"
	"sort"
	"sync"
	"time"
)

const defaultWindow = 30 * 24 * time.Hour

// MetricsRollup is a windowed performance aggregate. ProfitFactor and Sharpe
// are nil when undefined (no losing trades, not enough daily samples); the
// promotion engine treats nil as failing, never as unknown-so-pass.
type MetricsRollup struct {
	Trades         int        `json:"trades"`
	WinRate        float64    `json:"win_rate"`
	ProfitFactor   *float64   `json:"profit_factor"`
	Sharpe         *float64   `json:"sharpe"`
	Expectancy     float64    `json:"expectancy"`
	MaxDrawdownPct float64    `json:"max_drawdown_pct"`
	ActiveDays     int        `json:"active_days"`
	LastTradeAt    *time.Time `json:"last_trade_at"`
	WindowDays     int        `json:"window_days"`
}

type tradeSample struct {
	at  time.Time
	pnl float64
}

// Collector accumulates trade samples and produces rollups. Safe for
// concurrent use.
type Collector struct {
	mu      sync.Mutex
	window  time.Duration
	capital float64
	samples []tradeSample
}

// NewCollector creates a Collector. capital is the base used to express
// drawdown as a percentage; window defaults to 30 days when zero.
func NewCollector(window time.Duration, capital float64) *Collector {
	if window <= 0 {
		window = defaultWindow
	}
	if capital <= 0 {
		capital = 1000
	}
	return &Collector{window: window, capital: capital}
}

// RecordTrade adds one closed trade's realized PnL.
func (c *Collector) RecordTrade(at time.Time, pnl float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, tradeSample{at: at, pnl: pnl})
	c.pruneLocked(at)
}

func (c *Collector) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.window)
	for len(c.samples) > 0 && c.samples[0].at.Before(cutoff) {
		c.samples = c.samples[1:]
	}
}

// Snapshot computes the rollup over the current window.
func (c *Collector) Snapshot(now time.Time) MetricsRollup {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)

	r := MetricsRollup{WindowDays: int(c.window / (24 * time.Hour))}
	if len(c.samples) == 0 {
		return r
	}

	var (
		wins      int
		grossWin  float64
		grossLoss float64
		sum       float64
		days      = make(map[time.Time]float64)
	)
	equity := 0.0
	peak := 0.0
	maxDrop := 0.0
	for _, s := range c.samples {
		sum += s.pnl
		if s.pnl > 0 {
			wins++
			grossWin += s.pnl
		} else if s.pnl < 0 {
			grossLoss += -s.pnl
		}
		days[startOfUTCDay(s.at)] += s.pnl

		equity += s.pnl
		if equity > peak {
			peak = equity
		}
		if drop := peak - equity; drop > maxDrop {
			maxDrop = drop
		}
	}

	n := len(c.samples)
	last := c.samples[n-1].at
	r.Trades = n
	r.WinRate = round6(100 * float64(wins) / float64(n))
	r.Expectancy = round6(sum / float64(n))
	r.MaxDrawdownPct = round6(100 * maxDrop / c.capital)
	r.ActiveDays = len(days)
	r.LastTradeAt = &last

	if grossLoss > 0 {
		pf := round6(grossWin / grossLoss)
		r.ProfitFactor = &pf
	}
	if sharpe, ok := annualizedSharpe(days); ok {
		r.Sharpe = &sharpe
	}
	return r
}

// annualizedSharpe computes mean/std of daily PnL scaled by sqrt(365).
// Undefined with fewer than two active days or zero variance.
func annualizedSharpe(days map[time.Time]float64) (float64, bool) {
	if len(days) < 2 {
		return 0, false
	}
	vals := make([]float64, 0, len(days))
	for _, v := range days {
		vals = append(vals, v)
	}
	sort.Float64s(vals)

	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	variance := 0.0
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals) - 1)
	if variance <= 0 {
		return 0, false
	}
	return round6(mean / math.Sqrt(variance) * math.Sqrt(365)), true
}

func startOfUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
