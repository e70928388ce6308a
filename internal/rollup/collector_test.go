package rollup

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector(0, 1000)
	r := c.Snapshot(base)
	if r.Trades != 0 || r.LastTradeAt != nil || r.ProfitFactor != nil || r.Sharpe != nil {
		t.Fatalf("empty collector must produce a zero rollup, got %+v", r)
	}
	if r.WindowDays != 30 {
		t.Fatalf("expected default 30-day window, got %d", r.WindowDays)
	}
}

func TestSnapshotBasicAggregates(t *testing.T) {
	c := NewCollector(0, 1000)
	c.RecordTrade(base, 10)
	c.RecordTrade(base.Add(1*time.Hour), -5)
	c.RecordTrade(base.Add(24*time.Hour), 15)
	c.RecordTrade(base.Add(25*time.Hour), -4)

	r := c.Snapshot(base.Add(26 * time.Hour))
	if r.Trades != 4 {
		t.Fatalf("expected 4 trades, got %d", r.Trades)
	}
	if r.WinRate != 50 {
		t.Fatalf("expected 50%% win rate, got %f", r.WinRate)
	}
	if r.Expectancy != 4 {
		t.Fatalf("expected expectancy 4, got %f", r.Expectancy)
	}
	if r.ActiveDays != 2 {
		t.Fatalf("expected 2 active days, got %d", r.ActiveDays)
	}
	if r.ProfitFactor == nil {
		t.Fatal("expected a profit factor with both wins and losses")
	}
	if got := *r.ProfitFactor; got < 2.77 || got > 2.78 {
		t.Fatalf("expected profit factor 25/9, got %f", got)
	}
	if r.LastTradeAt == nil || !r.LastTradeAt.Equal(base.Add(25*time.Hour)) {
		t.Fatalf("unexpected last trade time: %v", r.LastTradeAt)
	}
}

func TestProfitFactorNilWithoutLosses(t *testing.T) {
	c := NewCollector(0, 1000)
	c.RecordTrade(base, 10)
	c.RecordTrade(base.Add(time.Hour), 20)
	r := c.Snapshot(base.Add(2 * time.Hour))
	if r.ProfitFactor != nil {
		t.Fatalf("profit factor undefined without losses, got %f", *r.ProfitFactor)
	}
}

func TestSharpeNilWithSingleDay(t *testing.T) {
	c := NewCollector(0, 1000)
	c.RecordTrade(base, 10)
	c.RecordTrade(base.Add(time.Hour), 12)
	if r := c.Snapshot(base.Add(2 * time.Hour)); r.Sharpe != nil {
		t.Fatalf("sharpe undefined with one active day, got %f", *r.Sharpe)
	}
}

func TestSharpeDefinedAcrossDays(t *testing.T) {
	c := NewCollector(0, 1000)
	c.RecordTrade(base, 10)
	c.RecordTrade(base.Add(24*time.Hour), 20)
	c.RecordTrade(base.Add(48*time.Hour), 5)
	r := c.Snapshot(base.Add(49 * time.Hour))
	if r.Sharpe == nil {
		t.Fatal("expected a sharpe with three active days")
	}
	if *r.Sharpe <= 0 {
		t.Fatalf("positive daily pnl should give positive sharpe, got %f", *r.Sharpe)
	}
}

func TestMaxDrawdownPct(t *testing.T) {
	c := NewCollector(0, 1000)
	c.RecordTrade(base, 100)                // peak 100
	c.RecordTrade(base.Add(time.Hour), -60) // trough 40: drawdown 60
	c.RecordTrade(base.Add(2*time.Hour), 80)
	r := c.Snapshot(base.Add(3 * time.Hour))
	if r.MaxDrawdownPct != 6 {
		t.Fatalf("expected 6%% of 1000 capital, got %f", r.MaxDrawdownPct)
	}
}

func TestWindowPruning(t *testing.T) {
	c := NewCollector(0, 1000)
	c.RecordTrade(base, -50)
	c.RecordTrade(base.Add(40*24*time.Hour), 10)
	r := c.Snapshot(base.Add(40*24*time.Hour + time.Minute))
	if r.Trades != 1 {
		t.Fatalf("trade outside the window must be pruned, got %d", r.Trades)
	}
	if r.WinRate != 100 {
		t.Fatalf("expected 100%% after pruning the loss, got %f", r.WinRate)
	}
}
