// Package fleet wires the decision engines together for one evaluation
// tick. It owns no domain logic of its own: each bot's snapshot flows
// through synthesize → plan → promote → progress → graduate, and the typed
// reports are handed to the executor and audit collaborators.
package fleet

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quantfleet/bot-orchestrator/internal/config"
	"github.com/quantfleet/bot-orchestrator/internal/graduation"
	"github.com/quantfleet/bot-orchestrator/internal/heal"
	"github.com/quantfleet/bot-orchestrator/internal/promotion"
	"github.com/quantfleet/bot-orchestrator/internal/rollup"
	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// Report is the full decision set for one bot in one tick.
type Report struct {
	EvaluationID string                  `json:"evaluation_id"`
	BotID        string                  `json:"bot_id"`
	BotName      string                  `json:"bot_name"`
	State        state.CanonicalBotState `json:"state"`
	Actions      []heal.Action           `json:"actions"`
	Promotion    promotion.Result        `json:"promotion"`
	Progress     promotion.Progress      `json:"progress"`
	Graduation   *graduation.Status      `json:"graduation,omitempty"`
}

// Orchestrator runs evaluation ticks over fleet snapshots.
type Orchestrator struct {
	cfg     config.Config
	synth   *state.Synthesizer
	planner *heal.Planner
}

// New builds an Orchestrator from validated configuration.
func New(cfg config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		synth:   state.NewSynthesizer(cfg.StateThresholds()),
		planner: heal.NewPlanner(cfg.Stages.ModeTable()),
	}
}

// Tick evaluates every bot in the snapshot and returns one report each.
// Reports preserve snapshot order.
func (o *Orchestrator) Tick(snap Snapshot, now time.Time) []Report {
	reports := make([]Report, 0, len(snap.Bots))
	for _, bs := range snap.Bots {
		reports = append(reports, o.evaluateBot(bs, now))
	}
	return reports
}

func (o *Orchestrator) evaluateBot(bs BotSnapshot, now time.Time) Report {
	st := o.synth.Evaluate(bs.Bot, bs.Instance, bs.Jobs, bs.Improvement, now)
	actions := o.planner.Plan(bs.Bot, bs.Instance, st, now)

	// FROZEN is set externally and never synthesized; carry it through here
	// so a frozen bot can never promote on a healthy score.
	health := st.HealthState
	if bs.Bot.HealthState == state.HealthFrozen {
		health = state.HealthFrozen
	}

	metrics := bs.Metrics
	if metrics == nil && len(bs.Trades) > 0 {
		m := o.rollupTrades(bs.Trades, now)
		metrics = &m
	}

	in := promotion.Input{
		BotID:             bs.Bot.ID,
		Stage:             bs.Bot.Stage,
		Health:            health,
		Metrics:           metrics,
		LastBacktestAt:    bs.LastBacktestAt,
		BacktestCompleted: bs.BacktestCompleted,
		Now:               now,
	}

	r := Report{
		EvaluationID: uuid.NewString(),
		BotID:        bs.Bot.ID,
		BotName:      bs.Bot.Name,
		State:        st,
		Actions:      actions,
		Promotion:    promotion.Evaluate(in, o.cfg.Promotion),
		Progress:     promotion.ScoreProgress(in, o.cfg.Promotion),
	}

	if th, ok := o.cfg.Graduation[string(bs.Bot.Stage)]; ok && metrics != nil {
		gs := graduation.Evaluate(*metrics, th)
		r.Graduation = &gs
	}
	return r
}

// rollupTrades builds a windowed rollup from raw closed-trade samples for
// snapshots that carry trades instead of a pre-built rollup. Samples are
// replayed in time order so window pruning sees a monotonic clock.
func (o *Orchestrator) rollupTrades(trades []TradeSample, now time.Time) rollup.MetricsRollup {
	sorted := make([]TradeSample, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	c := rollup.NewCollector(o.cfg.RollupWindow(), o.cfg.Rollup.CapitalBase)
	for _, s := range sorted {
		c.RecordTrade(s.At, s.PnL)
	}
	return c.Snapshot(now)
}
