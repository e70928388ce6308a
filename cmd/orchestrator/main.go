package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/config"
	"github.com/quantfleet/bot-orchestrator/internal/fleet"
	"github.com/quantfleet/bot-orchestrator/internal/notify"
	"github.com/quantfleet/bot-orchestrator/internal/promotion"
	"github.com/quantfleet/bot-orchestrator/internal/report"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	snapPath := flag.String("snapshot", "snapshot.json", "path to fleet snapshot file")
	outPath := flag.String("out", "", "write reports as JSON to this file (default stdout)")
	loop := flag.Bool("loop", false, "re-evaluate every tick_interval until interrupted")
	flag.Parse()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf(
		"bot-orchestrator starting (promotion_enabled=%t min_trades=%d window_days=%d heartbeat_stale=%s tick=%s)",
		cfg.Promotion.Enabled,
		cfg.Promotion.MinTrades,
		cfg.Promotion.WindowDays,
		cfg.Heartbeat.StaleAfter,
		cfg.TickInterval,
	)

	orch := fleet.New(cfg)
	notifier := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if cfg.Telegram.Enabled && !notifier.Enabled() {
		log.Println("warning: telegram enabled but token/chat_id missing, alerts disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		snap, err := fleet.LoadSnapshot(*snapPath)
		if err != nil {
			log.Printf("snapshot: %v", err)
			return
		}
		now := time.Now().UTC()
		reports := orch.Tick(snap, now)
		logReports(reports)
		if notifier.Enabled() && cfg.Telegram.Enabled {
			alert(ctx, notifier, reports)
		}
		if err := writeReports(*outPath, reports); err != nil {
			log.Printf("write reports: %v", err)
		}
	}

	runOnce()
	if !*loop {
		return
	}

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	log.Println("evaluation loop started")
	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func logReports(reports []fleet.Report) {
	for _, r := range reports {
		log.Printf(
			"bot %s: runner=%s jobs=%s evolution=%s health=%s blockers=%d actions=%d decision=%s progress=%d%%",
			r.BotID,
			r.State.RunnerState,
			r.State.JobState,
			r.State.EvolutionState,
			r.State.HealthState,
			len(r.State.Blockers),
			len(r.Actions),
			r.Promotion.Decision,
			r.Progress.Percent,
		)
	}
}

func alert(ctx context.Context, n *notify.Notifier, reports []fleet.Report) {
	for _, r := range reports {
		if d, ok := report.BuildBlockerDigest(r); ok {
			if err := n.NotifyBlockerDigest(ctx, report.RenderBlockerHTML(d)); err != nil {
				log.Printf("notify: %v", err)
			}
		}
		switch r.Promotion.Decision {
		case promotion.DecisionPromote:
			if err := n.NotifyPromotion(ctx, r.BotName, string(r.Promotion.FromStage), string(r.Promotion.ToStage)); err != nil {
				log.Printf("notify: %v", err)
			}
			if err := n.Send(ctx, report.RenderProgressHTML(r)); err != nil {
				log.Printf("notify: %v", err)
			}
		case promotion.DecisionFreeze:
			if err := n.NotifyFreeze(ctx, r.BotName, r.Promotion.Reasons[0]); err != nil {
				log.Printf("notify: %v", err)
			}
		}
	}
}

func writeReports(path string, reports []fleet.Report) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
