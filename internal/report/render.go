// Package report renders fleet evaluation results as Telegram-ready HTML.
package report

import (
	"fmt"
	"strings"

	"github.com/quantfleet/bot-orchestrator/internal/fleet"
	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// BlockerDigest describes the data required to render a critical-blocker
// alert for one bot.
type BlockerDigest struct {
	BotName     string
	Stage       string
	HealthState string
	Blockers    []string
	Actions     []string
}

// BuildBlockerDigest extracts the CRITICAL blockers and recommended actions
// from one report. Returns false when the bot has no critical blockers.
func BuildBlockerDigest(r fleet.Report) (BlockerDigest, bool) {
	d := BlockerDigest{
		BotName:     r.BotName,
		Stage:       string(r.Promotion.FromStage),
		HealthState: string(r.State.HealthState),
	}
	if d.BotName == "" {
		d.BotName = r.BotID
	}
	for _, b := range r.State.Blockers {
		if b.Severity != state.SeverityCritical {
			continue
		}
		d.Blockers = append(d.Blockers, fmt.Sprintf("[%s] %s", b.Code, b.Message))
	}
	if len(d.Blockers) == 0 {
		return BlockerDigest{}, false
	}
	for _, a := range r.Actions {
		d.Actions = append(d.Actions, fmt.Sprintf("%s: %s", a.Type, a.Reason))
	}
	return d, true
}

// RenderBlockerHTML renders a blocker digest in Telegram HTML parse mode.
func RenderBlockerHTML(d BlockerDigest) string {
	var b strings.Builder
	b.WriteString("<b>Bot Blocked</b>\n")
	b.WriteString(fmt.Sprintf("Bot: <code>%s</code>\nStage: %s\nHealth: %s\n", d.BotName, strings.ToUpper(d.Stage), d.HealthState))
	b.WriteString("\n<b>Blockers</b>\n")
	for _, bl := range d.Blockers {
		b.WriteString("- " + bl + "\n")
	}
	if len(d.Actions) > 0 {
		b.WriteString("\n<b>Recommended Actions</b>\n")
		for _, a := range d.Actions {
			b.WriteString("- " + a + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// RenderProgressHTML renders a promotion progress summary.
func RenderProgressHTML(r fleet.Report) string {
	var b strings.Builder
	name := r.BotName
	if name == "" {
		name = r.BotID
	}
	b.WriteString("<b>Promotion Progress</b>\n")
	b.WriteString(fmt.Sprintf("Bot: <code>%s</code>\nStage: %s\n", name, r.Promotion.FromStage))
	if r.Progress.TargetStage != nil {
		b.WriteString(fmt.Sprintf("Target: %s\nProgress: %d%%\n", *r.Progress.TargetStage, r.Progress.Percent))
	} else {
		b.WriteString("Target: none (final stage)\n")
	}
	if missing := r.Progress.MissingGates(); len(missing) > 0 {
		b.WriteString("\n<b>Missing Gates</b>\n")
		for _, m := range missing {
			b.WriteString("- " + m + "\n")
		}
	}
	if r.Graduation != nil {
		b.WriteString(fmt.Sprintf("\nGraduation: %d/%d gates, bucket %s\n", r.Graduation.GatesPassed, r.Graduation.GatesTotal, r.Graduation.Bucket))
	}
	return strings.TrimSpace(b.String())
}
