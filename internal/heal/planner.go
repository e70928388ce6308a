// Package heal turns auto-healable blockers into recommended remediation
// actions. Nothing here touches infrastructure: the returned actions are
// typed commands for an external executor to apply under its own retry and
// concurrency discipline.
package heal

import (
	"fmt"
	"time"

	"github.com/quantfleet/bot-orchestrator/internal/state"
)

// ActionType identifies a recommended remediation.
type ActionType string

const (
	ActionRestartRunner ActionType = "restart_runner"
	ActionStartRunner   ActionType = "start_runner"
	ActionFixMode       ActionType = "fix_mode"
	ActionStopRunner    ActionType = "stop_runner"
)

// JobRequest asks the job subsystem to enqueue one job.
type JobRequest struct {
	Type  string `json:"type"`
	BotID string `json:"bot_id"`
}

// StoreUpdate asks the persistence layer to apply field updates.
type StoreUpdate struct {
	BotID  string            `json:"bot_id"`
	Fields map[string]string `json:"fields"`
}

// Action is one recommendation: either a job enqueue or a store update.
// Restart actions additionally carry the computed backoff so the executor
// can persist the next allowed restart time.
type Action struct {
	Type        ActionType        `json:"action"`
	BlockerCode state.BlockerCode `json:"blocker_code"`
	Reason      string            `json:"reason"`
	Job         *JobRequest       `json:"job,omitempty"`
	StoreUpdate *StoreUpdate      `json:"store_update,omitempty"`
	Backoff     *Backoff          `json:"backoff,omitempty"`
}

// Planner maps auto-healable blockers to actions.
type Planner struct {
	allowedModes map[state.Stage][]state.Mode
}

// NewPlanner creates a Planner with the injected stage→allowed-modes table.
func NewPlanner(allowedModes map[state.Stage][]state.Mode) *Planner {
	return &Planner{allowedModes: allowedModes}
}

// Plan walks the state's auto-healable blockers and emits exactly one action
// per known code. Restart recommendations are suppressed while the
// instance's cooldown timestamp is in the future, so a stalled runner cannot
// trigger a restart storm. Unknown or non-healable codes produce nothing.
func (p *Planner) Plan(bot state.BotContext, instance *state.InstanceContext, st state.CanonicalBotState, now time.Time) []Action {
	var actions []Action
	for _, b := range st.Blockers {
		if !b.AutoHealable {
			continue
		}
		switch b.Code {
		case state.CodeRunnerStalled, state.CodeRunnerError:
			if restartCoolingDown(instance, now) {
				continue
			}
			bo := ComputeBackoff(restartCount(instance), now)
			actions = append(actions, Action{
				Type:        ActionRestartRunner,
				BlockerCode: b.Code,
				Reason:      b.Message,
				Job:         &JobRequest{Type: "runner_restart", BotID: bot.ID},
				Backoff:     &bo,
			})
		case state.CodeNoPrimaryRunner:
			actions = append(actions, Action{
				Type:        ActionStartRunner,
				BlockerCode: b.Code,
				Reason:      b.Message,
				Job:         &JobRequest{Type: "runner_start", BotID: bot.ID},
			})
		case state.CodeModeStageMismatch:
			allowed := p.allowedModes[bot.Stage]
			if len(allowed) == 0 {
				continue
			}
			actions = append(actions, Action{
				Type:        ActionFixMode,
				BlockerCode: b.Code,
				Reason:      fmt.Sprintf("set mode to %q for stage %s", allowed[0], bot.Stage),
				StoreUpdate: &StoreUpdate{BotID: bot.ID, Fields: map[string]string{"mode": string(allowed[0])}},
			})
		case state.CodePreStageRunnerActive:
			actions = append(actions, Action{
				Type:        ActionStopRunner,
				BlockerCode: b.Code,
				Reason:      b.Message,
				StoreUpdate: &StoreUpdate{BotID: bot.ID, Fields: map[string]string{"desired_runner_status": "stopped"}},
			})
		}
	}
	return actions
}

func restartCount(instance *state.InstanceContext) int {
	if instance == nil {
		return 0
	}
	return instance.RestartCount
}

func restartCoolingDown(instance *state.InstanceContext, now time.Time) bool {
	return instance != nil &&
		instance.NextRestartAllowedAt != nil &&
		now.Before(*instance.NextRestartAllowedAt)
}
