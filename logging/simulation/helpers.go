package simulation

import (
	"context"

	"jellybeanworld/logging"
)

const (
	// EventTickBudgetOverrun is emitted when the simulation loop exceeds the allotted tick budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventTickBudgetAlarm is emitted when the server schedules recovery due to a severe tick budget breach.
	EventTickBudgetAlarm logging.EventType = "simulation.tick_budget_alarm"
	// EventTickResolved is emitted once a tick finishes Resolving and the clock advances.
	EventTickResolved logging.EventType = "simulation.tick_resolved"
	// EventMovementConflict is emitted when two or more agents target the same destination cell.
	EventMovementConflict logging.EventType = "simulation.movement_conflict"
	// EventTickAborted is emitted when Resolving fails and the clock does not advance.
	EventTickAborted logging.EventType = "simulation.tick_aborted"
)

// TickResolvedPayload summarizes one completed tick.
type TickResolvedPayload struct {
	ActiveAgents  int `json:"activeAgents"`
	Conflicts     int `json:"conflicts"`
	Collections   int `json:"collections"`
}

// MovementConflictPayload names the contested cell and its claimants.
type MovementConflictPayload struct {
	CellX    int64    `json:"cellX"`
	CellY    int64    `json:"cellY"`
	Claimants []string `json:"claimants"`
	WinnerID string   `json:"winnerId"`
	Policy   string   `json:"policy"`
}

// TickAbortedPayload captures why a tick failed to advance.
type TickAbortedPayload struct {
	Reason string `json:"reason"`
}

// TickResolved publishes a per-tick summary once Resolving completes.
func TickResolved(ctx context.Context, pub logging.Publisher, tick uint64, payload TickResolvedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickResolved,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	})
}

// MovementConflict publishes a resolved movement collision.
func MovementConflict(ctx context.Context, pub logging.Publisher, tick uint64, payload MovementConflictPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMovementConflict,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	})
}

// TickAborted publishes a fatal Resolving failure.
func TickAborted(ctx context.Context, pub logging.Publisher, tick uint64, payload TickAbortedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickAborted,
		Tick:     tick,
		Severity: logging.SeverityError,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	})
}

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// TickBudgetOverrun publishes a warning when the simulation exceeds the configured tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// TickBudgetAlarmPayload captures details when the server escalates an overrun into a resynchronisation alarm.
type TickBudgetAlarmPayload struct {
	DurationMillis  int64   `json:"durationMillis"`
	BudgetMillis    int64   `json:"budgetMillis"`
	Ratio           float64 `json:"ratio"`
	Streak          uint64  `json:"streak"`
	ResyncScheduled bool    `json:"resyncScheduled"`
	ThresholdRatio  float64 `json:"thresholdRatio"`
	ThresholdStreak uint64  `json:"thresholdStreak"`
}

// TickBudgetAlarm publishes an error event when the server forces a resync due to sustained tick budget overruns.
func TickBudgetAlarm(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetAlarmPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetAlarm,
		Tick:     tick,
		Severity: logging.SeverityError,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
