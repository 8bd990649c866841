package lifecycle

import (
	"context"

	"jellybeanworld/logging"
)

const (
	// EventAgentAdded is emitted when an agent is registered in the world.
	EventAgentAdded logging.EventType = "lifecycle.agent_added"
	// EventAgentRemoved is emitted when an agent is removed from the world.
	EventAgentRemoved logging.EventType = "lifecycle.agent_removed"
	// EventAgentActiveChanged is emitted when an agent's active flag changes.
	EventAgentActiveChanged logging.EventType = "lifecycle.agent_active_changed"
)

// AgentAddedPayload captures spawn metadata for a new agent.
type AgentAddedPayload struct {
	SpawnX int64 `json:"spawnX"`
	SpawnY int64 `json:"spawnY"`
}

// AgentRemovedPayload captures the reason an agent left.
type AgentRemovedPayload struct {
	Reason string `json:"reason"`
}

// AgentActiveChangedPayload captures the new active flag.
type AgentActiveChangedPayload struct {
	Active bool `json:"active"`
}

// AgentAdded publishes an agent-registration event.
func AgentAdded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentAddedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAgentAdded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	})
}

// AgentRemoved publishes an agent-removal event.
func AgentRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentRemovedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAgentRemoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	})
}

// AgentActiveChanged publishes a set_active transition.
func AgentActiveChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentActiveChangedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAgentActiveChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	})
}
