// Package worldgen carries telemetry for patch materialization and item
// placement, the JBW analogue of the teacher's combat/economy event packages.
package worldgen

import (
	"context"

	"jellybeanworld/logging"
)

const (
	// EventPatchFixed is emitted when a patch is promoted from provisional to fixed.
	EventPatchFixed logging.EventType = "worldgen.patch_fixed"
	// EventGibbsSweepCompleted is emitted after the Gibbs sampler finishes its sweeps over a working set.
	EventGibbsSweepCompleted logging.EventType = "worldgen.gibbs_sweep_completed"
	// EventItemCollected is emitted when an agent collects an item from a patch.
	EventItemCollected logging.EventType = "worldgen.item_collected"
)

// PatchFixedPayload names the patch and the item count materialized into it.
type PatchFixedPayload struct {
	PatchX    int32 `json:"patchX"`
	PatchY    int32 `json:"patchY"`
	ItemCount int   `json:"itemCount"`
}

// GibbsSweepPayload reports sampler effort for one working-set materialization.
type GibbsSweepPayload struct {
	PatchX     int32 `json:"patchX"`
	PatchY     int32 `json:"patchY"`
	Iterations int   `json:"iterations"`
	CellsVisited int `json:"cellsVisited"`
}

// ItemCollectedPayload names the collected item type and the cell it was
// taken from.
type ItemCollectedPayload struct {
	ItemType string `json:"itemType"`
	CellX    int64  `json:"cellX"`
	CellY    int64  `json:"cellY"`
}

// PatchFixed publishes a patch-promotion event.
func PatchFixed(ctx context.Context, pub logging.Publisher, tick uint64, payload PatchFixedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPatchFixed,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: "worldgen",
		Payload:  payload,
		Extra:    extra,
	})
}

// GibbsSweepCompleted publishes a sampler-effort event.
func GibbsSweepCompleted(ctx context.Context, pub logging.Publisher, tick uint64, payload GibbsSweepPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGibbsSweepCompleted,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: "worldgen",
		Payload:  payload,
		Extra:    extra,
	})
}

// ItemCollected publishes an item-collection event.
func ItemCollected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ItemCollectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventItemCollected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "worldgen",
		Payload:  payload,
		Extra:    extra,
	})
}
