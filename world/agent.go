package world

import "sync"

// ActionKind tags the three action shapes an agent may submit for a tick.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionMove
	ActionTurn
	ActionNoOp
)

// PendingAction is the option-typed action slot described in §3 — at most
// one action is queued per agent per tick.
type PendingAction struct {
	Kind ActionKind

	Direction Direction
	Steps     uint32

	Turn TurnDirection

	// SubmittedAt orders claimants for FirstComeFirstServed conflict
	// resolution (§4.4).
	SubmittedAt uint64
}

// Agent is one embodied participant in the world (§3). Position/facing/
// caches are read through the per-agent mutex outside Resolving; during
// Resolving the world writer lock alone suffices (§5's shared-resource
// policy).
type Agent struct {
	mu sync.Mutex

	ID       uint64
	Position Position
	Facing   Direction

	ScentCache  []float32 // length S
	VisionCache []float32 // length (2R+1)^2 * C
	Inventory   []uint32  // length T

	Active bool

	pending    PendingAction
	hasPending bool
}

func newAgent(id uint64, pos Position, facing Direction, cfg Config) *Agent {
	visionSide := 2*int(cfg.VisionRange) + 1
	return &Agent{
		ID:          id,
		Position:    pos,
		Facing:      facing,
		ScentCache:  make([]float32, cfg.ScentDimensions),
		VisionCache: make([]float32, visionSide*visionSide*int(cfg.ColorDimensions)),
		Inventory:   make([]uint32, cfg.ItemTypeCount),
		Active:      true,
	}
}

// Lock/Unlock expose the per-agent mutex to callers outside this package.
func (a *Agent) Lock()   { a.mu.Lock() }
func (a *Agent) Unlock() { a.mu.Unlock() }

// setPendingAction queues an action for the current tick. Returns false if
// one was already queued (an agent may act at most once per tick).
func (a *Agent) setPendingAction(action PendingAction) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasPending {
		return false
	}
	a.pending = action
	a.hasPending = true
	return true
}

func (a *Agent) takePendingAction() (PendingAction, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasPending {
		return PendingAction{}, false
	}
	action := a.pending
	a.pending = PendingAction{}
	a.hasPending = false
	return action, true
}

func (a *Agent) clearPendingAction() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = PendingAction{}
	a.hasPending = false
}

func (a *Agent) hasPendingAction() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasPending
}

// Snapshot copies the fields exposed to clients/serialization under the
// per-agent mutex.
func (a *Agent) Snapshot() AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := AgentState{
		ID:       a.ID,
		Position: a.Position,
		Facing:   a.Facing,
		Active:   a.Active,
	}
	state.Scent = append(state.Scent, a.ScentCache...)
	state.Vision = append(state.Vision, a.VisionCache...)
	state.Inventory = append(state.Inventory, a.Inventory...)
	return state
}

// AgentState is the immutable, client-facing view of an agent at a point in
// time — the wire/snapshot encoding of §6's `agent_state`.
type AgentState struct {
	ID        uint64
	Position  Position
	Facing    Direction
	Scent     []float32
	Vision    []float32
	Inventory []uint32
	Active    bool
}
