package world

import (
	"sort"
	"sync"
)

// CoordinatorState is the Step Coordinator's tick-gate state (§4.4).
type CoordinatorState uint8

const (
	StateAwaitingActions CoordinatorState = iota
	StateResolving
	StateBroadcasting
)

// StepCallback is invoked once per tick, after Resolving completes, with
// every registered agent's freshly-refreshed state. The server filters this
// down to each session's owned agents before writing STEP frames; an
// in-process embedder may use it directly.
type StepCallback func(tick uint64, states []AgentState)

// StepCoordinator gates tick advancement on every currently-required agent
// submitting exactly one action, then runs the Resolving phase to
// completion without suspension (§4.4, §5).
type StepCoordinator struct {
	mu sync.Mutex

	world  *World
	onStep StepCallback

	state       CoordinatorState
	required    map[uint64]struct{}
	submitClock uint64 // monotonic counter stamping SubmittedAt for FCFS ordering
}

// NewStepCoordinator builds a coordinator over world, snapshotting the
// initial required-agent set from whichever agents are currently active.
func NewStepCoordinator(w *World, onStep StepCallback) *StepCoordinator {
	sc := &StepCoordinator{
		world:  w,
		onStep: onStep,
		state:  StateAwaitingActions,
	}
	sc.resetRequired()
	return sc
}

func (sc *StepCoordinator) resetRequired() {
	ids := sc.world.registry.ActiveIDs()
	sc.required = make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		sc.required[id] = struct{}{}
	}
}

// SubmitMove queues a move action for agentID. A direction configured
// PolicyIgnored succeeds but queues a no-op, per §3's "silently succeed
// without effect".
func (sc *StepCoordinator) SubmitMove(agentID uint64, dir Direction, steps uint32) error {
	return sc.submit(agentID, func(order uint64) (PendingAction, error) {
		switch sc.world.cfg.movePolicy(dir) {
		case PolicyDisallowed:
			return PendingAction{}, StatusPermissionError.Errf("direction %s is disallowed by policy", dir)
		case PolicyIgnored:
			return PendingAction{Kind: ActionNoOp, SubmittedAt: order}, nil
		default:
			return PendingAction{Kind: ActionMove, Direction: dir, Steps: steps, SubmittedAt: order}, nil
		}
	})
}

// SubmitTurn queues a turn action for agentID. A turn configured
// PolicyIgnored succeeds but queues a no-op, per §3's "silently succeed
// without effect".
func (sc *StepCoordinator) SubmitTurn(agentID uint64, turn TurnDirection) error {
	return sc.submit(agentID, func(order uint64) (PendingAction, error) {
		switch sc.world.cfg.turnPolicy(turn) {
		case PolicyDisallowed:
			return PendingAction{}, StatusPermissionError.Errf("turn is disallowed by policy")
		case PolicyIgnored:
			return PendingAction{Kind: ActionNoOp, SubmittedAt: order}, nil
		default:
			return PendingAction{Kind: ActionTurn, Turn: turn, SubmittedAt: order}, nil
		}
	})
}

// SubmitNoOp queues a do-nothing action for agentID.
func (sc *StepCoordinator) SubmitNoOp(agentID uint64) error {
	return sc.submit(agentID, func(order uint64) (PendingAction, error) {
		return PendingAction{Kind: ActionNoOp, SubmittedAt: order}, nil
	})
}

// submit validates and queues an action, then triggers Resolving if the
// required set is now fully satisfied.
func (sc *StepCoordinator) submit(agentID uint64, build func(order uint64) (PendingAction, error)) error {
	agent, err := sc.world.Agent(agentID)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	order := sc.submitClock
	sc.submitClock++
	action, err := build(order)
	if err != nil {
		sc.mu.Unlock()
		return err
	}
	if !agent.setPendingAction(action) {
		sc.mu.Unlock()
		return StatusAgentAlreadyActed.Errf("agent %d already submitted an action this tick", agentID)
	}

	// The required set is otherwise only rearmed at the end of resolve();
	// on a freshly constructed coordinator (or one that has never had an
	// active agent) it starts empty, which would leave the very first tick
	// waiting forever. Adopt whoever is active right now as this tick's
	// cohort instead of deadlocking.
	if len(sc.required) == 0 {
		sc.resetRequired()
	}

	ready := sc.allRequiredActedLocked()
	sc.mu.Unlock()

	if ready {
		sc.resolve()
	}
	return nil
}

func (sc *StepCoordinator) allRequiredActedLocked() bool {
	if len(sc.required) == 0 {
		return false
	}
	for id := range sc.required {
		agent, ok := sc.world.registry.Get(id)
		if !ok {
			continue
		}
		if !agent.hasPendingAction() {
			return false
		}
	}
	return true
}

// resolve runs the §4.4 Resolving phase to completion, then Broadcasting,
// then rearms AwaitingActions for the next tick.
func (sc *StepCoordinator) resolve() {
	w := sc.world
	w.mu.Lock()

	sc.mu.Lock()
	sc.state = StateResolving
	sc.mu.Unlock()

	agents := w.registry.All()
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })

	type pendingMove struct {
		agent       *Agent
		dest        Position
		submittedAt uint64
	}

	finalPos := make(map[uint64]Position, len(agents))
	for _, a := range agents {
		a.mu.Lock()
		finalPos[a.ID] = a.Position
		a.mu.Unlock()
	}

	// (1) Turns apply first, purely local.
	var movers []pendingMove
	for _, a := range agents {
		action, ok := a.takePendingAction()
		if !ok {
			continue
		}
		switch action.Kind {
		case ActionTurn:
			a.mu.Lock()
			a.Facing = action.Turn.Compose(a.Facing)
			a.mu.Unlock()
		case ActionMove:
			a.mu.Lock()
			start := a.Position
			a.mu.Unlock()
			if dest, ok := sc.tryMovePath(start, action.Direction, action.Steps); ok {
				movers = append(movers, pendingMove{agent: a, dest: dest, submittedAt: action.SubmittedAt})
			}
		case ActionNoOp, ActionNone:
		}
	}

	// (2) Collect claims per destination cell: stationary agents claim
	// their own cell, movers claim their proposed destination.
	claims := make(map[Position][]uint64)
	moverDest := make(map[uint64]Position, len(movers))
	moverOrder := make(map[uint64]uint64, len(movers))
	for _, m := range movers {
		moverDest[m.agent.ID] = m.dest
		moverOrder[m.agent.ID] = m.submittedAt
	}
	for _, a := range agents {
		dest := finalPos[a.ID]
		if d, ok := moverDest[a.ID]; ok {
			dest = d
		}
		claims[dest] = append(claims[dest], a.ID)
	}

	winners := sc.resolveConflicts(claims, moverDest, moverOrder)

	for _, m := range movers {
		if winners[m.agent.ID] {
			m.agent.mu.Lock()
			m.agent.Position = m.dest
			m.agent.mu.Unlock()
			finalPos[m.agent.ID] = m.dest
		}
	}

	// (3) Item collection, in final-position order (agent id ascending).
	tick := w.clock
	for _, a := range agents {
		a.mu.Lock()
		pos := a.Position
		a.mu.Unlock()
		w.collectAt(a, pos, tick)
	}

	// (4) Scent field advanced over the active set.
	activeKeys := sc.activeSetKeys(agents)
	w.scent.Advance(tick+1, activeKeys)

	// (5) Refresh every agent's caches.
	for _, a := range agents {
		w.refreshAgentCachesLocked(a)
	}

	// (6) Global clock incremented. (7) pending_action already cleared by
	// takePendingAction/SetActive.
	w.clock++
	newTick := w.clock

	sc.mu.Lock()
	sc.state = StateBroadcasting
	sc.resetRequired()
	sc.mu.Unlock()

	states := make([]AgentState, 0, len(agents))
	for _, a := range agents {
		states = append(states, a.Snapshot())
	}

	w.mu.Unlock()

	if sc.onStep != nil {
		sc.onStep(newTick, states)
	}

	sc.mu.Lock()
	sc.state = StateAwaitingActions
	sc.mu.Unlock()
}

// tryMovePath checks every intermediate cell along a straight-line move of
// steps cells in dir, rejecting the whole move if any is blocked (§4.3).
func (sc *StepCoordinator) tryMovePath(start Position, dir Direction, steps uint32) (Position, bool) {
	if steps == 0 {
		return start, false
	}
	dx, dy := dir.Delta()
	cur := start
	for i := uint32(0); i < steps; i++ {
		cur = cur.Add(dx, dy)
		if sc.world.cellBlocked(cur) {
			return start, false
		}
	}
	return cur, true
}

// resolveConflicts applies MovementConflictPolicy to every contested
// destination cell. A stationary resident always retains its cell; among
// competing movers, NoCollisions rejects all, FirstComeFirstServed keeps
// the earliest SubmittedAt, Random draws uniformly via the tick-seeded RNG.
func (sc *StepCoordinator) resolveConflicts(claims map[Position][]uint64, moverDest map[uint64]Position, moverOrder map[uint64]uint64) map[uint64]bool {
	winners := make(map[uint64]bool, len(moverDest))
	rng := TickRNG(sc.world.cfg.Seed, sc.world.clock)

	for _, claimants := range claims {
		if len(claimants) == 1 {
			id := claimants[0]
			if _, isMover := moverDest[id]; isMover {
				winners[id] = true
			}
			continue
		}

		hasResident := false
		var movingClaimants []uint64
		for _, id := range claimants {
			if _, isMover := moverDest[id]; isMover {
				movingClaimants = append(movingClaimants, id)
			} else {
				hasResident = true
			}
		}
		if hasResident || len(movingClaimants) == 0 {
			// A stationary resident keeps its cell; every mover targeting
			// it fails regardless of policy.
			continue
		}

		switch sc.world.cfg.MovementConflict {
		case ConflictNoCollisions:
			// all lose
		case ConflictFirstComeFirstServed:
			best := movingClaimants[0]
			bestOrder := moverOrder[best]
			for _, id := range movingClaimants[1:] {
				if order := moverOrder[id]; order < bestOrder {
					best = id
					bestOrder = order
				}
			}
			winners[best] = true
		case ConflictRandom:
			idx := int(rng.Int63n(int64(len(movingClaimants))))
			winners[movingClaimants[idx]] = true
		}
	}
	return winners
}

// activeSetKeys returns the 3×3 patch working set around every agent's
// current cell, approximating §4.2's "within R+1 cells of a patch's
// bounds" active-set rule at patch granularity.
func (sc *StepCoordinator) activeSetKeys(agents []*Agent) map[PatchKey]struct{} {
	keys := make(map[PatchKey]struct{})
	for _, a := range agents {
		a.mu.Lock()
		pos := a.Position
		a.mu.Unlock()
		px, py := pos.PatchCoord(sc.world.cfg.PatchSize)
		for _, k := range neighborKeys(px, py) {
			keys[k] = struct{}{}
		}
	}
	return keys
}
