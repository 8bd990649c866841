package world

import "testing"

func TestStepCoordinatorSingleAgentMoveAdvancesClock(t *testing.T) {
	w := newTestWorld(t, "step-single")
	sc := NewStepCoordinator(w, nil)
	a := w.AddAgent()

	if err := sc.SubmitMove(a.ID, DirectionUp, 1); err != nil {
		t.Fatalf("SubmitMove failed: %v", err)
	}
	if w.Clock() != 1 {
		t.Fatalf("expected clock to advance to 1, got %d", w.Clock())
	}
	if got := a.Snapshot().Position; got != (Position{X: 0, Y: 1}) {
		t.Fatalf("expected agent at (0,1), got %+v", got)
	}
}

func TestStepCoordinatorRejectsDoubleSubmission(t *testing.T) {
	w := newTestWorld(t, "step-double")
	sc := NewStepCoordinator(w, nil)
	a1 := w.AddAgent()
	a2 := w.AddAgent()

	if err := sc.SubmitMove(a1.ID, DirectionUp, 1); err != nil {
		t.Fatalf("first SubmitMove failed: %v", err)
	}
	if w.Clock() != 0 {
		t.Fatalf("expected tick to still be pending a2's action, clock=%d", w.Clock())
	}

	err := sc.SubmitMove(a1.ID, DirectionDown, 1)
	if StatusOf(err) != StatusAgentAlreadyActed {
		t.Fatalf("expected StatusAgentAlreadyActed, got %v", err)
	}
}

func TestStepCoordinatorRejectsDisallowedDirection(t *testing.T) {
	cfg := testConfig("step-policy")
	cfg.MovePolicy = map[Direction]ActionPolicy{
		DirectionUp:    PolicyDisallowed,
		DirectionDown:  PolicyAllowed,
		DirectionLeft:  PolicyAllowed,
		DirectionRight: PolicyAllowed,
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sc := NewStepCoordinator(w, nil)
	a := w.AddAgent()

	err = sc.SubmitMove(a.ID, DirectionUp, 1)
	if StatusOf(err) != StatusPermissionError {
		t.Fatalf("expected StatusPermissionError for disallowed direction, got %v", err)
	}
}

func TestStepCoordinatorIgnoredDirectionIsANoOp(t *testing.T) {
	cfg := testConfig("step-ignored")
	cfg.MovePolicy = map[Direction]ActionPolicy{
		DirectionUp:    PolicyIgnored,
		DirectionDown:  PolicyAllowed,
		DirectionLeft:  PolicyAllowed,
		DirectionRight: PolicyAllowed,
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sc := NewStepCoordinator(w, nil)
	a := w.AddAgent()
	start := a.Snapshot().Position

	if err := sc.SubmitMove(a.ID, DirectionUp, 1); err != nil {
		t.Fatalf("expected an ignored direction to silently succeed, got: %v", err)
	}
	if w.Clock() != 1 {
		t.Fatalf("expected clock to advance to 1, got %d", w.Clock())
	}
	if got := a.Snapshot().Position; got != start {
		t.Fatalf("expected ignored move to have no effect, agent moved from %+v to %+v", start, got)
	}
}

func TestStepCoordinatorIgnoredTurnIsANoOp(t *testing.T) {
	cfg := testConfig("step-ignored-turn")
	cfg.TurnPolicy = map[TurnDirection]ActionPolicy{
		TurnNoChange: PolicyAllowed,
		TurnReverse:  PolicyIgnored,
		TurnLeft:     PolicyAllowed,
		TurnRight:    PolicyAllowed,
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sc := NewStepCoordinator(w, nil)
	a := w.AddAgent()
	startFacing := a.Snapshot().Facing

	if err := sc.SubmitTurn(a.ID, TurnReverse); err != nil {
		t.Fatalf("expected an ignored turn to silently succeed, got: %v", err)
	}
	if got := a.Snapshot().Facing; got != startFacing {
		t.Fatalf("expected ignored turn to have no effect, facing changed from %v to %v", startFacing, got)
	}
}

// TestStepCoordinatorNoCollisionsConflict exercises §4.4's NoCollisions
// policy: two movers contesting the same empty destination cell both fail.
func TestStepCoordinatorNoCollisionsConflict(t *testing.T) {
	w := newTestWorld(t, "step-nocollisions")
	sc := NewStepCoordinator(w, nil)

	a1 := w.AddAgent()
	if err := sc.SubmitMove(a1.ID, DirectionRight, 2); err != nil {
		t.Fatalf("positioning move for a1 failed: %v", err)
	}

	a2 := w.AddAgent()
	if err := sc.SubmitMove(a2.ID, DirectionRight, 1); err != nil {
		t.Fatalf("SubmitMove for a2 failed: %v", err)
	}
	if err := sc.SubmitMove(a1.ID, DirectionLeft, 1); err != nil {
		t.Fatalf("SubmitMove for a1 failed: %v", err)
	}

	if got := a1.Snapshot().Position; got != (Position{X: 2, Y: 0}) {
		t.Fatalf("expected a1 to remain at (2,0) after a lost collision, got %+v", got)
	}
	if got := a2.Snapshot().Position; got != (Position{X: 0, Y: 0}) {
		t.Fatalf("expected a2 to remain at (0,0) after a lost collision, got %+v", got)
	}
}

// TestStepCoordinatorFirstComeFirstServed exercises §4.4's FCFS policy:
// the earlier of two contesting submissions wins the destination cell.
func TestStepCoordinatorFirstComeFirstServed(t *testing.T) {
	cfg := testConfig("step-fcfs")
	cfg.MovementConflict = ConflictFirstComeFirstServed
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sc := NewStepCoordinator(w, nil)

	a1 := w.AddAgent()
	if err := sc.SubmitMove(a1.ID, DirectionRight, 2); err != nil {
		t.Fatalf("positioning move for a1 failed: %v", err)
	}

	a2 := w.AddAgent()
	if err := sc.SubmitMove(a2.ID, DirectionRight, 1); err != nil {
		t.Fatalf("SubmitMove for a2 failed: %v", err)
	}
	if err := sc.SubmitMove(a1.ID, DirectionLeft, 1); err != nil {
		t.Fatalf("SubmitMove for a1 failed: %v", err)
	}

	if got := a2.Snapshot().Position; got != (Position{X: 1, Y: 0}) {
		t.Fatalf("expected earlier-submitting a2 to win the cell at (1,0), got %+v", got)
	}
	if got := a1.Snapshot().Position; got != (Position{X: 2, Y: 0}) {
		t.Fatalf("expected later-submitting a1 to lose and stay at (2,0), got %+v", got)
	}
}

func TestStepCoordinatorSetActiveRemovesFromRequiredSet(t *testing.T) {
	w := newTestWorld(t, "step-setactive")
	sc := NewStepCoordinator(w, nil)

	a1 := w.AddAgent()
	if err := sc.SubmitMove(a1.ID, DirectionUp, 1); err != nil {
		t.Fatalf("positioning move failed: %v", err)
	}

	a2 := w.AddAgent()
	if err := w.SetActive(a2.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	// a2 is inactive, so only a1 (already required from the previous tick)
	// gates resolution; submitting for a1 alone should advance the clock.
	clockBefore := w.Clock()
	if err := sc.SubmitMove(a1.ID, DirectionUp, 1); err != nil {
		t.Fatalf("SubmitMove failed: %v", err)
	}
	if w.Clock() != clockBefore+1 {
		t.Fatalf("expected clock to advance with a2 inactive, got %d -> %d", clockBefore, w.Clock())
	}
}

// TestStepCoordinatorSetActiveSynthesizesNoOpForStalledAgent exercises the
// §4.4 guard on SetActive: an agent that was already part of this tick's
// required set, then deactivated before it could submit, must not stall
// Resolving forever waiting for an action that will never arrive.
func TestStepCoordinatorSetActiveSynthesizesNoOpForStalledAgent(t *testing.T) {
	w := newTestWorld(t, "step-setactive-stall")
	sc := NewStepCoordinator(w, nil)

	a1 := w.AddAgent()
	a2 := w.AddAgent()

	if err := sc.SubmitNoOp(a1.ID); err != nil {
		t.Fatalf("SubmitNoOp a1 failed: %v", err)
	}
	if err := sc.SubmitNoOp(a2.ID); err != nil {
		t.Fatalf("SubmitNoOp a2 failed: %v", err)
	}
	if w.Clock() != 1 {
		t.Fatalf("expected first tick to resolve, clock=%d", w.Clock())
	}

	// Both agents are required again for the second tick; only a1 submits.
	if err := sc.SubmitMove(a1.ID, DirectionUp, 1); err != nil {
		t.Fatalf("SubmitMove a1 failed: %v", err)
	}
	if w.Clock() != 1 {
		t.Fatalf("expected tick to still be pending a2, clock=%d", w.Clock())
	}

	// a2 never submits for this tick; it is deactivated instead.
	if err := w.SetActive(a2.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	// An unrelated agent's submission re-checks readiness. Before the
	// SetActive guard, a2's slot would never be satisfied and this tick
	// would never resolve.
	a3 := w.AddAgent()
	if err := sc.SubmitNoOp(a3.ID); err != nil {
		t.Fatalf("SubmitNoOp a3 failed: %v", err)
	}
	if w.Clock() != 2 {
		t.Fatalf("expected tick to resolve once a2's slot was synthetically satisfied, clock=%d", w.Clock())
	}
}
