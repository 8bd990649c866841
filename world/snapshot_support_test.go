package world

import "testing"

func TestExportRestoreRoundTrip(t *testing.T) {
	w := newTestWorld(t, "snapshot-roundtrip")

	a1 := w.AddAgent()
	sc := NewStepCoordinator(w, nil)
	if err := sc.SubmitMove(a1.ID, DirectionRight, 3); err != nil {
		t.Fatalf("SubmitMove failed: %v", err)
	}
	a2 := w.AddAgent()
	if err := w.SetActive(a2.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	patches := w.ExportPatches()
	agents := w.ExportAgents()
	nextID := w.NextAgentID()
	clock := w.Clock()

	if len(patches) == 0 {
		t.Fatalf("expected at least one materialized patch to export")
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 exported agents, got %d", len(agents))
	}

	restored, err := Restore(testConfig("snapshot-roundtrip"), clock, nextID, patches, agents)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if restored.Clock() != clock {
		t.Fatalf("expected restored clock %d, got %d", clock, restored.Clock())
	}
	if restored.NextAgentID() != nextID {
		t.Fatalf("expected restored next agent id %d, got %d", nextID, restored.NextAgentID())
	}

	ra1, err := restored.Agent(a1.ID)
	if err != nil {
		t.Fatalf("Agent(%d) failed after restore: %v", a1.ID, err)
	}
	want := a1.Snapshot().Position
	if got := ra1.Snapshot().Position; got != want {
		t.Fatalf("expected restored a1 at %+v, got %+v", want, got)
	}

	ra2, err := restored.Agent(a2.ID)
	if err != nil {
		t.Fatalf("Agent(%d) failed after restore: %v", a2.ID, err)
	}
	if ra2.Snapshot().Active {
		t.Fatalf("expected restored a2 to remain inactive")
	}

	// A freshly restored world should still be able to take a tick: caches
	// must have been recomputed, not left nil.
	rsc := NewStepCoordinator(restored, nil)
	if err := rsc.SubmitMove(a1.ID, DirectionUp, 1); err != nil {
		t.Fatalf("SubmitMove on restored world failed: %v", err)
	}
	if restored.Clock() != clock+1 {
		t.Fatalf("expected restored world to advance a tick, clock=%d", restored.Clock())
	}
}

func TestExportPatchesPreservesScentField(t *testing.T) {
	w := newTestWorld(t, "snapshot-scent")
	a := w.AddAgent()
	sc := NewStepCoordinator(w, nil)
	if err := sc.SubmitNoOp(a.ID); err != nil {
		t.Fatalf("SubmitNoOp failed: %v", err)
	}

	patches := w.ExportPatches()
	if len(patches) == 0 {
		t.Fatalf("expected materialized patches after a tick")
	}
	for _, p := range patches {
		if len(p.Scent) == 0 {
			t.Fatalf("expected non-empty scent buffer for patch %+v", p.Key)
		}
	}
}
