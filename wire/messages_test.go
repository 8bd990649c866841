package wire

import (
	"testing"

	"jellybeanworld/world"
)

func TestConnectResponseRoundTrip(t *testing.T) {
	cfg := world.Config{
		Seed:            "seed",
		PatchSize:       16,
		VisionRange:     3,
		ScentDimensions: 2,
		ColorDimensions: 2,
		ItemTypeCount:   1,
		MCMCIterations:  5,
		ItemTypes: []world.ItemType{
			{
				Name:           "jellybean",
				ScentVec:       []float32{1, 0},
				ColorVec:       []float32{0, 1},
				RequiredCounts: []int32{0},
				RequiredCosts:  []int32{0},
				BlocksMovement: false,
				Intensity:      world.IntensityFn{ID: "constant", Args: []float32{1.5}},
				Interactions: []world.InteractionFn{
					{ID: "attraction", TargetItem: 0, Args: []float32{2, 3}},
				},
			},
		},
	}
	want := ConnectResponse{
		Status:      world.StatusOk,
		ClientID:    7,
		Config:      cfg,
		CurrentTime: 99,
	}

	payload := EncodeConnectResponse(want)
	got, err := DecodeConnectResponse(payload)
	if err != nil {
		t.Fatalf("DecodeConnectResponse failed: %v", err)
	}
	if got.Status != want.Status || got.ClientID != want.ClientID || got.CurrentTime != want.CurrentTime {
		t.Fatalf("scalar fields mismatch: got %+v", got)
	}
	if got.Config.Seed != cfg.Seed || len(got.Config.ItemTypes) != 1 {
		t.Fatalf("config mismatch: got %+v", got.Config)
	}
	gotItem := got.Config.ItemTypes[0]
	if gotItem.Name != "jellybean" || gotItem.Intensity.ID != "constant" {
		t.Fatalf("item type mismatch: got %+v", gotItem)
	}
	if len(gotItem.Interactions) != 1 || gotItem.Interactions[0].ID != "attraction" {
		t.Fatalf("interaction mismatch: got %+v", gotItem.Interactions)
	}
}

func TestAgentStateRoundTrip(t *testing.T) {
	s := world.AgentState{
		ID:        3,
		Position:  world.Position{X: -2, Y: 5},
		Facing:    world.DirectionLeft,
		Scent:     []float32{0.1, 0.2},
		Vision:    []float32{1, 2, 3, 4},
		Inventory: []uint32{1, 0, 2},
		Active:    true,
	}
	e := NewEncoder(64)
	EncodeAgentState(e, s)
	d := NewDecoder(e.Bytes())
	got := DecodeAgentState(d, s.ID)
	if err := d.Err(); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.Position != s.Position || got.Facing != s.Facing || got.Active != s.Active {
		t.Fatalf("scalar mismatch: got %+v, want %+v", got, s)
	}
	if len(got.Scent) != 2 || len(got.Vision) != 4 || len(got.Inventory) != 3 {
		t.Fatalf("slice length mismatch: got %+v", got)
	}
}

func TestMoveRequestRoundTrip(t *testing.T) {
	want := MoveRequest{AgentID: 11, Direction: world.DirectionUp, Steps: 3}
	got, err := DecodeMoveRequest(EncodeMoveRequest(want))
	if err != nil {
		t.Fatalf("DecodeMoveRequest failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestStepBroadcastRoundTrip(t *testing.T) {
	want := StepBroadcast{
		NewTime: 123,
		Agents: []world.AgentState{
			{ID: 1, Position: world.Position{X: 1, Y: 1}, Facing: world.DirectionUp},
			{ID: 2, Position: world.Position{X: 2, Y: 2}, Facing: world.DirectionDown},
		},
	}
	got, err := DecodeStepBroadcast(EncodeStepBroadcast(want))
	if err != nil {
		t.Fatalf("DecodeStepBroadcast failed: %v", err)
	}
	if got.NewTime != want.NewTime || len(got.Agents) != 2 {
		t.Fatalf("mismatch: got %+v", got)
	}
	if got.Agents[0].ID != 1 || got.Agents[1].ID != 2 {
		t.Fatalf("agent id ordering mismatch: got %+v", got.Agents)
	}
}

func TestGetMapResponseRoundTrip(t *testing.T) {
	want := GetMapResponse{
		Status: world.StatusOk,
		Patches: []world.PatchView{
			{
				Key:   world.PatchKey{PX: 1, PY: -1},
				Fixed: true,
				Items: []world.Item{{Type: 0, CellPosition: world.Position{X: 3, Y: 4}}},
				RemovedItems: []world.RemovedItem{
					{Type: 0, Position: world.Position{X: 5, Y: 6}, DeletedTick: 10},
				},
				Scent: []float32{0.5, 0.25},
			},
		},
	}
	got, err := DecodeGetMapResponse(EncodeGetMapResponse(want))
	if err != nil {
		t.Fatalf("DecodeGetMapResponse failed: %v", err)
	}
	if len(got.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(got.Patches))
	}
	p := got.Patches[0]
	if p.Key != want.Patches[0].Key || !p.Fixed {
		t.Fatalf("patch header mismatch: got %+v", p)
	}
	if len(p.Items) != 1 || len(p.RemovedItems) != 1 || len(p.Scent) != 2 {
		t.Fatalf("patch body mismatch: got %+v", p)
	}
}
