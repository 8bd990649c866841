package wire

import "jellybeanworld/world"

// EncodeAgentState writes `agent_state` as specified in §6: position
// (i64×2), facing (u8), scent (f32×S), vision (f32×(2R+1)²×C),
// inventory (u32×T), each slice prefixed by its u32 length, then the
// active flag (bool).
func EncodeAgentState(e *Encoder, s world.AgentState) {
	e.PutI64(s.Position.X)
	e.PutI64(s.Position.Y)
	e.PutU8(uint8(s.Facing))
	e.PutF32Slice(s.Scent)
	e.PutF32Slice(s.Vision)
	e.PutU32Slice(s.Inventory)
	e.PutBool(s.Active)
}

// DecodeAgentState is EncodeAgentState's inverse.
func DecodeAgentState(d *Decoder, id uint64) world.AgentState {
	s := world.AgentState{ID: id}
	s.Position.X = d.I64()
	s.Position.Y = d.I64()
	s.Facing = world.Direction(d.U8())
	s.Scent = d.F32Slice()
	s.Vision = d.F32Slice()
	s.Inventory = d.U32Slice()
	s.Active = d.Bool()
	return s
}

// EncodeConfig writes the subset of world.Config a client needs to
// interpret agent states and item catalogs (the CONNECT response's
// `config` field).
func EncodeConfig(e *Encoder, cfg world.Config) {
	e.PutString(cfg.Seed)
	e.PutU32(uint32(cfg.PatchSize))
	e.PutU32(uint32(cfg.VisionRange))
	e.PutU32(uint32(cfg.ScentDimensions))
	e.PutU32(uint32(cfg.ColorDimensions))
	e.PutU32(uint32(cfg.ItemTypeCount))
	e.PutU32(uint32(cfg.MCMCIterations))
	e.PutU64(cfg.DeletedItemLifetime)
	e.PutF32(float32(cfg.ScentDecay))
	e.PutF32(float32(cfg.ScentDiffusion))
	e.PutU8(uint8(cfg.MovementConflict))

	e.PutU32(uint32(len(cfg.ItemTypes)))
	for _, it := range cfg.ItemTypes {
		e.PutString(it.Name)
		e.PutF32Slice(it.ScentVec)
		e.PutF32Slice(it.ColorVec)
		e.PutI32Slice(it.RequiredCounts)
		e.PutI32Slice(it.RequiredCosts)
		e.PutBool(it.BlocksMovement)
		encodeIntensityFn(e, it.Intensity)
		e.PutU32(uint32(len(it.Interactions)))
		for _, inter := range it.Interactions {
			encodeInteractionFn(e, inter)
		}
	}
}

func encodeIntensityFn(e *Encoder, fn world.IntensityFn) {
	e.PutString(fn.ID)
	e.PutF32Slice(fn.Args)
}

func encodeInteractionFn(e *Encoder, fn world.InteractionFn) {
	e.PutString(fn.ID)
	e.PutU32(uint32(fn.TargetItem))
	e.PutF32Slice(fn.Args)
}

// DecodeConfig is EncodeConfig's inverse. Policy maps are left at their
// zero value (all-allowed) since the wire config only carries what a
// client needs to interpret server state, not to reconstruct a world.
func DecodeConfig(d *Decoder) world.Config {
	var cfg world.Config
	cfg.Seed = d.String()
	cfg.PatchSize = int32(d.U32())
	cfg.VisionRange = int32(d.U32())
	cfg.ScentDimensions = int32(d.U32())
	cfg.ColorDimensions = int32(d.U32())
	cfg.ItemTypeCount = int32(d.U32())
	cfg.MCMCIterations = int(d.U32())
	cfg.DeletedItemLifetime = d.U64()
	cfg.ScentDecay = float64(d.F32())
	cfg.ScentDiffusion = float64(d.F32())
	cfg.MovementConflict = world.MovementConflictPolicy(d.U8())

	n := d.U32()
	cfg.ItemTypes = make([]world.ItemType, 0, n)
	for i := uint32(0); i < n; i++ {
		var it world.ItemType
		it.Name = d.String()
		it.ScentVec = d.F32Slice()
		it.ColorVec = d.F32Slice()
		it.RequiredCounts = d.I32Slice()
		it.RequiredCosts = d.I32Slice()
		it.BlocksMovement = d.Bool()
		it.Intensity = decodeIntensityFn(d)
		interCount := d.U32()
		it.Interactions = make([]world.InteractionFn, 0, interCount)
		for j := uint32(0); j < interCount; j++ {
			it.Interactions = append(it.Interactions, decodeInteractionFn(d))
		}
		cfg.ItemTypes = append(cfg.ItemTypes, it)
	}
	return cfg
}

func decodeIntensityFn(d *Decoder) world.IntensityFn {
	return world.IntensityFn{ID: d.String(), Args: d.F32Slice()}
}

func decodeInteractionFn(d *Decoder) world.InteractionFn {
	id := d.String()
	target := int32(d.U32())
	return world.InteractionFn{ID: id, TargetItem: target, Args: d.F32Slice()}
}

// ConnectResponse is CONNECT's reply: client_id, config, current_time.
type ConnectResponse struct {
	Status     world.Status
	ClientID   uint64
	Config     world.Config
	CurrentTime uint64
}

func EncodeConnectResponse(r ConnectResponse) []byte {
	e := NewEncoder(64)
	e.PutU16(r.Status.WireCode())
	e.PutU64(r.ClientID)
	EncodeConfig(e, r.Config)
	e.PutU64(r.CurrentTime)
	return e.Bytes()
}

func DecodeConnectResponse(payload []byte) (ConnectResponse, error) {
	d := NewDecoder(payload)
	var r ConnectResponse
	r.Status = world.StatusFromWireCode(d.U16())
	r.ClientID = d.U64()
	r.Config = DecodeConfig(d)
	r.CurrentTime = d.U64()
	return r, d.Err()
}

// ReconnectRequest/Response.
type ReconnectRequest struct {
	ClientID uint64
}

func EncodeReconnectRequest(r ReconnectRequest) []byte {
	e := NewEncoder(8)
	e.PutU64(r.ClientID)
	return e.Bytes()
}

func DecodeReconnectRequest(payload []byte) (ReconnectRequest, error) {
	d := NewDecoder(payload)
	r := ReconnectRequest{ClientID: d.U64()}
	return r, d.Err()
}

type ReconnectResponse struct {
	Status      world.Status
	CurrentTime uint64
	Agents      []world.AgentState
}

func EncodeReconnectResponse(r ReconnectResponse) []byte {
	e := NewEncoder(64)
	e.PutU16(r.Status.WireCode())
	e.PutU64(r.CurrentTime)
	e.PutU32(uint32(len(r.Agents)))
	for _, a := range r.Agents {
		e.PutU64(a.ID)
		EncodeAgentState(e, a)
	}
	return e.Bytes()
}

func DecodeReconnectResponse(payload []byte) (ReconnectResponse, error) {
	d := NewDecoder(payload)
	var r ReconnectResponse
	r.Status = world.StatusFromWireCode(d.U16())
	r.CurrentTime = d.U64()
	n := d.U32()
	r.Agents = make([]world.AgentState, 0, n)
	for i := uint32(0); i < n; i++ {
		id := d.U64()
		r.Agents = append(r.Agents, DecodeAgentState(d, id))
	}
	return r, d.Err()
}

// AddAgentResponse.
type AddAgentResponse struct {
	Status world.Status
	Agent  world.AgentState
}

func EncodeAddAgentResponse(r AddAgentResponse) []byte {
	e := NewEncoder(32)
	e.PutU16(r.Status.WireCode())
	e.PutU64(r.Agent.ID)
	EncodeAgentState(e, r.Agent)
	return e.Bytes()
}

func DecodeAddAgentResponse(payload []byte) (AddAgentResponse, error) {
	d := NewDecoder(payload)
	var r AddAgentResponse
	r.Status = world.StatusFromWireCode(d.U16())
	id := d.U64()
	r.Agent = DecodeAgentState(d, id)
	return r, d.Err()
}

// RemoveAgentRequest and the shared StatusResponse shape used by
// REMOVE_AGENT/MOVE/TURN/NO_OP/SET_ACTIVE.
type AgentIDRequest struct {
	AgentID uint64
}

func EncodeAgentIDRequest(r AgentIDRequest) []byte {
	e := NewEncoder(8)
	e.PutU64(r.AgentID)
	return e.Bytes()
}

func DecodeAgentIDRequest(payload []byte) (AgentIDRequest, error) {
	d := NewDecoder(payload)
	r := AgentIDRequest{AgentID: d.U64()}
	return r, d.Err()
}

type StatusResponse struct {
	Status world.Status
}

func EncodeStatusResponse(r StatusResponse) []byte {
	e := NewEncoder(2)
	e.PutU16(r.Status.WireCode())
	return e.Bytes()
}

func DecodeStatusResponse(payload []byte) (StatusResponse, error) {
	d := NewDecoder(payload)
	r := StatusResponse{Status: world.StatusFromWireCode(d.U16())}
	return r, d.Err()
}

// MoveRequest.
type MoveRequest struct {
	AgentID   uint64
	Direction world.Direction
	Steps     uint32
}

func EncodeMoveRequest(r MoveRequest) []byte {
	e := NewEncoder(16)
	e.PutU64(r.AgentID)
	e.PutU8(uint8(r.Direction))
	e.PutU32(r.Steps)
	return e.Bytes()
}

func DecodeMoveRequest(payload []byte) (MoveRequest, error) {
	d := NewDecoder(payload)
	r := MoveRequest{AgentID: d.U64(), Direction: world.Direction(d.U8()), Steps: d.U32()}
	return r, d.Err()
}

// TurnRequest.
type TurnRequest struct {
	AgentID uint64
	Turn    world.TurnDirection
}

func EncodeTurnRequest(r TurnRequest) []byte {
	e := NewEncoder(16)
	e.PutU64(r.AgentID)
	e.PutU8(uint8(r.Turn))
	return e.Bytes()
}

func DecodeTurnRequest(payload []byte) (TurnRequest, error) {
	d := NewDecoder(payload)
	r := TurnRequest{AgentID: d.U64(), Turn: world.TurnDirection(d.U8())}
	return r, d.Err()
}

// GetMapRequest/Response.
type GetMapRequest struct {
	BottomLeft   world.Position
	TopRight     world.Position
	IncludeScent bool
}

func EncodeGetMapRequest(r GetMapRequest) []byte {
	e := NewEncoder(40)
	e.PutI64(r.BottomLeft.X)
	e.PutI64(r.BottomLeft.Y)
	e.PutI64(r.TopRight.X)
	e.PutI64(r.TopRight.Y)
	e.PutBool(r.IncludeScent)
	return e.Bytes()
}

func DecodeGetMapRequest(payload []byte) (GetMapRequest, error) {
	d := NewDecoder(payload)
	var r GetMapRequest
	r.BottomLeft = world.Position{X: d.I64(), Y: d.I64()}
	r.TopRight = world.Position{X: d.I64(), Y: d.I64()}
	r.IncludeScent = d.Bool()
	return r, d.Err()
}

type GetMapResponse struct {
	Status world.Status
	Patches []world.PatchView
}

func EncodeGetMapResponse(r GetMapResponse) []byte {
	e := NewEncoder(128)
	e.PutU16(r.Status.WireCode())
	e.PutU32(uint32(len(r.Patches)))
	for _, p := range r.Patches {
		e.PutU32(uint32(p.Key.PX))
		e.PutU32(uint32(p.Key.PY))
		e.PutBool(p.Fixed)
		e.PutU32(uint32(len(p.Items)))
		for _, it := range p.Items {
			e.PutU32(uint32(it.Type))
			e.PutI64(it.CellPosition.X)
			e.PutI64(it.CellPosition.Y)
		}
		e.PutU32(uint32(len(p.RemovedItems)))
		for _, ri := range p.RemovedItems {
			e.PutU32(uint32(ri.Type))
			e.PutI64(ri.Position.X)
			e.PutI64(ri.Position.Y)
			e.PutU64(ri.DeletedTick)
		}
		hasScent := p.Scent != nil
		e.PutBool(hasScent)
		if hasScent {
			e.PutF32Slice(p.Scent)
		}
	}
	return e.Bytes()
}

func DecodeGetMapResponse(payload []byte) (GetMapResponse, error) {
	d := NewDecoder(payload)
	var r GetMapResponse
	r.Status = world.StatusFromWireCode(d.U16())
	n := d.U32()
	r.Patches = make([]world.PatchView, 0, n)
	for i := uint32(0); i < n; i++ {
		var p world.PatchView
		p.Key = world.PatchKey{PX: int32(d.U32()), PY: int32(d.U32())}
		p.Fixed = d.Bool()
		itemCount := d.U32()
		for j := uint32(0); j < itemCount; j++ {
			typ := int32(d.U32())
			pos := world.Position{X: d.I64(), Y: d.I64()}
			p.Items = append(p.Items, world.Item{Type: typ, CellPosition: pos})
		}
		removedCount := d.U32()
		for j := uint32(0); j < removedCount; j++ {
			typ := int32(d.U32())
			pos := world.Position{X: d.I64(), Y: d.I64()}
			tick := d.U64()
			p.RemovedItems = append(p.RemovedItems, world.RemovedItem{Position: pos, Type: typ, DeletedTick: tick})
		}
		if d.Bool() {
			p.Scent = d.F32Slice()
		}
		r.Patches = append(r.Patches, p)
	}
	return r, d.Err()
}

// GetAgentIDsResponse.
type GetAgentIDsResponse struct {
	Status world.Status
	IDs    []uint64
}

func EncodeGetAgentIDsResponse(r GetAgentIDsResponse) []byte {
	e := NewEncoder(16)
	e.PutU16(r.Status.WireCode())
	e.PutU32(uint32(len(r.IDs)))
	for _, id := range r.IDs {
		e.PutU64(id)
	}
	return e.Bytes()
}

func DecodeGetAgentIDsResponse(payload []byte) (GetAgentIDsResponse, error) {
	d := NewDecoder(payload)
	var r GetAgentIDsResponse
	r.Status = world.StatusFromWireCode(d.U16())
	n := d.U32()
	r.IDs = make([]uint64, 0, n)
	for i := uint32(0); i < n; i++ {
		r.IDs = append(r.IDs, d.U64())
	}
	return r, d.Err()
}

// GetAgentStatesRequest/Response.
type GetAgentStatesRequest struct {
	AgentIDs []uint64
}

func EncodeGetAgentStatesRequest(r GetAgentStatesRequest) []byte {
	e := NewEncoder(16)
	e.PutU32(uint32(len(r.AgentIDs)))
	for _, id := range r.AgentIDs {
		e.PutU64(id)
	}
	return e.Bytes()
}

func DecodeGetAgentStatesRequest(payload []byte) (GetAgentStatesRequest, error) {
	d := NewDecoder(payload)
	n := d.U32()
	r := GetAgentStatesRequest{AgentIDs: make([]uint64, 0, n)}
	for i := uint32(0); i < n; i++ {
		r.AgentIDs = append(r.AgentIDs, d.U64())
	}
	return r, d.Err()
}

type GetAgentStatesResponse struct {
	Status world.Status
	States []world.AgentState
}

func EncodeGetAgentStatesResponse(r GetAgentStatesResponse) []byte {
	e := NewEncoder(64)
	e.PutU16(r.Status.WireCode())
	e.PutU32(uint32(len(r.States)))
	for _, s := range r.States {
		e.PutU64(s.ID)
		EncodeAgentState(e, s)
	}
	return e.Bytes()
}

func DecodeGetAgentStatesResponse(payload []byte) (GetAgentStatesResponse, error) {
	d := NewDecoder(payload)
	var r GetAgentStatesResponse
	r.Status = world.StatusFromWireCode(d.U16())
	n := d.U32()
	r.States = make([]world.AgentState, 0, n)
	for i := uint32(0); i < n; i++ {
		id := d.U64()
		r.States = append(r.States, DecodeAgentState(d, id))
	}
	return r, d.Err()
}

// SetActiveRequest.
type SetActiveRequest struct {
	AgentID uint64
	Active  bool
}

func EncodeSetActiveRequest(r SetActiveRequest) []byte {
	e := NewEncoder(16)
	e.PutU64(r.AgentID)
	e.PutBool(r.Active)
	return e.Bytes()
}

func DecodeSetActiveRequest(payload []byte) (SetActiveRequest, error) {
	d := NewDecoder(payload)
	r := SetActiveRequest{AgentID: d.U64(), Active: d.Bool()}
	return r, d.Err()
}

// IsActiveResponse.
type IsActiveResponse struct {
	Status world.Status
	Active bool
}

func EncodeIsActiveResponse(r IsActiveResponse) []byte {
	e := NewEncoder(8)
	e.PutU16(r.Status.WireCode())
	e.PutBool(r.Active)
	return e.Bytes()
}

func DecodeIsActiveResponse(payload []byte) (IsActiveResponse, error) {
	d := NewDecoder(payload)
	r := IsActiveResponse{Status: world.StatusFromWireCode(d.U16()), Active: d.Bool()}
	return r, d.Err()
}

// StepBroadcast is the unsolicited server->client STEP frame.
type StepBroadcast struct {
	NewTime uint64
	Agents  []world.AgentState
}

func EncodeStepBroadcast(r StepBroadcast) []byte {
	e := NewEncoder(64)
	e.PutU64(r.NewTime)
	e.PutU32(uint32(len(r.Agents)))
	for _, a := range r.Agents {
		e.PutU64(a.ID)
		EncodeAgentState(e, a)
	}
	return e.Bytes()
}

func DecodeStepBroadcast(payload []byte) (StepBroadcast, error) {
	d := NewDecoder(payload)
	var r StepBroadcast
	r.NewTime = d.U64()
	n := d.U32()
	r.Agents = make([]world.AgentState, 0, n)
	for i := uint32(0); i < n; i++ {
		id := d.U64()
		r.Agents = append(r.Agents, DecodeAgentState(d, id))
	}
	return r, d.Err()
}
