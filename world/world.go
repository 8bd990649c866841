package world

import "sync"

// World composes the Patch Store, Gibbs Sampler, Scent Field, and Agent
// Registry into the single coherent simulation surface described by §4.3.
// The writer lock (mu) is held for the duration of Resolving and of
// snapshot I/O (§5's shared-resource policy); get_map takes the read lock
// only, and get_agent_* reads go through the registry and each agent's own
// mutex.
type World struct {
	mu sync.RWMutex

	cfg          Config
	funcRegistry *FunctionRegistry
	store        *PatchStore
	scent        *scentField
	registry     *AgentRegistry

	clock uint64
}

// New constructs a world from cfg, normalizing it first. InvalidConfiguration
// is fatal at construction per §7.
func New(cfg Config) (*World, error) {
	normalized, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	funcRegistry := NewFunctionRegistry()
	store := newPatchStore(normalized, funcRegistry)
	w := &World{
		cfg:          normalized,
		funcRegistry: funcRegistry,
		store:        store,
		registry:     newAgentRegistry(),
	}
	w.scent = newScentField(normalized, store)
	return w, nil
}

// Config returns the normalized configuration this world was built from.
func (w *World) Config() Config {
	return w.cfg
}

// FunctionRegistry exposes the intensity/interaction evaluator registry so
// callers (e.g. a config loader) can register custom functions before the
// first patch materializes.
func (w *World) FunctionRegistry() *FunctionRegistry {
	return w.funcRegistry
}

// Clock returns the current tick count.
func (w *World) Clock() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clock
}

// GetFixedPatch returns (materializing if necessary) the fixed patch at
// (px, py).
func (w *World) GetFixedPatch(px, py int32) *Patch {
	return w.store.GetFixedPatch(px, py)
}

// PatchView is the client/snapshot-facing projection of a patch (§4.3).
type PatchView struct {
	Key          PatchKey
	Fixed        bool
	Items        []Item
	RemovedItems []RemovedItem
	Scent        []float32 // nil unless include_scent was requested
}

// GetMap returns a view of the patches overlapping the inclusive rectangle
// [bl, tr]. Patches fully contained in the rectangle are materialized and
// fixed; a patch only touching its boundary is returned as the store
// already holds it (fixed or provisional, without forcing Gibbs
// materialization), and is left out of the result when the store holds no
// patch for it yet (§4.3).
func (w *World) GetMap(bl, tr Position, includeScent bool) []PatchView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := w.cfg.PatchSize
	pxMin, pyMin := bl.PatchCoord(n)
	pxMax, pyMax := tr.PatchCoord(n)

	var views []PatchView
	for py := pyMin; py <= pyMax; py++ {
		for px := pxMin; px <= pxMax; px++ {
			key := PatchKey{PX: px, PY: py}
			cellMinX, cellMinY := int64(px)*int64(n), int64(py)*int64(n)
			cellMaxX, cellMaxY := cellMinX+int64(n)-1, cellMinY+int64(n)-1
			fullyContained := cellMinX >= bl.X && cellMaxX <= tr.X && cellMinY >= bl.Y && cellMaxY <= tr.Y

			var patch *Patch
			var fixed bool
			if fullyContained {
				patch = w.store.GetFixedPatch(px, py)
				fixed = true
			} else {
				p, ok := w.store.NeighborPatch(key)
				if !ok {
					continue
				}
				patch = p
				fixed = patch.Fixed
			}

			view := PatchView{
				Key:          key,
				Fixed:        fixed,
				Items:        append([]Item(nil), patch.Items...),
				RemovedItems: append([]RemovedItem(nil), patch.RemovedItems...),
			}
			if includeScent {
				view.Scent = flattenScent(patch, w.cfg)
			}
			views = append(views, view)
		}
	}
	return views
}

func flattenScent(p *Patch, cfg Config) []float32 {
	n := int(cfg.PatchSize)
	s := int(cfg.ScentDimensions)
	out := make([]float32, 0, n*n*s)
	for ly := int32(0); ly < int32(n); ly++ {
		for lx := int32(0); lx < int32(n); lx++ {
			out = append(out, p.ScentAt(cfg, lx, ly)...)
		}
	}
	return out
}

// AddAgent registers a new agent at a deterministic spawn position (the
// wire ADD_AGENT request carries no position per §6, so the server owns
// placement) and returns it. The patch under the agent is materialized
// eagerly so its first vision/scent refresh has real data.
func (w *World) AddAgent() *Agent {
	w.mu.Lock()
	defer w.mu.Unlock()

	spawn := w.spawnPosition()
	px, py := spawn.PatchCoord(w.cfg.PatchSize)
	w.store.GetFixedPatch(px, py)

	agent := w.registry.Add(spawn, DirectionUp, w.cfg)
	w.refreshAgentCachesLocked(agent)
	return agent
}

// maxSpawnRingSearch bounds spawnPosition's outward search so a
// pathologically dense or blocked region can't spin forever.
const maxSpawnRingSearch = 10000

// spawnPosition picks the closest unoccupied, unblocked cell to the
// origin, scanning outward ring by ring in a fixed clockwise order so
// placement is a pure function of which cells are already taken (P2: no
// two agents ever occupy the same cell).
func (w *World) spawnPosition() Position {
	agents := w.registry.All()
	occupied := make(map[Position]bool, len(agents))
	for _, a := range agents {
		a.mu.Lock()
		occupied[a.Position] = true
		a.mu.Unlock()
	}

	for r := int64(0); r <= maxSpawnRingSearch; r++ {
		for _, cell := range ringCells(r) {
			if occupied[cell] {
				continue
			}
			if w.cellBlocked(cell) {
				continue
			}
			return cell
		}
	}
	// Unreachable for any sane configuration: the grid is infinite and
	// the live agent count is finite, so some ring always has room.
	return Position{X: maxSpawnRingSearch, Y: maxSpawnRingSearch}
}

// ringCells returns every cell at Chebyshev distance r from the origin, in
// a fixed clockwise order starting from the top edge.
func ringCells(r int64) []Position {
	if r == 0 {
		return []Position{{X: 0, Y: 0}}
	}
	cells := make([]Position, 0, 8*r)
	for x := -r; x <= r; x++ {
		cells = append(cells, Position{X: x, Y: r})
	}
	for y := r - 1; y >= -r; y-- {
		cells = append(cells, Position{X: r, Y: y})
	}
	for x := r - 1; x >= -r; x-- {
		cells = append(cells, Position{X: x, Y: -r})
	}
	for y := -r + 1; y <= r-1; y++ {
		cells = append(cells, Position{X: -r, Y: y})
	}
	return cells
}

// RemoveAgent deregisters an agent.
func (w *World) RemoveAgent(id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.registry.Remove(id) {
		return StatusInvalidAgentID.Errf("no agent with id %d", id)
	}
	return nil
}

// Agent returns the agent for id.
func (w *World) Agent(id uint64) (*Agent, error) {
	a, ok := w.registry.Get(id)
	if !ok {
		return nil, StatusInvalidAgentID.Errf("no agent with id %d", id)
	}
	return a, nil
}

// AgentIDs returns every currently-registered agent id.
func (w *World) AgentIDs() []uint64 {
	return w.registry.IDs()
}

// AgentStates returns a snapshot of each requested agent's client-facing
// state, in the same order as ids.
func (w *World) AgentStates(ids []uint64) ([]AgentState, error) {
	out := make([]AgentState, 0, len(ids))
	for _, id := range ids {
		a, ok := w.registry.Get(id)
		if !ok {
			return nil, StatusInvalidAgentID.Errf("no agent with id %d", id)
		}
		out = append(out, a.Snapshot())
	}
	return out, nil
}

// SetActive flips an agent's participation in future ticks (§4.4:
// "removes the agent from the required-set for the next tick").
func (w *World) SetActive(id uint64, active bool) error {
	if !w.registry.SetActive(id, active) {
		return StatusInvalidAgentID.Errf("no agent with id %d", id)
	}
	return nil
}

// IsActive reports whether an agent participates in ticks.
func (w *World) IsActive(id uint64) (bool, error) {
	active, ok := w.registry.IsActive(id)
	if !ok {
		return false, StatusInvalidAgentID.Errf("no agent with id %d", id)
	}
	return active, nil
}

// cellBlocked reports whether pos holds a blocks_movement item. The patch
// containing pos is materialized as a fixed patch if it is not fixed yet.
func (w *World) cellBlocked(pos Position) bool {
	px, py := pos.PatchCoord(w.cfg.PatchSize)
	patch := w.store.GetFixedPatch(px, py)
	it, ok := patch.ItemAt(pos)
	if !ok {
		return false
	}
	return w.cfg.ItemTypes[it.Type].BlocksMovement
}

// collectAt applies §4.3's collection rule for an agent now resting at
// pos: the first eligible non-blocking item present is collected.
func (w *World) collectAt(agent *Agent, pos Position, tick uint64) {
	px, py := pos.PatchCoord(w.cfg.PatchSize)
	patch := w.store.GetFixedPatch(px, py)
	it, ok := patch.ItemAt(pos)
	if !ok {
		return
	}
	itemType := w.cfg.ItemTypes[it.Type]
	if itemType.BlocksMovement {
		return
	}

	agent.mu.Lock()
	eligible := true
	for u, required := range itemType.RequiredCounts {
		if int64(agent.Inventory[u]) < int64(required) {
			eligible = false
			break
		}
	}
	if eligible {
		for u, cost := range itemType.RequiredCosts {
			agent.Inventory[u] -= uint32(cost)
		}
		agent.Inventory[it.Type]++
	}
	agent.mu.Unlock()

	if eligible {
		patch.removeItemAt(pos, tick)
	}
}

// refreshAgentCachesLocked recomputes an agent's scent/vision caches from
// the current (post-resolve) world state. Must be called with w.mu held.
func (w *World) refreshAgentCachesLocked(agent *Agent) {
	agent.mu.Lock()
	defer agent.mu.Unlock()

	px, py := agent.Position.PatchCoord(w.cfg.PatchSize)
	patch := w.store.GetFixedPatch(px, py)
	lx, ly := LocalCell(agent.Position, patch.Key, w.cfg.PatchSize)
	copy(agent.ScentCache, patch.ScentAt(w.cfg, lx, ly))

	r := int(w.cfg.VisionRange)
	c := int(w.cfg.ColorDimensions)
	side := 2*r + 1
	idx := 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			cell := agent.Position.Add(int64(dx), int64(dy))
			vec := w.colorAt(cell)
			base := idx * c
			copy(agent.VisionCache[base:base+c], vec)
			idx++
		}
	}
	_ = side
}

// colorAt returns the color/vision contribution of whatever item occupies
// cell. §2's data flow requires the coordinator to lazily resample any
// patch newly intersected by a vision window, so this forces the
// containing patch to its fixed, Gibbs-materialized state rather than
// reading whatever provisional (and LRU-evictable) data NeighborPatch
// would return.
func (w *World) colorAt(cell Position) []float32 {
	c := int(w.cfg.ColorDimensions)
	px, py := cell.PatchCoord(w.cfg.PatchSize)
	patch := w.store.GetFixedPatch(px, py)
	it, ok := patch.ItemAt(cell)
	if !ok {
		return make([]float32, c)
	}
	vec := w.cfg.ItemTypes[it.Type].ColorVec
	out := make([]float32, c)
	copy(out, vec)
	return out
}
