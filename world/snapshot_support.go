package world

// PatchExport is a fixed patch's full persistent state, as needed by the
// snapshot codec (§4.7): position, items, the current (active-buffer)
// scent grid flattened row-major, the removed-item list, and the tick the
// scent field was last advanced to.
type PatchExport struct {
	Key              PatchKey
	Items            []Item
	RemovedItems     []RemovedItem
	Scent            []float32
	LastAdvancedTick uint64
}

// AgentExport is an agent's persistent state. Scent/vision caches are
// intentionally excluded — §4.7 calls them recomputable, so restore derives
// them fresh from world state rather than serializing them.
type AgentExport struct {
	ID        uint64
	Position  Position
	Facing    Direction
	Active    bool
	Inventory []uint32
}

// ExportPatches returns every fixed patch's full state for serialization.
func (w *World) ExportPatches() []PatchExport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fixed := w.store.Snapshot()
	out := make([]PatchExport, 0, len(fixed))
	for _, p := range fixed {
		out = append(out, PatchExport{
			Key:              p.Key,
			Items:            append([]Item(nil), p.Items...),
			RemovedItems:     append([]RemovedItem(nil), p.RemovedItems...),
			Scent:            flattenScent(p, w.cfg),
			LastAdvancedTick: p.LastAdvancedTick,
		})
	}
	return out
}

// ExportAgents returns every agent's persistent state for serialization.
func (w *World) ExportAgents() []AgentExport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	agents := w.registry.All()
	out := make([]AgentExport, 0, len(agents))
	for _, a := range agents {
		a.mu.Lock()
		out = append(out, AgentExport{
			ID:        a.ID,
			Position:  a.Position,
			Facing:    a.Facing,
			Active:    a.Active,
			Inventory: append([]uint32(nil), a.Inventory...),
		})
		a.mu.Unlock()
	}
	return out
}

// NextAgentID returns the registry's next-to-allocate agent id.
func (w *World) NextAgentID() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.registry.nextID
}

// Restore rebuilds a world from a snapshot's decoded components, bypassing
// Gibbs sampling: every patch arrives already fixed, and agent scent/vision
// caches are recomputed rather than restored.
func Restore(cfg Config, clock uint64, nextAgentID uint64, patches []PatchExport, agents []AgentExport) (*World, error) {
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clock = clock
	w.store.restoreFixed(patches, cfg)
	w.registry.restore(agents, cfg, nextAgentID)
	for _, a := range w.registry.All() {
		w.refreshAgentCachesLocked(a)
	}
	return w, nil
}

// restoreFixed repopulates the fixed-patch map directly from decoded
// exports, reconstructing each patch's double-buffered scent field with
// both buffers equal to the serialized (pre-tick) grid.
func (s *PatchStore) restoreFixed(patches []PatchExport, cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pe := range patches {
		p := newPatch(pe.Key, cfg)
		p.Fixed = true
		p.Items = append([]Item(nil), pe.Items...)
		p.RemovedItems = append([]RemovedItem(nil), pe.RemovedItems...)
		p.LastAdvancedTick = pe.LastAdvancedTick
		copy(p.scent[0], pe.Scent)
		copy(p.scent[1], pe.Scent)
		s.fixed[pe.Key] = p
	}
}

// restore repopulates the registry directly from decoded agent exports.
func (r *AgentRegistry) restore(agents []AgentExport, cfg Config, nextID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[uint64]*Agent, len(agents))
	for _, ae := range agents {
		a := newAgent(ae.ID, ae.Position, ae.Facing, cfg)
		a.Active = ae.Active
		copy(a.Inventory, ae.Inventory)
		r.agents[ae.ID] = a
	}
	r.nextID = nextID
}
