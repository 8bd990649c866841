package world

// PatchKey identifies a patch by its integer patch coordinates.
type PatchKey struct {
	PX int32
	PY int32
}

// Patch is an N×N square of cells: the unit of lazy world generation (§3).
type Patch struct {
	Key   PatchKey
	Fixed bool

	Items []Item

	// Scent is double-buffered: scent[active] is read by callers during a
	// tick, scent[1-active] is written by the next Advance so reads within
	// a tick observe a consistent pre-tick field (§4.2).
	scent       [2][]float32 // each len N*N*S
	activeScent int

	RemovedItems []RemovedItem

	// LastAdvancedTick records the tick this patch's scent field was last
	// caught up to, enabling lazy propagation on re-entry to the active
	// set (§4.2).
	LastAdvancedTick uint64
}

// newPatch allocates a patch's scent buffers for the given config.
func newPatch(key PatchKey, cfg Config) *Patch {
	n := int(cfg.PatchSize)
	s := int(cfg.ScentDimensions)
	size := n * n * s
	return &Patch{
		Key:   key,
		Items: make([]Item, 0, 4),
		scent: [2][]float32{
			make([]float32, size),
			make([]float32, size),
		},
	}
}

func (p *Patch) scentIndex(cfg Config, localX, localY int32, dim int32) int {
	n := int(cfg.PatchSize)
	s := int(cfg.ScentDimensions)
	return (int(localY)*n+int(localX))*s + int(dim)
}

// ScentAt returns the current (active buffer) scent vector for a local cell.
func (p *Patch) ScentAt(cfg Config, localX, localY int32) []float32 {
	s := int(cfg.ScentDimensions)
	base := p.scentIndex(cfg, localX, localY, 0)
	return p.scent[p.activeScent][base : base+s]
}

func (p *Patch) writeScentAt(cfg Config, localX, localY int32, vec []float32) {
	s := int(cfg.ScentDimensions)
	base := p.scentIndex(cfg, localX, localY, 0)
	copy(p.scent[1-p.activeScent][base:base+s], vec)
}

// swapScentBuffers promotes the just-written buffer to active, per §4.2's
// double-buffered update.
func (p *Patch) swapScentBuffers() {
	p.activeScent = 1 - p.activeScent
}

// ItemAt returns the item occupying a cell, if any.
func (p *Patch) ItemAt(cell Position) (Item, bool) {
	for _, it := range p.Items {
		if it.CellPosition == cell {
			return it, true
		}
	}
	return Item{}, false
}

// removeItemAt removes the item at a cell and records it in RemovedItems.
func (p *Patch) removeItemAt(cell Position, tick uint64) (Item, bool) {
	for i, it := range p.Items {
		if it.CellPosition == cell {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			p.RemovedItems = append(p.RemovedItems, RemovedItem{
				Position:    cell,
				Type:        it.Type,
				DeletedTick: tick,
			})
			return it, true
		}
	}
	return Item{}, false
}

// pruneRemovedItems drops removed-item records older than
// deleted_item_lifetime ticks (compacted at the start of each tick per §5).
func (p *Patch) pruneRemovedItems(currentTick uint64, lifetime uint64) {
	if len(p.RemovedItems) == 0 {
		return
	}
	kept := p.RemovedItems[:0]
	for _, ri := range p.RemovedItems {
		if currentTick-ri.DeletedTick < lifetime {
			kept = append(kept, ri)
		}
	}
	p.RemovedItems = kept
}

// LocalCell converts a global position into this patch's local coordinates.
func LocalCell(pos Position, key PatchKey, patchSize int32) (int32, int32) {
	n := int64(patchSize)
	lx := pos.X - int64(key.PX)*n
	ly := pos.Y - int64(key.PY)*n
	return int32(lx), int32(ly)
}
