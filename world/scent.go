package world

// scentField drives the §4.2 decay/diffusion/afterglow update over the
// patches held by a PatchStore. It has no state of its own beyond config —
// per-patch state (the double scent buffer, LastAdvancedTick,
// RemovedItems) lives on Patch so a patch's scent travels with it through
// the store regardless of active-set membership.
type scentField struct {
	cfg   Config
	store *PatchStore
}

func newScentField(cfg Config, store *PatchStore) *scentField {
	return &scentField{cfg: cfg, store: store}
}

// Advance runs one tick of the scent update for every patch in activeKeys,
// catching up any patch that was outside the active set on prior ticks via
// a straightforward per-tick loop (§4.2: "equivalent closed form not
// required; straight forward loop is acceptable").
func (sf *scentField) Advance(currentTick uint64, activeKeys map[PatchKey]struct{}) {
	for key := range activeKeys {
		patch, ok := sf.store.FixedPatchIfPresent(key)
		if !ok {
			continue
		}
		from := patch.LastAdvancedTick
		if from == 0 && currentTick > 0 {
			from = currentTick - 1
		}
		for t := from; t < currentTick; t++ {
			sf.stepPatch(patch, t+1)
		}
		patch.LastAdvancedTick = currentTick
	}
}

// stepPatch advances one patch's scent field by exactly one tick, ending
// at tick `tick`.
func (sf *scentField) stepPatch(patch *Patch, tick uint64) {
	n := sf.cfg.PatchSize
	s := int(sf.cfg.ScentDimensions)
	decay := sf.cfg.ScentDecay
	diffusion := sf.cfg.ScentDiffusion

	itemContribution := sf.itemContributions(patch)

	for ly := int32(0); ly < n; ly++ {
		for lx := int32(0); lx < n; lx++ {
			cell := patch.ScentAt(sf.cfg, lx, ly)
			next := make([]float32, s)
			for d := 0; d < s; d++ {
				next[d] = float32(decay) * cell[d]
			}

			for _, delta := range [4][2]int32{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
				neighborVec, ok := sf.neighborScent(patch, lx+delta[0], ly+delta[1])
				if !ok {
					continue
				}
				for d := 0; d < s; d++ {
					next[d] += float32(diffusion) * (neighborVec[d] - cell[d])
				}
			}

			if contrib, ok := itemContribution[[2]int32{lx, ly}]; ok {
				for d := 0; d < s && d < len(contrib); d++ {
					next[d] += contrib[d]
				}
			}

			patch.writeScentAt(sf.cfg, lx, ly, next)
		}
	}

	patch.pruneRemovedItems(tick, sf.cfg.DeletedItemLifetime)
	patch.swapScentBuffers()
}

// itemContributions computes, per local cell, the sum of present items'
// scent vectors plus the linearly-fading afterglow of recently removed
// items (§4.2's binding choice of linear fade).
func (sf *scentField) itemContributions(patch *Patch) map[[2]int32][]float32 {
	s := int(sf.cfg.ScentDimensions)
	out := make(map[[2]int32][]float32)

	add := func(local [2]int32, vec []float32, scale float32) {
		existing, ok := out[local]
		if !ok {
			existing = make([]float32, s)
			out[local] = existing
		}
		for d := 0; d < s && d < len(vec); d++ {
			existing[d] += vec[d] * scale
		}
	}

	for _, it := range patch.Items {
		lx, ly := LocalCell(it.CellPosition, patch.Key, sf.cfg.PatchSize)
		if int(it.Type) < 0 || int(it.Type) >= len(sf.cfg.ItemTypes) {
			continue
		}
		add([2]int32{lx, ly}, sf.cfg.ItemTypes[it.Type].ScentVec, 1)
	}

	for _, ri := range patch.RemovedItems {
		age := patch.LastAdvancedTick - ri.DeletedTick
		if patch.LastAdvancedTick < ri.DeletedTick {
			age = 0
		}
		lifetime := sf.cfg.DeletedItemLifetime
		if age >= lifetime {
			continue
		}
		fade := float32(1) - float32(age)/float32(lifetime)
		if int(ri.Type) < 0 || int(ri.Type) >= len(sf.cfg.ItemTypes) {
			continue
		}
		lx, ly := LocalCell(ri.Position, patch.Key, sf.cfg.PatchSize)
		add([2]int32{lx, ly}, sf.cfg.ItemTypes[ri.Type].ScentVec, fade)
	}

	return out
}

// neighborScent returns the active-buffer scent vector of a cell, possibly
// in an adjacent patch, without triggering materialization of patches that
// don't exist yet. For such a patch it reports false, and the caller leaves
// that neighbor out of the diffusion sum.
func (sf *scentField) neighborScent(patch *Patch, lx, ly int32) ([]float32, bool) {
	n := sf.cfg.PatchSize
	if lx >= 0 && lx < n && ly >= 0 && ly < n {
		return patch.ScentAt(sf.cfg, lx, ly), true
	}

	dpx, dpy := int32(0), int32(0)
	nlx, nly := lx, ly
	if lx < 0 {
		dpx = -1
		nlx = lx + n
	} else if lx >= n {
		dpx = 1
		nlx = lx - n
	}
	if ly < 0 {
		dpy = -1
		nly = ly + n
	} else if ly >= n {
		dpy = 1
		nly = ly - n
	}

	neighborKey := PatchKey{PX: patch.Key.PX + dpx, PY: patch.Key.PY + dpy}
	neighborPatch, ok := sf.store.NeighborPatch(neighborKey)
	if !ok {
		return nil, false
	}
	return neighborPatch.ScentAt(sf.cfg, nlx, nly), true
}
