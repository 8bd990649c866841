package world

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultProvisionalCacheSize = 256

// PatchStore is a hash map from patch coordinates to materialized patches
// (§9: "store patches in a hash map keyed by (px, py); avoid pointer
// graphs — reference patches by key"). Fixed patches are held forever
// (P3); provisional (boundary-only) patches are kept in a bounded LRU so
// memory doesn't grow without limit across a long-running world.
type PatchStore struct {
	mu sync.RWMutex

	cfg      Config
	sampler  *gibbsSampler

	fixed       map[PatchKey]*Patch
	provisional *lru.Cache[PatchKey, *Patch]
}

func newPatchStore(cfg Config, registry *FunctionRegistry) *PatchStore {
	cache, _ := lru.New[PatchKey, *Patch](defaultProvisionalCacheSize)
	return &PatchStore{
		cfg:         cfg,
		sampler:     newGibbsSampler(cfg, registry),
		fixed:       make(map[PatchKey]*Patch),
		provisional: cache,
	}
}

// neighborKeys returns the 3×3 neighborhood (including center) of a patch
// coordinate, per §4.1's working-set definition.
func neighborKeys(px, py int32) []PatchKey {
	keys := make([]PatchKey, 0, 9)
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			keys = append(keys, PatchKey{PX: px + dx, PY: py + dy})
		}
	}
	return keys
}

// lookupLocked returns a patch by key if it already exists (fixed or
// provisional), without creating one.
func (s *PatchStore) lookupLocked(key PatchKey) (*Patch, bool) {
	if p, ok := s.fixed[key]; ok {
		return p, true
	}
	if p, ok := s.provisional.Get(key); ok {
		return p, true
	}
	return nil, false
}

// ensureProvisionalLocked returns the patch for key, creating a fresh
// provisional patch if none exists yet.
func (s *PatchStore) ensureProvisionalLocked(key PatchKey) *Patch {
	if p, ok := s.lookupLocked(key); ok {
		return p
	}
	p := newPatch(key, s.cfg)
	s.provisional.Add(key, p)
	return p
}

// GetFixedPatch returns the fixed patch at (px, py), materializing it (and
// its working-set neighbors, provisionally) via Gibbs sampling if it has
// not been seen before (§4.1's contract).
func (s *PatchStore) GetFixedPatch(px, py int32) *Patch {
	key := PatchKey{PX: px, PY: py}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.fixed[key]; ok {
		return p
	}

	s.materializeLocked(key)
	p := s.fixed[key]
	return p
}

// materializeLocked runs the Gibbs sampler over the working set centered
// on key and promotes key's patch to fixed (§4.1).
func (s *PatchStore) materializeLocked(center PatchKey) {
	keys := neighborKeys(center.PX, center.PY)
	cells := make([]workingCell, 0, int(s.cfg.PatchSize)*int(s.cfg.PatchSize)*len(keys))
	occupied := make(map[Position]int32)

	for _, key := range keys {
		fixedPatch, isFixed := s.fixed[key]
		var patch *Patch
		if isFixed {
			patch = fixedPatch
		} else {
			patch = s.ensureProvisionalLocked(key)
		}
		for _, it := range patch.Items {
			occupied[it.CellPosition] = it.Type
		}
		n := s.cfg.PatchSize
		for ly := int32(0); ly < n; ly++ {
			for lx := int32(0); lx < n; lx++ {
				cell := Position{
					X: int64(key.PX)*int64(n) + int64(lx),
					Y: int64(key.PY)*int64(n) + int64(ly),
				}
				cells = append(cells, workingCell{
					patch: patch,
					key:   key,
					local: [2]int32{lx, ly},
					cell:  cell,
					fixed: isFixed,
				})
			}
		}
	}

	for iter := 0; iter < s.cfg.MCMCIterations; iter++ {
		s.sampler.sweep(cells, occupied, s.cfg.Seed, center.PX, center.PY, iter)
	}

	// Rebuild each non-fixed patch's item list from the final occupied map.
	byPatch := make(map[PatchKey][]Item)
	for cell, t := range occupied {
		px, py := cell.PatchCoord(s.cfg.PatchSize)
		k := PatchKey{PX: px, PY: py}
		byPatch[k] = append(byPatch[k], Item{Type: t, CellPosition: cell})
	}
	for _, key := range keys {
		if _, isFixed := s.fixed[key]; isFixed {
			continue
		}
		patch := s.ensureProvisionalLocked(key)
		patch.Items = byPatch[key]
	}

	// Promote the center patch to fixed; neighbors stay provisional.
	centerPatch := s.ensureProvisionalLocked(center)
	centerPatch.Fixed = true
	s.fixed[center] = centerPatch
	s.provisional.Remove(center)
}

// Snapshot returns every currently-fixed patch, used by the world's
// snapshot export.
func (s *PatchStore) Snapshot() []*Patch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Patch, 0, len(s.fixed))
	for _, p := range s.fixed {
		out = append(out, p)
	}
	return out
}

// AllFixedKeys returns the keys of every fixed patch.
func (s *PatchStore) AllFixedKeys() []PatchKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PatchKey, 0, len(s.fixed))
	for k := range s.fixed {
		out = append(out, k)
	}
	return out
}

// FixedPatchIfPresent returns a fixed patch without materializing it.
func (s *PatchStore) FixedPatchIfPresent(key PatchKey) (*Patch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.fixed[key]
	return p, ok
}

// NeighborPatch returns the fixed patch for key if one exists, a
// provisional patch otherwise without forcing materialization — used by
// the scent diffusion update, which reads neighbor cells but must not
// trigger Gibbs sampling as a side effect of decay (§4.2 is silent on this,
// but re-running Gibbs on every tick's diffusion read would violate P3's
// append-only guarantee for fixed patches and blow up the tick budget).
func (s *PatchStore) NeighborPatch(key PatchKey) (*Patch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(key)
}
