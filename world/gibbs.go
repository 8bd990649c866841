package world

import "math"

// gibbsSampler proposes/accepts item placements using intensity + pairwise
// interaction energies (§4.1).
type gibbsSampler struct {
	cfg      Config
	registry *FunctionRegistry
}

func newGibbsSampler(cfg Config, registry *FunctionRegistry) *gibbsSampler {
	return &gibbsSampler{cfg: cfg, registry: registry}
}

// workingCell is one cell in the 3×3 working set being swept.
type workingCell struct {
	patch *Patch
	key   PatchKey
	local [2]int32 // local x, y within patch
	cell  Position // global cell position
	fixed bool     // true if this cell's patch is already fixed (skip)
}

// sweep performs one full Gibbs sweep over every non-fixed cell in the
// working set (§4.1: "for each cell performs a Gibbs update").
func (g *gibbsSampler) sweep(cells []workingCell, occupied map[Position]int32, rootSeed string, centerPX, centerPY int32, iteration int) {
	n := len(g.cfg.ItemTypes)
	energies := make([]float64, n+1) // last slot is "empty"
	for idx, wc := range cells {
		if wc.fixed {
			continue
		}
		for t := 0; t < n; t++ {
			energies[t] = g.energy(int32(t), wc.cell, occupied)
		}
		energies[n] = 0 // "empty" candidate has zero energy contribution

		rng := GibbsCellRNG(rootSeed, centerPX, centerPY, iteration, idx)
		choice := sampleCategorical(energies, rng.Float64())
		if prev, had := occupied[wc.cell]; had {
			delete(occupied, wc.cell)
			_ = prev
		}
		if choice < n {
			occupied[wc.cell] = int32(choice)
		}
	}
}

// energy computes E(c, t) = intensity_fn_t(c) + sum of pairwise interaction
// energies against every other currently-placed item (§4.1's formula).
func (g *gibbsSampler) energy(t int32, cell Position, occupied map[Position]int32) float64 {
	it := g.cfg.ItemTypes[t]
	e := float64(g.registry.EvalIntensity(it.Intensity, cell.X, cell.Y))
	for otherCell, otherType := range occupied {
		if otherCell == cell {
			continue
		}
		for _, inter := range it.Interactions {
			if inter.TargetItem == otherType {
				e += float64(g.registry.EvalInteraction(inter, cell.X, cell.Y, otherCell.X, otherCell.Y))
			}
		}
	}
	return e
}

// sampleCategorical draws an index with probability ∝ exp(-E_i), using u
// (assumed uniform on [0,1)) as the source of randomness so the caller
// fully controls the RNG stream (determinism per §4.1).
func sampleCategorical(energies []float64, u float64) int {
	weights := make([]float64, len(energies))
	var total float64
	minE := math.Inf(1)
	for _, e := range energies {
		if e < minE {
			minE = e
		}
	}
	for i, e := range energies {
		w := math.Exp(-(e - minE))
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return len(energies) - 1
	}
	target := u * total
	var cum float64
	for i, w := range weights {
		cum += w
		if target <= cum {
			return i
		}
	}
	return len(energies) - 1
}
