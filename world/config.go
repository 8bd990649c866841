package world

import "time"

// DefaultSeed is used when Config.Seed is left empty.
const DefaultSeed = "jbw-default-seed"

// Config captures every tunable of a JBW simulation, grounded on the
// teacher's worldConfig/defaultWorldConfig/normalized() shape.
type Config struct {
	Seed string

	// PatchSize is N: patches cover an N×N cell region.
	PatchSize int32

	// VisionRange is R: an agent's vision window is (2R+1)×(2R+1) cells.
	VisionRange int32

	// ScentDimensions is S, the per-cell scent vector length.
	ScentDimensions int32
	// ColorDimensions is C, the per-cell vision/color vector length.
	ColorDimensions int32

	// ItemTypeCount is T, the number of distinct item types (and so the
	// width of every inventory/required_counts/required_costs vector).
	ItemTypeCount int32

	// MCMCIterations is the number of Gibbs sweeps performed over a
	// patch's working set before it is promoted to fixed.
	MCMCIterations int

	// DeletedItemLifetime is the number of ticks a removed item's
	// afterglow scent contribution persists.
	DeletedItemLifetime uint64

	// ScentDecay and ScentDiffusion parameterize §4.2's update.
	ScentDecay     float64
	ScentDiffusion float64

	// MovementConflict selects the §4.4 conflict-resolution policy.
	MovementConflict MovementConflictPolicy

	// MovePolicy/TurnPolicy gate submitted actions before they are even
	// queued (§3's ActionPolicy).
	MovePolicy map[Direction]ActionPolicy
	TurnPolicy map[TurnDirection]ActionPolicy

	// ItemTypes is the closed catalog of placeable item types.
	ItemTypes []ItemType

	// TickInterval is a wall-clock tick cadence. It is defaulted by
	// normalized and carried through snapshots, but nothing here paces
	// ticks by it: the coordinator resolves a tick as soon as every
	// required agent has acted.
	TickInterval time.Duration
}

// normalized fills defaults and clamps invalid values, returning a config
// that New can build a world from, or an error if a value cannot be
// salvaged (fatal at construction per §7).
func (c Config) normalized() (Config, error) {
	if c.Seed == "" {
		c.Seed = DefaultSeed
	}
	if c.PatchSize <= 0 {
		return c, StatusInvalidConfiguration.Errf("patch size must be positive, got %d", c.PatchSize)
	}
	if c.VisionRange < 0 {
		return c, StatusInvalidConfiguration.Errf("vision range must be non-negative, got %d", c.VisionRange)
	}
	if c.ScentDimensions <= 0 {
		return c, StatusInvalidConfiguration.Errf("scent dimensions must be positive, got %d", c.ScentDimensions)
	}
	if c.ColorDimensions <= 0 {
		return c, StatusInvalidConfiguration.Errf("color dimensions must be positive, got %d", c.ColorDimensions)
	}
	if c.ItemTypeCount < 0 {
		return c, StatusInvalidConfiguration.Errf("item type count must be non-negative, got %d", c.ItemTypeCount)
	}
	if int(c.ItemTypeCount) != len(c.ItemTypes) {
		return c, StatusInvalidConfiguration.Errf("item type count %d does not match %d provided item types", c.ItemTypeCount, len(c.ItemTypes))
	}
	if c.MCMCIterations <= 0 {
		c.MCMCIterations = 10
	}
	if c.DeletedItemLifetime == 0 {
		c.DeletedItemLifetime = 1
	}
	if c.ScentDecay <= 0 || c.ScentDecay > 1 {
		c.ScentDecay = 0.5
	}
	if c.ScentDiffusion < 0 {
		c.ScentDiffusion = 0.1
	}
	if c.MovePolicy == nil {
		c.MovePolicy = map[Direction]ActionPolicy{
			DirectionUp:    PolicyAllowed,
			DirectionDown:  PolicyAllowed,
			DirectionLeft:  PolicyAllowed,
			DirectionRight: PolicyAllowed,
		}
	}
	if c.TurnPolicy == nil {
		c.TurnPolicy = map[TurnDirection]ActionPolicy{
			TurnNoChange: PolicyAllowed,
			TurnReverse:  PolicyAllowed,
			TurnLeft:     PolicyAllowed,
			TurnRight:    PolicyAllowed,
		}
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	for i, it := range c.ItemTypes {
		if len(it.ScentVec) != int(c.ScentDimensions) {
			return c, StatusInvalidConfiguration.Errf("item type %q scent vector has length %d, expected %d", it.Name, len(it.ScentVec), c.ScentDimensions)
		}
		if len(it.ColorVec) != int(c.ColorDimensions) {
			return c, StatusInvalidConfiguration.Errf("item type %q color vector has length %d, expected %d", it.Name, len(it.ColorVec), c.ColorDimensions)
		}
		if len(it.RequiredCounts) != int(c.ItemTypeCount) || len(it.RequiredCosts) != int(c.ItemTypeCount) {
			return c, StatusInvalidConfiguration.Errf("item type %q required_counts/required_costs must have length %d", it.Name, c.ItemTypeCount)
		}
		_ = i
	}
	return c, nil
}

func (c Config) movePolicy(d Direction) ActionPolicy {
	if p, ok := c.MovePolicy[d]; ok {
		return p
	}
	return PolicyAllowed
}

func (c Config) turnPolicy(t TurnDirection) ActionPolicy {
	if p, ok := c.TurnPolicy[t]; ok {
		return p
	}
	return PolicyAllowed
}
