package snapshot

import (
	"time"

	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// putConfig encodes every Config field, including the closed ItemType
// catalog and the sparse move/turn policy maps, so a restored world
// reproduces the saved one's rules exactly rather than falling back to
// normalized() defaults.
func putConfig(e *wire.Encoder, c world.Config) {
	e.PutString(c.Seed)
	e.PutU32(uint32(c.PatchSize))
	e.PutU32(uint32(c.VisionRange))
	e.PutU32(uint32(c.ScentDimensions))
	e.PutU32(uint32(c.ColorDimensions))
	e.PutU32(uint32(c.ItemTypeCount))
	e.PutU32(uint32(c.MCMCIterations))
	e.PutU64(c.DeletedItemLifetime)
	e.PutF32(float32(c.ScentDecay))
	e.PutF32(float32(c.ScentDiffusion))
	e.PutU8(uint8(c.MovementConflict))

	e.PutU32(uint32(len(c.MovePolicy)))
	for dir, policy := range c.MovePolicy {
		e.PutU8(uint8(dir))
		e.PutU8(uint8(policy))
	}
	e.PutU32(uint32(len(c.TurnPolicy)))
	for turn, policy := range c.TurnPolicy {
		e.PutU8(uint8(turn))
		e.PutU8(uint8(policy))
	}

	e.PutU32(uint32(len(c.ItemTypes)))
	for _, it := range c.ItemTypes {
		putItemType(e, it)
	}

	e.PutI64(int64(c.TickInterval))
}

func getConfig(d *wire.Decoder) world.Config {
	var c world.Config
	c.Seed = d.String()
	c.PatchSize = int32(d.U32())
	c.VisionRange = int32(d.U32())
	c.ScentDimensions = int32(d.U32())
	c.ColorDimensions = int32(d.U32())
	c.ItemTypeCount = int32(d.U32())
	c.MCMCIterations = int(d.U32())
	c.DeletedItemLifetime = d.U64()
	c.ScentDecay = float64(d.F32())
	c.ScentDiffusion = float64(d.F32())
	c.MovementConflict = world.MovementConflictPolicy(d.U8())

	movePolicyCount := d.U32()
	if movePolicyCount > 0 {
		c.MovePolicy = make(map[world.Direction]world.ActionPolicy, movePolicyCount)
		for i := uint32(0); i < movePolicyCount; i++ {
			dir := world.Direction(d.U8())
			policy := world.ActionPolicy(d.U8())
			c.MovePolicy[dir] = policy
		}
	}
	turnPolicyCount := d.U32()
	if turnPolicyCount > 0 {
		c.TurnPolicy = make(map[world.TurnDirection]world.ActionPolicy, turnPolicyCount)
		for i := uint32(0); i < turnPolicyCount; i++ {
			turn := world.TurnDirection(d.U8())
			policy := world.ActionPolicy(d.U8())
			c.TurnPolicy[turn] = policy
		}
	}

	itemTypeCount := d.U32()
	c.ItemTypes = make([]world.ItemType, 0, itemTypeCount)
	for i := uint32(0); i < itemTypeCount; i++ {
		c.ItemTypes = append(c.ItemTypes, getItemType(d))
	}

	c.TickInterval = time.Duration(d.I64())
	return c
}

func putItemType(e *wire.Encoder, it world.ItemType) {
	e.PutString(it.Name)
	e.PutF32Slice(it.ScentVec)
	e.PutF32Slice(it.ColorVec)
	e.PutI32Slice(it.RequiredCounts)
	e.PutI32Slice(it.RequiredCosts)
	e.PutBool(it.BlocksMovement)
	putIntensityFn(e, it.Intensity)
	e.PutU32(uint32(len(it.Interactions)))
	for _, in := range it.Interactions {
		putInteractionFn(e, in)
	}
}

func getItemType(d *wire.Decoder) world.ItemType {
	var it world.ItemType
	it.Name = d.String()
	it.ScentVec = d.F32Slice()
	it.ColorVec = d.F32Slice()
	it.RequiredCounts = d.I32Slice()
	it.RequiredCosts = d.I32Slice()
	it.BlocksMovement = d.Bool()
	it.Intensity = getIntensityFn(d)
	interactionCount := d.U32()
	it.Interactions = make([]world.InteractionFn, 0, interactionCount)
	for i := uint32(0); i < interactionCount; i++ {
		it.Interactions = append(it.Interactions, getInteractionFn(d))
	}
	return it
}

func putIntensityFn(e *wire.Encoder, fn world.IntensityFn) {
	e.PutString(fn.ID)
	e.PutF32Slice(fn.Args)
}

func getIntensityFn(d *wire.Decoder) world.IntensityFn {
	var fn world.IntensityFn
	fn.ID = d.String()
	fn.Args = d.F32Slice()
	return fn
}

func putInteractionFn(e *wire.Encoder, fn world.InteractionFn) {
	e.PutString(fn.ID)
	e.PutU32(uint32(fn.TargetItem))
	e.PutF32Slice(fn.Args)
}

func getInteractionFn(d *wire.Decoder) world.InteractionFn {
	var fn world.InteractionFn
	fn.ID = d.String()
	fn.TargetItem = int32(d.U32())
	fn.Args = d.F32Slice()
	return fn
}
