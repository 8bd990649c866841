// Package snapshot implements §4.7 and §6's on-disk save/load format: a
// fixed-width binary encoding of a world's full state (configuration,
// every fixed patch, every agent, clock, and client session table) built
// on the same Encoder/Decoder primitives wire uses for the network
// protocol, so the two formats share one encoding vocabulary.
package snapshot

import (
	"io"

	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// magic identifies a JBW snapshot file; version lets Load reject files
// written by an incompatible encoding.
const (
	magic          = "JBW1"
	formatVersion  = uint32(1)
)

// ClientRecord is one entry of the snapshot's session table (§4.7: a
// snapshot records enough of the client table that a restored server can
// honor RECONNECT for clients that were live at save time).
type ClientRecord struct {
	ClientID    uint64
	OwnedAgents []uint64
}

// Snapshot is the fully decoded contents of a save file, ready to hand to
// world.Restore and to a netserver session table.
type Snapshot struct {
	Config      world.Config
	Clock       uint64
	NextAgentID uint64
	Patches     []world.PatchExport
	Agents      []world.AgentExport
	Clients     []ClientRecord
}

// Save encodes snap to w in full, per §6's layout: magic, version,
// config block, patch table, agent table, clock, next agent id, session
// table.
func Save(w io.Writer, snap Snapshot) error {
	e := wire.NewEncoder(4096)
	e.PutBytes([]byte(magic))
	e.PutU32(formatVersion)

	putConfig(e, snap.Config)

	e.PutU64(uint64(len(snap.Patches)))
	for _, p := range snap.Patches {
		putPatchExport(e, p)
	}

	e.PutU64(uint64(len(snap.Agents)))
	for _, a := range snap.Agents {
		putAgentExport(e, a)
	}

	e.PutU64(snap.Clock)
	e.PutU64(snap.NextAgentID)

	e.PutU64(uint64(len(snap.Clients)))
	for _, c := range snap.Clients {
		e.PutU64(c.ClientID)
		e.PutU64(uint64(len(c.OwnedAgents)))
		for _, id := range c.OwnedAgents {
			e.PutU64(id)
		}
	}

	_, err := w.Write(e.Bytes())
	return err
}

// Load reads and decodes a full snapshot from r.
func Load(r io.Reader) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, err
	}
	d := wire.NewDecoder(raw)

	if got := d.Bytes(); string(got) != magic {
		return Snapshot{}, world.StatusClientParseError.Errf("bad snapshot magic %q", got)
	}
	if v := d.U32(); v != formatVersion {
		return Snapshot{}, world.StatusClientParseError.Errf("unsupported snapshot version %d", v)
	}

	var snap Snapshot
	snap.Config = getConfig(d)

	patchCount := d.U64()
	snap.Patches = make([]world.PatchExport, 0, patchCount)
	for i := uint64(0); i < patchCount; i++ {
		snap.Patches = append(snap.Patches, getPatchExport(d))
	}

	agentCount := d.U64()
	snap.Agents = make([]world.AgentExport, 0, agentCount)
	for i := uint64(0); i < agentCount; i++ {
		snap.Agents = append(snap.Agents, getAgentExport(d))
	}

	snap.Clock = d.U64()
	snap.NextAgentID = d.U64()

	clientCount := d.U64()
	snap.Clients = make([]ClientRecord, 0, clientCount)
	for i := uint64(0); i < clientCount; i++ {
		var c ClientRecord
		c.ClientID = d.U64()
		ownedCount := d.U64()
		c.OwnedAgents = make([]uint64, 0, ownedCount)
		for j := uint64(0); j < ownedCount; j++ {
			c.OwnedAgents = append(c.OwnedAgents, d.U64())
		}
		snap.Clients = append(snap.Clients, c)
	}

	return snap, d.Err()
}

func putPatchExport(e *wire.Encoder, p world.PatchExport) {
	e.PutU32(uint32(p.Key.PX))
	e.PutU32(uint32(p.Key.PY))
	e.PutU64(uint64(len(p.Items)))
	for _, it := range p.Items {
		e.PutU32(uint32(it.Type))
		e.PutI64(it.CellPosition.X)
		e.PutI64(it.CellPosition.Y)
	}
	e.PutU64(uint64(len(p.RemovedItems)))
	for _, ri := range p.RemovedItems {
		e.PutU32(uint32(ri.Type))
		e.PutI64(ri.Position.X)
		e.PutI64(ri.Position.Y)
		e.PutU64(ri.DeletedTick)
	}
	e.PutF32Slice(p.Scent)
	e.PutU64(p.LastAdvancedTick)
}

func getPatchExport(d *wire.Decoder) world.PatchExport {
	var p world.PatchExport
	p.Key = world.PatchKey{PX: int32(d.U32()), PY: int32(d.U32())}
	itemCount := d.U64()
	for i := uint64(0); i < itemCount; i++ {
		typ := int32(d.U32())
		pos := world.Position{X: d.I64(), Y: d.I64()}
		p.Items = append(p.Items, world.Item{Type: typ, CellPosition: pos})
	}
	removedCount := d.U64()
	for i := uint64(0); i < removedCount; i++ {
		typ := int32(d.U32())
		pos := world.Position{X: d.I64(), Y: d.I64()}
		tick := d.U64()
		p.RemovedItems = append(p.RemovedItems, world.RemovedItem{Position: pos, Type: typ, DeletedTick: tick})
	}
	p.Scent = d.F32Slice()
	p.LastAdvancedTick = d.U64()
	return p
}

func putAgentExport(e *wire.Encoder, a world.AgentExport) {
	e.PutU64(a.ID)
	e.PutI64(a.Position.X)
	e.PutI64(a.Position.Y)
	e.PutU8(uint8(a.Facing))
	e.PutBool(a.Active)
	e.PutU32Slice(a.Inventory)
}

func getAgentExport(d *wire.Decoder) world.AgentExport {
	var a world.AgentExport
	a.ID = d.U64()
	a.Position = world.Position{X: d.I64(), Y: d.I64()}
	a.Facing = world.Direction(d.U8())
	a.Active = d.Bool()
	a.Inventory = d.U32Slice()
	return a
}
