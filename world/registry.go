package world

import "sync"

// AgentRegistry owns the set of agents in a world: id allocation, add/
// remove, and lookup (§3's Agent Registry component). Membership changes
// (add/remove) take the registry lock; per-agent field mutation is guarded
// by each Agent's own mutex so a tick's Resolving phase doesn't serialize on
// this lock for ordinary reads.
type AgentRegistry struct {
	mu      sync.RWMutex
	agents  map[uint64]*Agent
	nextID  uint64
}

func newAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		agents: make(map[uint64]*Agent),
		nextID: 1,
	}
}

// Add allocates a fresh monotonic agent id and registers a new agent at pos
// facing facing.
func (r *AgentRegistry) Add(pos Position, facing Direction, cfg Config) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	agent := newAgent(id, pos, facing, cfg)
	r.agents[id] = agent
	return agent
}

// Remove deletes an agent from the registry. Returns false if the id was
// unknown.
func (r *AgentRegistry) Remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return false
	}
	delete(r.agents, id)
	return true
}

// Get returns the agent for id, if registered.
func (r *AgentRegistry) Get(id uint64) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// IDs returns every currently-registered agent id.
func (r *AgentRegistry) IDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}

// All returns every currently-registered agent. Callers must not mutate the
// slice's backing agents without the per-agent mutex.
func (r *AgentRegistry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// ActiveIDs returns the ids of every agent currently marked active — the
// set whose pending_action gates the AwaitingActions → Resolving
// transition (§4.4).
func (r *AgentRegistry) ActiveIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.agents))
	for id, a := range r.agents {
		a.mu.Lock()
		active := a.Active
		a.mu.Unlock()
		if active {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetActive flips an agent's active flag, returning false if the id is
// unknown. Deactivating an agent that has already submitted an action this
// tick leaves that action queued, since the current tick still required it
// (§4.4); deactivating one that hasn't acted yet instead synthesizes a
// no-op so Resolving doesn't stall waiting forever on an action that will
// never be submitted.
func (r *AgentRegistry) SetActive(id uint64, active bool) bool {
	a, ok := r.Get(id)
	if !ok {
		return false
	}
	a.mu.Lock()
	a.Active = active
	if !active && !a.hasPending {
		a.pending = PendingAction{Kind: ActionNoOp}
		a.hasPending = true
	}
	a.mu.Unlock()
	return true
}

// IsActive reports whether an agent is active.
func (r *AgentRegistry) IsActive(id uint64) (bool, bool) {
	a, ok := r.Get(id)
	if !ok {
		return false, false
	}
	a.mu.Lock()
	active := a.Active
	a.mu.Unlock()
	return active, true
}
