package netserver

import (
	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// Broadcaster walks sessions with a pending-broadcast flag and writes each
// one a STEP frame filtered to the agents it owns (§4.5). STEP frames
// always carry sequence 0 since they are unsolicited (§4.6). Writes go
// through ClientSession.writeFrame, which serializes against that
// session's per-request response writer on the same connection.
type Broadcaster struct {
	server *Server
}

func newBroadcaster(s *Server) *Broadcaster {
	return &Broadcaster{server: s}
}

func (b *Broadcaster) broadcast(tick uint64, states []world.AgentState) {
	if b.server.stopping.Load() {
		return
	}

	byID := make(map[uint64]world.AgentState, len(states))
	for _, st := range states {
		byID[st.ID] = st
	}

	b.server.mu.RLock()
	sessions := make([]*ClientSession, 0, len(b.server.sessions))
	for _, sess := range b.server.sessions {
		sessions = append(sessions, sess)
	}
	b.server.mu.RUnlock()

	for _, sess := range sessions {
		if !sess.takePendingBroadcast() {
			continue
		}
		owned := sess.ownedAgentIDs()
		if len(owned) == 0 {
			continue
		}
		payloadStates := make([]world.AgentState, 0, len(owned))
		for _, id := range owned {
			if st, ok := byID[id]; ok {
				payloadStates = append(payloadStates, st)
			}
		}
		if len(payloadStates) == 0 {
			continue
		}
		payload := wire.EncodeStepBroadcast(wire.StepBroadcast{NewTime: tick, Agents: payloadStates})

		if err := sess.writeFrame(wire.TagStep, 0, payload); err != nil {
			sess.setState(StateLost)
		}
	}
}
