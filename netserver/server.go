// Package netserver implements §4.5's server: a TCP listener dispatching
// connections across a bounded worker pool, a CONNECT/RECONNECT session
// table with permission gating, and the per-tick STEP broadcaster.
package netserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"jellybeanworld/logging"
	loggingnetwork "jellybeanworld/logging/network"
	loggingsimulation "jellybeanworld/logging/simulation"
	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// Config configures a Server's listener and worker pool (§4.5).
type Config struct {
	ListenAddr              string
	NumWorkers              int64
	ConnectionQueueCapacity int
}

func (c Config) normalized() Config {
	if c.NumWorkers <= 0 {
		c.NumWorkers = 8
	}
	if c.ConnectionQueueCapacity <= 0 {
		c.ConnectionQueueCapacity = 128
	}
	return c
}

// Server binds a TCP port and runs the JBW wire protocol over it.
type Server struct {
	cfg         Config
	world       *world.World
	coordinator *world.StepCoordinator
	publisher   logging.Publisher
	metrics     *logging.Metrics

	sem *semaphore.Weighted

	mu           sync.RWMutex
	listener     net.Listener
	sessions     map[uint64]*ClientSession
	nextClientID uint64
	stopping     atomic.Bool

	broadcaster *Broadcaster
	spectate    *SpectateHub
}

// New builds a Server over w. The returned server owns w's Step Coordinator
// internally so every submitted action flows through the same permission
// and session bookkeeping a remote client would see. router is optional and
// feeds the /metrics admin endpoint; pass nil to run without one.
func New(cfg Config, w *world.World, pub logging.Publisher, router *logging.Router) *Server {
	cfg = cfg.normalized()
	if pub == nil {
		pub = logging.NopPublisher{}
	}
	s := &Server{
		cfg:       cfg,
		world:     w,
		publisher: pub,
		sem:       semaphore.NewWeighted(cfg.NumWorkers),
		sessions:  make(map[uint64]*ClientSession),
	}
	if router != nil {
		s.metrics = router.Metrics()
	}
	s.broadcaster = newBroadcaster(s)
	s.spectate = newSpectateHub()
	s.coordinator = world.NewStepCoordinator(w, s.onStep)
	return s
}

// Coordinator exposes the Step Coordinator for in-process embedding (§4.6's
// note that the same action API serves remote and local callers).
func (s *Server) Coordinator() *world.StepCoordinator { return s.coordinator }

// Addr returns the listener's bound address, or nil before Serve has
// accepted its listener. Useful when ListenAddr asks for an ephemeral port.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.stopping.Load() {
				return nil
			}
			return err
		}
		go s.handleConnection(conn)
	}
}

// Stop transitions the server to STOPPING (§5): the listener closes and no
// further STEP broadcasts are attempted, but frames already being written
// finish.
func (s *Server) Stop() {
	s.stopping.Store(true)
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)
	// prelude serves responses only until a session exists (e.g. a
	// permission-error reply to a non-CONNECT tag on a fresh socket); once
	// a session is established, writes go through session.writeFrame so
	// they serialize against the STEP broadcaster on the same connection.
	prelude := bufio.NewWriter(conn)
	var session *ClientSession

	defer func() {
		conn.Close()
		if session != nil {
			session.setState(StateLost)
			loggingnetwork.ClientLost(context.Background(), s.publisher, s.world.Clock(),
				logging.EntityRef{ID: fmt.Sprintf("%d", session.ID), Kind: "client"},
				loggingnetwork.ClientLostPayload{Reason: "connection closed"}, traceExtra(session))
		}
	}()

	for {
		tag, seq, payload, err := wire.ReadFrame(reader)
		if err != nil {
			return
		}

		if err := s.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		respTag, resp := s.dispatch(tag, payload, &session, conn)
		s.sem.Release(1)

		var writeErr error
		if session != nil {
			writeErr = session.writeFrame(respTag, seq, resp)
		} else {
			writeErr = wire.WriteFrame(prelude, respTag, seq, resp)
		}
		if writeErr != nil {
			return
		}
	}
}

// dispatch decodes one request frame, applies permission gating, executes
// it against the world/coordinator, and encodes the response. CONNECT and
// RECONNECT are handled before a session exists; every other tag requires
// an established (Ready) session.
func (s *Server) dispatch(tag wire.Tag, payload []byte, sessionSlot **ClientSession, conn net.Conn) (wire.Tag, []byte) {
	switch tag {
	case wire.TagConnect:
		return tag, s.handleConnect(sessionSlot, conn)
	case wire.TagReconnect:
		return tag, s.handleReconnect(payload, sessionSlot, conn)
	}

	session := *sessionSlot
	if session == nil || session.getState() != StateReady {
		return tag, wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusPermissionError})
	}

	switch tag {
	case wire.TagAddAgent:
		return tag, s.handleAddAgent(session)
	case wire.TagRemoveAgent:
		return tag, s.handleRemoveAgent(session, payload)
	case wire.TagMove:
		return tag, s.handleMove(session, payload)
	case wire.TagTurn:
		return tag, s.handleTurn(session, payload)
	case wire.TagNoOp:
		return tag, s.handleNoOp(session, payload)
	case wire.TagGetMap:
		return tag, s.handleGetMap(session, payload)
	case wire.TagGetAgentIDs:
		return tag, s.handleGetAgentIDs(session)
	case wire.TagGetAgentStates:
		return tag, s.handleGetAgentStates(session, payload)
	case wire.TagSetActive:
		return tag, s.handleSetActive(session, payload)
	case wire.TagIsActive:
		return tag, s.handleIsActive(session, payload)
	default:
		return tag, wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusClientParseError})
	}
}

func (s *Server) handleConnect(sessionSlot **ClientSession, conn net.Conn) []byte {
	s.mu.Lock()
	id := s.nextClientID
	s.nextClientID++
	session := newSession(id, conn)
	session.setState(StateReady)
	s.sessions[id] = session
	s.mu.Unlock()

	*sessionSlot = session

	loggingnetwork.ClientConnected(context.Background(), s.publisher, s.world.Clock(),
		logging.EntityRef{ID: fmt.Sprintf("%d", id), Kind: "client"},
		loggingnetwork.ClientConnectedPayload{ClientID: id}, traceExtra(session))

	return wire.EncodeConnectResponse(wire.ConnectResponse{
		Status:      world.StatusOk,
		ClientID:    id,
		Config:      s.world.Config(),
		CurrentTime: s.world.Clock(),
	})
}

func (s *Server) handleReconnect(payload []byte, sessionSlot **ClientSession, conn net.Conn) []byte {
	req, err := wire.DecodeReconnectRequest(payload)
	if err != nil {
		return wire.EncodeReconnectResponse(wire.ReconnectResponse{Status: world.StatusClientParseError})
	}

	s.mu.Lock()
	session, ok := s.sessions[req.ClientID]
	s.mu.Unlock()
	if !ok {
		return wire.EncodeReconnectResponse(wire.ReconnectResponse{Status: world.StatusInvalidAgentID})
	}

	session.rebind(conn)
	*sessionSlot = session

	ids := session.ownedAgentIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	states, err := s.world.AgentStates(ids)
	if err != nil {
		states = nil
	}

	loggingnetwork.ClientReconnected(context.Background(), s.publisher, s.world.Clock(),
		logging.EntityRef{ID: fmt.Sprintf("%d", session.ID), Kind: "client"},
		loggingnetwork.ClientConnectedPayload{ClientID: session.ID}, traceExtra(session))

	return wire.EncodeReconnectResponse(wire.ReconnectResponse{
		Status:      world.StatusOk,
		CurrentTime: s.world.Clock(),
		Agents:      states,
	})
}

func (s *Server) denyPermission(session *ClientSession, requestTag wire.Tag, permission string) {
	loggingnetwork.PermissionDenied(context.Background(), s.publisher, s.world.Clock(),
		logging.EntityRef{ID: fmt.Sprintf("%d", session.ID), Kind: "client"},
		loggingnetwork.PermissionDeniedPayload{RequestTag: requestTag.String(), Permission: permission}, traceExtra(session))
}

// traceExtra carries a session's correlation id into the log event's Extra
// bag, keyed so every console/JSON sink renders it the same way.
func traceExtra(session *ClientSession) map[string]any {
	if session == nil || session.TraceID == "" {
		return nil
	}
	return map[string]any{"traceId": session.TraceID}
}

func (s *Server) handleAddAgent(session *ClientSession) []byte {
	if err := check(session.Permissions.AddAgent); err != nil {
		s.denyPermission(session, wire.TagAddAgent, "add_agent")
		return wire.EncodeAddAgentResponse(wire.AddAgentResponse{Status: world.StatusOf(err)})
	}
	agent := s.world.AddAgent()
	session.addOwnedAgent(agent.ID)
	return wire.EncodeAddAgentResponse(wire.AddAgentResponse{Status: world.StatusOk, Agent: agent.Snapshot()})
}

func (s *Server) handleRemoveAgent(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeAgentIDRequest(payload)
	if err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusClientParseError})
	}
	if err := check(session.Permissions.RemoveAgent); err != nil {
		s.denyPermission(session, wire.TagRemoveAgent, "remove_agent")
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	if err := s.world.RemoveAgent(req.AgentID); err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	session.removeOwnedAgent(req.AgentID)
	return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})
}

func (s *Server) handleMove(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeMoveRequest(payload)
	if err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusClientParseError})
	}
	if err := s.coordinator.SubmitMove(req.AgentID, req.Direction, req.Steps); err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})
}

func (s *Server) handleTurn(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeTurnRequest(payload)
	if err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusClientParseError})
	}
	if err := s.coordinator.SubmitTurn(req.AgentID, req.Turn); err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})
}

func (s *Server) handleNoOp(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeAgentIDRequest(payload)
	if err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusClientParseError})
	}
	if err := s.coordinator.SubmitNoOp(req.AgentID); err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})
}

func (s *Server) handleGetMap(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeGetMapRequest(payload)
	if err != nil {
		return wire.EncodeGetMapResponse(wire.GetMapResponse{Status: world.StatusClientParseError})
	}
	if err := check(session.Permissions.GetMap); err != nil {
		s.denyPermission(session, wire.TagGetMap, "get_map")
		return wire.EncodeGetMapResponse(wire.GetMapResponse{Status: world.StatusOf(err)})
	}
	views := s.world.GetMap(req.BottomLeft, req.TopRight, req.IncludeScent)
	return wire.EncodeGetMapResponse(wire.GetMapResponse{Status: world.StatusOk, Patches: views})
}

func (s *Server) handleGetAgentIDs(session *ClientSession) []byte {
	if err := check(session.Permissions.GetAgentIDs); err != nil {
		s.denyPermission(session, wire.TagGetAgentIDs, "get_agent_ids")
		return wire.EncodeGetAgentIDsResponse(wire.GetAgentIDsResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeGetAgentIDsResponse(wire.GetAgentIDsResponse{Status: world.StatusOk, IDs: s.world.AgentIDs()})
}

func (s *Server) handleGetAgentStates(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeGetAgentStatesRequest(payload)
	if err != nil {
		return wire.EncodeGetAgentStatesResponse(wire.GetAgentStatesResponse{Status: world.StatusClientParseError})
	}
	if err := check(session.Permissions.GetAgentStates); err != nil {
		s.denyPermission(session, wire.TagGetAgentStates, "get_agent_states")
		return wire.EncodeGetAgentStatesResponse(wire.GetAgentStatesResponse{Status: world.StatusOf(err)})
	}
	states, err := s.world.AgentStates(req.AgentIDs)
	if err != nil {
		return wire.EncodeGetAgentStatesResponse(wire.GetAgentStatesResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeGetAgentStatesResponse(wire.GetAgentStatesResponse{Status: world.StatusOk, States: states})
}

func (s *Server) handleSetActive(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeSetActiveRequest(payload)
	if err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusClientParseError})
	}
	if err := check(session.Permissions.SetActive); err != nil {
		s.denyPermission(session, wire.TagSetActive, "set_active")
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	if err := s.world.SetActive(req.AgentID, req.Active); err != nil {
		return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})
}

func (s *Server) handleIsActive(session *ClientSession, payload []byte) []byte {
	req, err := wire.DecodeAgentIDRequest(payload)
	if err != nil {
		return wire.EncodeIsActiveResponse(wire.IsActiveResponse{Status: world.StatusClientParseError})
	}
	active, err := s.world.IsActive(req.AgentID)
	if err != nil {
		return wire.EncodeIsActiveResponse(wire.IsActiveResponse{Status: world.StatusOf(err)})
	}
	return wire.EncodeIsActiveResponse(wire.IsActiveResponse{Status: world.StatusOk, Active: active})
}

// onStep is the Step Coordinator's callback: mark every session pending and
// hand off to the broadcaster, outside the world lock.
func (s *Server) onStep(tick uint64, states []world.AgentState) {
	loggingsimulation.TickResolved(context.Background(), s.publisher, tick,
		loggingsimulation.TickResolvedPayload{ActiveAgents: len(states)}, nil)

	s.mu.RLock()
	sessions := make([]*ClientSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.markPendingBroadcast()
	}

	s.broadcaster.broadcast(tick, states)
	s.spectate.publish(tick, states)
}
