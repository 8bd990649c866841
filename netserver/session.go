package netserver

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// SessionState tracks a client session's position in the Handshaking ->
// Ready -> {Closing, Lost} lifecycle (§4.5).
type SessionState uint8

const (
	StateHandshaking SessionState = iota
	StateReady
	StateClosing
	StateLost
)

func (s SessionState) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Permissions gates request types per session (§3's Permissions taxonomy).
// MOVE/TURN/NO_OP carry no dedicated bit: any ready session may submit
// them, and the server does not check that the session owns the agent
// named in the request.
type Permissions struct {
	AddAgent       bool
	RemoveAgent    bool
	RemoveClient   bool
	SetActive      bool
	GetMap         bool
	GetAgentIDs    bool
	GetAgentStates bool
}

// DefaultPermissions grants every bit to a freshly connected client. The
// spec leaves the default grant an implementation choice (§9); open to
// per-deployment tightening via a future CONNECT auth payload.
func DefaultPermissions() Permissions {
	return Permissions{
		AddAgent:       true,
		RemoveAgent:    true,
		RemoveClient:   true,
		SetActive:      true,
		GetMap:         true,
		GetAgentIDs:    true,
		GetAgentStates: true,
	}
}

// ClientSession is the server-side record for one connected (or
// disconnected-but-resumable) client (§3's Client Session type).
type ClientSession struct {
	ID          uint64
	Permissions Permissions

	// TraceID correlates every log event about this session across its
	// possibly-many CONNECT/RECONNECT connections, independent of the
	// wire-level client id (§6 fixes ClientID as a uint64; this is purely
	// an observability key).
	TraceID string

	mu               sync.Mutex
	conn             net.Conn
	state            SessionState
	ownedAgents      map[uint64]struct{}
	pendingBroadcast bool
	lastSeen         time.Time

	// writeMu serializes frame writes to conn: both the per-request
	// response writer (handleConnection's loop) and the STEP broadcaster
	// write to the same socket from different goroutines, and net.Conn
	// gives no atomicity guarantee between separate Write calls.
	writeMu sync.Mutex
	writer  *bufio.Writer
}

func newSession(id uint64, conn net.Conn) *ClientSession {
	return &ClientSession{
		ID:          id,
		Permissions: DefaultPermissions(),
		TraceID:     uuid.NewString(),
		conn:        conn,
		writer:      bufio.NewWriter(conn),
		state:       StateHandshaking,
		ownedAgents: make(map[uint64]struct{}),
		lastSeen:    time.Now(),
	}
}

func (s *ClientSession) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *ClientSession) getState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// rebind attaches a resumed session to a new connection (RECONNECT),
// transferring the owned agent set unchanged.
func (s *ClientSession) rebind(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.writer = bufio.NewWriter(conn)
	s.state = StateReady
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *ClientSession) addOwnedAgent(id uint64) {
	s.mu.Lock()
	s.ownedAgents[id] = struct{}{}
	s.mu.Unlock()
}

func (s *ClientSession) removeOwnedAgent(id uint64) {
	s.mu.Lock()
	delete(s.ownedAgents, id)
	s.mu.Unlock()
}

func (s *ClientSession) ownsAgent(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ownedAgents[id]
	return ok
}

func (s *ClientSession) ownedAgentIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.ownedAgents))
	for id := range s.ownedAgents {
		out = append(out, id)
	}
	return out
}

func (s *ClientSession) markPendingBroadcast() {
	s.mu.Lock()
	s.pendingBroadcast = true
	s.mu.Unlock()
}

func (s *ClientSession) takePendingBroadcast() bool {
	s.mu.Lock()
	pending := s.pendingBroadcast
	s.pendingBroadcast = false
	conn := s.conn
	state := s.state
	s.mu.Unlock()
	return pending && conn != nil && state == StateReady
}

// writeFrame serializes one frame write against every other writer of this
// session's connection (the response loop and the STEP broadcaster both
// call this rather than writing to conn directly).
func (s *ClientSession) writeFrame(tag wire.Tag, seq uint64, payload []byte) error {
	s.mu.Lock()
	w := s.writer
	s.mu.Unlock()
	if w == nil {
		return world.StatusLostConnection.Errf("session %d has no connection", s.ID)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wire.WriteFrame(w, tag, seq, payload)
}

// check reports PermissionError if the session lacks the bit required for
// the given request (§4.5's permission gate).
func check(granted bool) error {
	if !granted {
		return world.StatusPermissionError.Errf("session lacks the required permission")
	}
	return nil
}
