// Package rpcclient implements §4.6's client: a single TCP socket with one
// background reader task that demultiplexes responses by sequence number,
// exposing a synchronous call API to callers that may span many goroutines.
package rpcclient

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"

	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// StepCallback receives every STEP broadcast's tick and agent states. It
// runs on the reader goroutine and must not block or call back into the
// client synchronously: that goroutine also delivers request responses, so
// a slow callback delays both later STEP frames and pending responses.
type StepCallback func(newTime uint64, agents []world.AgentState)

type pendingCall struct {
	respCh chan callResult
}

type callResult struct {
	payload []byte
	err     error
}

// Client is one JBW TCP connection. All exported methods are safe to call
// concurrently from many goroutines; each blocks its caller until the
// matching response arrives or the connection is lost (§5's suspension
// point (i)).
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  *bufio.Writer

	nextSeq atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]*pendingCall
	closed  bool
	lostErr error

	onStep StepCallback

	ClientID uint64
	Config   world.Config
}

// Dial opens a TCP connection to addr and performs the CONNECT handshake.
func Dial(addr string, onStep StepCallback) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		pending: make(map[uint64]*pendingCall),
		onStep:  onStep,
	}
	go c.readLoop()

	resp, err := c.call(wire.TagConnect, nil)
	if err != nil {
		c.Close()
		return nil, err
	}
	cr, err := wire.DecodeConnectResponse(resp)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.ClientID = cr.ClientID
	c.Config = cr.Config
	return c, nil
}

// Reconnect dials addr and resumes clientID, recovering its owned agents.
func Reconnect(addr string, clientID uint64, onStep StepCallback) (*Client, []world.AgentState, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		pending: make(map[uint64]*pendingCall),
		onStep:  onStep,
	}
	go c.readLoop()

	resp, err := c.call(wire.TagReconnect, wire.EncodeReconnectRequest(wire.ReconnectRequest{ClientID: clientID}))
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	rr, err := wire.DecodeReconnectResponse(resp)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	if rr.Status != world.StatusOk {
		c.Close()
		return nil, nil, statusErr(rr.Status)
	}
	c.ClientID = clientID
	return c, rr.Agents, nil
}

// Close aborts every pending call with LostConnection and closes the
// socket (§5's cancellation semantics).
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.lostErr = statusErr(world.StatusLostConnection)
	pending := c.pending
	c.pending = make(map[uint64]*pendingCall)
	c.mu.Unlock()

	for _, p := range pending {
		p.respCh <- callResult{err: c.lostErr}
	}
	return c.conn.Close()
}

// call posts one request frame and blocks until its response arrives or the
// connection is lost. It is the single synchronous primitive every public
// method builds on.
func (c *Client) call(tag wire.Tag, payload []byte) ([]byte, error) {
	seq := c.nextSeq.Add(1)

	c.mu.Lock()
	if c.closed {
		err := c.lostErr
		c.mu.Unlock()
		return nil, err
	}
	respCh := make(chan callResult, 1)
	c.pending[seq] = &pendingCall{respCh: respCh}
	c.mu.Unlock()

	c.writeMu.Lock()
	err := wire.WriteFrame(c.writer, tag, seq, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return nil, err
	}

	result := <-respCh
	if result.err != nil {
		return nil, result.err
	}
	return result.payload, nil
}

// readLoop is the single background reader task (§4.6): it demultiplexes
// response frames by sequence number and dispatches STEP frames to onStep,
// never blocking on a caller.
func (c *Client) readLoop() {
	for {
		tag, seq, payload, err := wire.ReadFrame(c.reader)
		if err != nil {
			c.abort(statusErr(world.StatusLostConnection))
			return
		}

		if tag == wire.TagStep {
			sb, err := wire.DecodeStepBroadcast(payload)
			if err != nil {
				continue
			}
			if c.onStep != nil {
				c.onStep(sb.NewTime, sb.Agents)
			}
			continue
		}

		c.mu.Lock()
		p, ok := c.pending[seq]
		if ok {
			delete(c.pending, seq)
		}
		c.mu.Unlock()
		if !ok {
			continue
		}
		p.respCh <- callResult{payload: payload}
	}
}

func (c *Client) abort(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.lostErr = err
	pending := c.pending
	c.pending = make(map[uint64]*pendingCall)
	c.mu.Unlock()

	for _, p := range pending {
		p.respCh <- callResult{err: err}
	}
}

func statusErr(s world.Status) error { return s.Err() }

// AddAgent requests a new agent.
func (c *Client) AddAgent() (world.AgentState, error) {
	payload, err := c.call(wire.TagAddAgent, nil)
	if err != nil {
		return world.AgentState{}, err
	}
	r, err := wire.DecodeAddAgentResponse(payload)
	if err != nil {
		return world.AgentState{}, err
	}
	if r.Status != world.StatusOk {
		return world.AgentState{}, statusErr(r.Status)
	}
	return r.Agent, nil
}

// RemoveAgent deregisters agentID.
func (c *Client) RemoveAgent(agentID uint64) error {
	payload, err := c.call(wire.TagRemoveAgent, wire.EncodeAgentIDRequest(wire.AgentIDRequest{AgentID: agentID}))
	if err != nil {
		return err
	}
	r, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	return statusOrNil(r.Status)
}

// Move submits a MOVE action for agentID.
func (c *Client) Move(agentID uint64, dir world.Direction, steps uint32) error {
	payload, err := c.call(wire.TagMove, wire.EncodeMoveRequest(wire.MoveRequest{AgentID: agentID, Direction: dir, Steps: steps}))
	if err != nil {
		return err
	}
	r, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	return statusOrNil(r.Status)
}

// Turn submits a TURN action for agentID.
func (c *Client) Turn(agentID uint64, turn world.TurnDirection) error {
	payload, err := c.call(wire.TagTurn, wire.EncodeTurnRequest(wire.TurnRequest{AgentID: agentID, Turn: turn}))
	if err != nil {
		return err
	}
	r, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	return statusOrNil(r.Status)
}

// NoOp submits a do-nothing action for agentID.
func (c *Client) NoOp(agentID uint64) error {
	payload, err := c.call(wire.TagNoOp, wire.EncodeAgentIDRequest(wire.AgentIDRequest{AgentID: agentID}))
	if err != nil {
		return err
	}
	r, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	return statusOrNil(r.Status)
}

// GetMap requests every patch overlapping [bl, tr].
func (c *Client) GetMap(bl, tr world.Position, includeScent bool) ([]world.PatchView, error) {
	payload, err := c.call(wire.TagGetMap, wire.EncodeGetMapRequest(wire.GetMapRequest{BottomLeft: bl, TopRight: tr, IncludeScent: includeScent}))
	if err != nil {
		return nil, err
	}
	r, err := wire.DecodeGetMapResponse(payload)
	if err != nil {
		return nil, err
	}
	if r.Status != world.StatusOk {
		return nil, statusErr(r.Status)
	}
	return r.Patches, nil
}

// GetAgentIDs requests every currently registered agent id.
func (c *Client) GetAgentIDs() ([]uint64, error) {
	payload, err := c.call(wire.TagGetAgentIDs, nil)
	if err != nil {
		return nil, err
	}
	r, err := wire.DecodeGetAgentIDsResponse(payload)
	if err != nil {
		return nil, err
	}
	if r.Status != world.StatusOk {
		return nil, statusErr(r.Status)
	}
	return r.IDs, nil
}

// GetAgentStates requests a snapshot of each id, in order.
func (c *Client) GetAgentStates(ids []uint64) ([]world.AgentState, error) {
	payload, err := c.call(wire.TagGetAgentStates, wire.EncodeGetAgentStatesRequest(wire.GetAgentStatesRequest{AgentIDs: ids}))
	if err != nil {
		return nil, err
	}
	r, err := wire.DecodeGetAgentStatesResponse(payload)
	if err != nil {
		return nil, err
	}
	if r.Status != world.StatusOk {
		return nil, statusErr(r.Status)
	}
	return r.States, nil
}

// SetActive flips agentID's tick participation.
func (c *Client) SetActive(agentID uint64, active bool) error {
	payload, err := c.call(wire.TagSetActive, wire.EncodeSetActiveRequest(wire.SetActiveRequest{AgentID: agentID, Active: active}))
	if err != nil {
		return err
	}
	r, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	return statusOrNil(r.Status)
}

// IsActive reports agentID's tick participation.
func (c *Client) IsActive(agentID uint64) (bool, error) {
	payload, err := c.call(wire.TagIsActive, wire.EncodeAgentIDRequest(wire.AgentIDRequest{AgentID: agentID}))
	if err != nil {
		return false, err
	}
	r, err := wire.DecodeIsActiveResponse(payload)
	if err != nil {
		return false, err
	}
	if r.Status != world.StatusOk {
		return false, statusErr(r.Status)
	}
	return r.Active, nil
}

func statusOrNil(s world.Status) error {
	if s == world.StatusOk {
		return nil
	}
	return statusErr(s)
}
