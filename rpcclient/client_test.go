package rpcclient

import (
	"bufio"
	"net"
	"testing"
	"time"

	"jellybeanworld/wire"
	"jellybeanworld/world"
)

// newTestClient builds a Client directly over one end of a net.Pipe,
// bypassing Dial's CONNECT handshake so the test's fake server controls
// exactly what frames arrive and in what order.
func newTestClient(conn net.Conn, onStep StepCallback) *Client {
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		pending: make(map[uint64]*pendingCall),
		onStep:  onStep,
	}
	go c.readLoop()
	return c
}

func TestClientDemultiplexesOutOfOrderResponses(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	c := newTestClient(clientConn, nil)

	type reqFrame struct {
		tag wire.Tag
		seq uint64
	}
	requests := make(chan reqFrame, 2)
	go func() {
		for i := 0; i < 2; i++ {
			tag, seq, _, err := wire.ReadFrame(serverConn)
			if err != nil {
				return
			}
			requests <- reqFrame{tag: tag, seq: seq}
		}
	}()

	result1 := make(chan error, 1)
	result2 := make(chan error, 1)
	go func() {
		_, err := c.call(wire.TagMove, nil)
		result1 <- err
	}()
	go func() {
		_, err := c.call(wire.TagTurn, nil)
		result2 <- err
	}()

	first := <-requests
	second := <-requests

	// Reply to the second request first: the client must route each
	// response back to its own caller by sequence number, not send order.
	if err := wire.WriteFrame(serverConn, second.tag, second.seq, wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})); err != nil {
		t.Fatalf("write response for seq %d failed: %v", second.seq, err)
	}
	if err := wire.WriteFrame(serverConn, first.tag, first.seq, wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk})); err != nil {
		t.Fatalf("write response for seq %d failed: %v", first.seq, err)
	}

	select {
	case err := <-result1:
		if err != nil {
			t.Fatalf("call 1 failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for call 1")
	}
	select {
	case err := <-result2:
		if err != nil {
			t.Fatalf("call 2 failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for call 2")
	}
}

func TestClientDispatchesStepWithoutConsumingPendingSlot(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	stepCh := make(chan uint64, 1)
	c := newTestClient(clientConn, func(tick uint64, agents []world.AgentState) {
		stepCh <- tick
	})

	go func() {
		tag, seq, _, err := wire.ReadFrame(serverConn)
		if err != nil {
			return
		}
		// A STEP broadcast always carries sequence 0 and is sent before the
		// pending call's own response; it must not be mistaken for it.
		_ = wire.WriteFrame(serverConn, wire.TagStep, 0, wire.EncodeStepBroadcast(wire.StepBroadcast{NewTime: 5}))
		_ = wire.WriteFrame(serverConn, tag, seq, wire.EncodeStatusResponse(wire.StatusResponse{Status: world.StatusOk}))
	}()

	_, err := c.call(wire.TagNoOp, nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	select {
	case tick := <-stepCh:
		if tick != 5 {
			t.Fatalf("expected STEP tick 5, got %d", tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for STEP dispatch")
	}
}

func TestClientCloseAbortsPendingCalls(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	c := newTestClient(clientConn, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.call(wire.TagMove, nil)
		errCh <- err
	}()

	// Give the call a moment to register before closing out from under it.
	time.Sleep(20 * time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-errCh:
		if world.StatusOf(err) != world.StatusLostConnection {
			t.Fatalf("expected StatusLostConnection, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for aborted call")
	}
}
