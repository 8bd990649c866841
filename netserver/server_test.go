package netserver

import (
	"context"
	"testing"
	"time"

	"jellybeanworld/rpcclient"
	"jellybeanworld/world"
)

func testWorld(t *testing.T, seed string) *world.World {
	t.Helper()
	cfg := world.Config{
		Seed:            seed,
		PatchSize:       8,
		VisionRange:     2,
		ScentDimensions: 2,
		ColorDimensions: 2,
		ItemTypeCount:   0,
		MCMCIterations:  4,
	}
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New failed: %v", err)
	}
	return w
}

func startTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	w := testWorld(t, "netserver-"+t.Name())
	srv := New(Config{ListenAddr: "127.0.0.1:0"}, w, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("server never bound a listener")
		}
		time.Sleep(time.Millisecond)
	}

	return srv, func() {
		cancel()
		srv.Stop()
	}
}

func TestConnectAddAgentMoveStepBroadcast(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	stepCh := make(chan uint64, 8)
	c, err := rpcclient.Dial(srv.Addr().String(), func(tick uint64, agents []world.AgentState) {
		stepCh <- tick
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	if c.ClientID == 0 && c.Config.Seed == "" {
		t.Fatalf("expected a populated CONNECT response")
	}

	agent, err := c.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent failed: %v", err)
	}

	if err := c.Move(agent.ID, world.DirectionUp, 1); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	select {
	case tick := <-stepCh:
		if tick != 1 {
			t.Fatalf("expected STEP broadcast for tick 1, got %d", tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for STEP broadcast")
	}

	states, err := c.GetAgentStates([]uint64{agent.ID})
	if err != nil {
		t.Fatalf("GetAgentStates failed: %v", err)
	}
	if len(states) != 1 || states[0].Position != (world.Position{X: 0, Y: 1}) {
		t.Fatalf("expected agent at (0,1) after moving up, got %+v", states)
	}
}

func TestReconnectRecoversOwnedAgents(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	addr := srv.Addr().String()
	c, err := rpcclient.Dial(addr, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	agent, err := c.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent failed: %v", err)
	}
	clientID := c.ClientID
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	c2, agents, err := rpcclient.Reconnect(addr, clientID, nil)
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	defer c2.Close()

	if len(agents) != 1 || agents[0].ID != agent.ID {
		t.Fatalf("expected reconnect to recover owned agent %d, got %+v", agent.ID, agents)
	}
}

func TestPermissionDeniedWithoutGrant(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	c, err := rpcclient.Dial(srv.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	srv.mu.RLock()
	var session *ClientSession
	for _, sess := range srv.sessions {
		session = sess
	}
	srv.mu.RUnlock()
	if session == nil {
		t.Fatalf("expected a registered session after CONNECT")
	}
	session.Permissions.AddAgent = false

	if _, err := c.AddAgent(); world.StatusOf(err) != world.StatusPermissionError {
		t.Fatalf("expected StatusPermissionError, got %v", err)
	}
}
