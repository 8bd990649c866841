package network_test

import (
	"context"
	"testing"
	"time"

	"jellybeanworld/logging"
	"jellybeanworld/logging/network"
	"jellybeanworld/logging/sinks"
)

func TestHelpersPublishExpectedEventShape(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, BufferSize: 16, MinSeverity: logging.SeverityDebug}
	r, err := logging.NewRouter(cfg, logging.SystemClock{}, nil, map[string]logging.Sink{"memory": mem})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	defer r.Close(context.Background())

	actor := logging.EntityRef{ID: "7", Kind: "client"}
	network.ClientConnected(context.Background(), r, 3, actor, network.ClientConnectedPayload{ClientID: 7}, map[string]any{"traceId": "abc"})
	network.PermissionDenied(context.Background(), r, 4, actor, network.PermissionDeniedPayload{RequestTag: "ADD_AGENT", Permission: "add_agent"}, nil)

	var events []logging.Event
	deadline := time.Now().Add(2 * time.Second)
	for len(events) < 2 {
		events = mem.Events()
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for 2 events, got %d", len(events))
		}
	}

	if events[0].Type != network.EventClientConnected || events[0].Category != "network" {
		t.Fatalf("expected a network.client_connected event, got %+v", events[0])
	}
	payload, ok := events[0].Payload.(network.ClientConnectedPayload)
	if !ok || payload.ClientID != 7 {
		t.Fatalf("expected payload ClientID=7, got %+v", events[0].Payload)
	}
	if events[0].Extra["traceId"] != "abc" {
		t.Fatalf("expected traceId extra to survive, got %+v", events[0].Extra)
	}

	if events[1].Type != network.EventPermissionDenied || events[1].Severity != logging.SeverityWarn {
		t.Fatalf("expected a warn-severity permission_denied event, got %+v", events[1])
	}
}

func TestHelpersNoOpOnNilPublisher(t *testing.T) {
	// Must not panic when no publisher is configured (e.g. an embedder that
	// opts out of telemetry entirely).
	network.ClientConnected(context.Background(), nil, 0, logging.EntityRef{}, network.ClientConnectedPayload{}, nil)
	network.ClientLost(context.Background(), nil, 0, logging.EntityRef{}, network.ClientLostPayload{}, nil)
}
