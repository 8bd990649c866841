package logging_test

import (
	"context"
	"log"
	"testing"
	"time"

	"jellybeanworld/logging"
	"jellybeanworld/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config, available map[string]logging.Sink) *logging.Router {
	t.Helper()
	r, err := logging.NewRouter(cfg, logging.SystemClock{}, log.Default(), available)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	t.Cleanup(func() { r.Close(context.Background()) })
	return r
}

func waitForEvents(t *testing.T, mem *sinks.Memory, n int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		events := mem.Events()
		if len(events) >= n {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d events, got %d", n, len(events))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRouterForwardsEnabledSinksOnly(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, BufferSize: 16, MinSeverity: logging.SeverityDebug}
	r := newTestRouter(t, cfg, map[string]logging.Sink{"memory": mem, "unused": sinks.NewMemory()})

	r.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})

	events := waitForEvents(t, mem, 1)
	if events[0].Type != "test.event" {
		t.Fatalf("expected test.event, got %+v", events[0])
	}
}

func TestRouterFiltersBelowMinSeverity(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, BufferSize: 16, MinSeverity: logging.SeverityWarn}
	r := newTestRouter(t, cfg, map[string]logging.Sink{"memory": mem})

	r.Publish(context.Background(), logging.Event{Type: "debug.event", Severity: logging.SeverityDebug})
	r.Publish(context.Background(), logging.Event{Type: "warn.event", Severity: logging.SeverityWarn})

	events := waitForEvents(t, mem, 1)
	time.Sleep(20 * time.Millisecond) // let any stray debug event arrive if the filter were broken
	events = mem.Events()
	if len(events) != 1 || events[0].Type != "warn.event" {
		t.Fatalf("expected only warn.event to pass the severity filter, got %+v", events)
	}
}

func TestRouterFiltersByCategory(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.Config{
		EnabledSinks: []string{"memory"},
		BufferSize:   16,
		MinSeverity:  logging.SeverityDebug,
		Categories:   []logging.Category{"network"},
	}
	r := newTestRouter(t, cfg, map[string]logging.Sink{"memory": mem})

	r.Publish(context.Background(), logging.Event{Type: "sim.tick", Severity: logging.SeverityInfo, Category: "simulation"})
	r.Publish(context.Background(), logging.Event{Type: "net.connect", Severity: logging.SeverityInfo, Category: "network"})

	events := waitForEvents(t, mem, 1)
	time.Sleep(20 * time.Millisecond)
	events = mem.Events()
	if len(events) != 1 || events[0].Category != "network" {
		t.Fatalf("expected only the network-category event, got %+v", events)
	}
}

func TestRouterAppliesDefaultMetadata(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.Config{
		EnabledSinks: []string{"memory"},
		BufferSize:   16,
		MinSeverity:  logging.SeverityDebug,
		Metadata:     map[string]string{"deployment": "test"},
	}
	r := newTestRouter(t, cfg, map[string]logging.Sink{"memory": mem})

	r.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})

	events := waitForEvents(t, mem, 1)
	if got := events[0].Extra["deployment"]; got != "test" {
		t.Fatalf("expected default metadata to be attached, got %+v", events[0].Extra)
	}
}

func TestRouterMetricsCountEventsTotal(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, BufferSize: 16, MinSeverity: logging.SeverityDebug}
	r := newTestRouter(t, cfg, map[string]logging.Sink{"memory": mem})

	r.Publish(context.Background(), logging.Event{Type: "a", Severity: logging.SeverityInfo})
	r.Publish(context.Background(), logging.Event{Type: "b", Severity: logging.SeverityInfo})
	waitForEvents(t, mem, 2)

	snap := r.MetricsSnapshot()
	if snap["events_total"] != 2 {
		t.Fatalf("expected events_total=2, got %+v", snap)
	}
}

func TestRouterCountsDisabledSinks(t *testing.T) {
	cfg := logging.Config{EnabledSinks: []string{"missing"}, BufferSize: 16, MinSeverity: logging.SeverityDebug}
	r := newTestRouter(t, cfg, map[string]logging.Sink{})

	snap := r.MetricsSnapshot()
	if snap["sink_disabled_total"] != 1 {
		t.Fatalf("expected sink_disabled_total=1 for an unavailable configured sink, got %+v", snap)
	}
}
