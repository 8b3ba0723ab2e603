package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "create_capture", true, 10*time.Millisecond)
	rec.Observe(ctx, "create_capture", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_capture", false, 2*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.DurationsMS["create_capture"] != 17 {
		t.Fatalf("unexpected duration total: %v", snap.DurationsMS)
	}
	if snap.Results["create_capture"]["success"] != 2 || snap.Results["create_capture"]["error"] != 1 {
		t.Fatalf("unexpected result counters: %v", snap.Results)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "delete_capture")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "delete_capture")
	span.End(context.DeadlineExceeded)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected statuses: %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"delete_capture"`) {
		t.Fatalf("spans not encoded: %s", buf.String())
	}
}

func TestServiceInstrumentationWiring(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	tracer := NewJSONTracer(nil)
	var logBuf bytes.Buffer
	svc := NewInMemoryService(
		WithLogger(zerolog.New(&logBuf)),
		WithMetrics(rec),
		WithTracer(tracer),
	)

	mustCreateCapture(t, svc, "alice", Capture{Type: CaptureIdea, Title: "I"})
	if _, err := svc.GetCapture(context.Background(), "alice", "missing"); err == nil {
		t.Fatalf("expected NotFound")
	}

	snap := rec.Snapshot()
	if snap.Results["create_capture"]["success"] != 1 {
		t.Fatalf("create not observed: %v", snap.Results)
	}
	if snap.Results["get_capture"]["error"] != 1 {
		t.Fatalf("failed get not observed: %v", snap.Results)
	}
	if len(tracer.Entries()) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(tracer.Entries()))
	}

	// Config reads report through the same instrumentation path.
	if _, err := svc.AuthService(context.Background()); err != nil {
		t.Fatalf("auth service read: %v", err)
	}
	if _, err := svc.Admins(context.Background()); err != nil {
		t.Fatalf("admins read: %v", err)
	}
	snap = rec.Snapshot()
	if snap.Results["get_auth_service"]["success"] != 1 || snap.Results["list_admins"]["success"] != 1 {
		t.Fatalf("config reads not observed: %v", snap.Results)
	}
	logs := logBuf.String()
	if !strings.Contains(logs, `"operation":"create_capture"`) {
		t.Fatalf("success event not logged: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) {
		t.Fatalf("failure event not logged: %s", logs)
	}
}

func TestStoreCollectorExposesCounts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreateCapture(t, svc, "alice", Capture{Type: CaptureIdea, Title: "A"})
	mustCreateCapture(t, svc, "bob", Capture{Type: CaptureTask, Title: "B"})
	if _, _, err := svc.CreateSprint(ctx, "alice", Sprint{Name: "S"}); err != nil {
		t.Fatalf("create sprint: %v", err)
	}

	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(NewStoreCollector(svc.Store())); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	counts := map[string]float64{}
	var owners float64
	for _, family := range families {
		switch family.GetName() {
		case "foundrycore_records":
			for _, metric := range family.GetMetric() {
				for _, label := range metric.GetLabel() {
					if label.GetName() == "entity" {
						counts[label.GetValue()] = metric.GetGauge().GetValue()
					}
				}
			}
		case "foundrycore_owners":
			for _, metric := range family.GetMetric() {
				owners = metric.GetGauge().GetValue()
			}
		}
	}
	if counts["capture"] != 2 || counts["sprint"] != 1 || counts["template"] != 0 {
		t.Fatalf("unexpected record counts: %v", counts)
	}
	if owners != 2 {
		t.Fatalf("unexpected owner count: %v", owners)
	}
}
