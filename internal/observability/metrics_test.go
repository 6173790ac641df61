package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/process-text", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/process-text", "POST", 200, 30*time.Millisecond)
	m.RecordError("/api/create-ticket", "POST", "UPSTREAM_REJECTED")

	snap := m.Snapshot()
	if got := snap.Requests["/process-text|POST|200"]; got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
	if got := snap.AvgLatencyMilli["/process-text|POST|200"]; got != 20 {
		t.Fatalf("avg latency = %d, want 20", got)
	}
	if got := snap.Errors["/api/create-ticket|POST|UPSTREAM_REJECTED"]; got != 1 {
		t.Fatalf("errors = %d, want 1", got)
	}

	m.RecordRequest("/", "GET", 200, time.Millisecond)
	if _, ok := snap.Requests["/|GET|200"]; ok {
		t.Fatal("snapshot must not track later writes")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
