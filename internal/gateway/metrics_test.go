package gateway

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := &Metrics{}
	m.RecordMessage()
	m.RecordMessage()
	m.RecordEnvelope()
	m.RecordError()
	m.RecordConnection(1)
	m.RecordConnection(1)
	m.RecordConnection(-1)

	want := MetricsSnapshot{Messages: 2, Envelopes: 1, Errors: 1, Connections: 1}
	if got := m.Snapshot(); got != want {
		t.Errorf("Snapshot = %+v, want %+v", got, want)
	}
}

func TestMetrics_SnapshotEmpty(t *testing.T) {
	t.Parallel()

	m := &Metrics{}
	if snap := m.Snapshot(); snap != (MetricsSnapshot{}) {
		t.Errorf("empty snapshot should be all zeros: %+v", snap)
	}
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := &Metrics{}
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			m.RecordEnvelope()
		}()
		go func() {
			defer wg.Done()
			m.RecordMessage()
		}()
		go func() {
			defer wg.Done()
			m.RecordError()
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Envelopes != 100 || snap.Messages != 100 || snap.Errors != 100 {
		t.Errorf("Snapshot = %+v, want 100 of each", snap)
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := &Metrics{}
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	m.RecordMessage()
	m.RecordMessage()

	n, err := testutil.GatherAndCount(reg, "sbot_gateway_messages_total", "sbot_gateway_websocket_connections")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "sbot_gateway_messages_total" {
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
				t.Errorf("messages_total = %v, want 2", v)
			}
		}
	}
}
