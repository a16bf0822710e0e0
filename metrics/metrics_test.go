// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/rate"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("failed to register metrics: %s", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := New(nil); err != nil {
		t.Fatalf("unregistered metrics must not fail: %s", err)
	}
}

func TestGateMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("failed to register metrics: %s", err)
	}

	g := gate.New(gate.Limits{MaxFileTransfers: 1, MaxSyncOperations: gate.Unlimited}, m)
	_ = g.Enter(gate.FileTransfer)
	_ = g.Enter(gate.FileTransfer)
	g.Leave(gate.FileTransfer)

	kind := gate.FileTransfer.String()
	if got := testutil.ToFloat64(m.admitted.WithLabelValues(kind)); got != 1 {
		t.Errorf("expected 1 admitted, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues(kind)); got != 1 {
		t.Errorf("expected 1 rejected, got %v", got)
	}
	if got := testutil.ToFloat64(m.active.WithLabelValues(kind)); got != 1 {
		t.Errorf("expected 1 active, got %v", got)
	}

	expected := `
# HELP throttle_gate_rejected_total Operations refused by the concurrency gate.
# TYPE throttle_gate_rejected_total counter
throttle_gate_rejected_total{kind="file-transfer"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "throttle_gate_rejected_total"); err != nil {
		t.Errorf("unexpected metrics: %s", err)
	}
}

func TestRateMetrics(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatalf("failed to create metrics: %s", err)
	}

	lim := rate.NewLimiter(rate.LimiterConfig{
		GlobalRate:     1000,
		PerClientRate:  100,
		TicksPerSecond: 1,
		Observer:       m,
	})
	if err := lim.Acquire(context.Background(), "client-1", 100); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if lim.TryAcquire("client-1", 1) {
		t.Fatalf("expected client budget to be exhausted")
	}
	lim.Refill()

	if got := testutil.ToFloat64(m.bytesGranted.WithLabelValues(rate.GlobalScope)); got != 100 {
		t.Errorf("expected 100 global bytes granted, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytesGranted.WithLabelValues("client")); got != 100 {
		t.Errorf("expected 100 client bytes granted, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytesRefused.WithLabelValues("client")); got != 1 {
		t.Errorf("expected 1 client byte refused, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytesRefilled.WithLabelValues(rate.GlobalScope)); got != 100 {
		t.Errorf("expected 100 global bytes refilled, got %v", got)
	}
	if got := testutil.ToFloat64(m.clients); got != 1 {
		t.Errorf("expected 1 tracked client, got %v", got)
	}
}
