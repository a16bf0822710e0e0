package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-core-stack/throttle/errors"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPeriodicTicks(t *testing.T) {
	var count atomic.Int32
	p := NewPeriodic(5*time.Millisecond, func() { count.Add(1) })
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return count.Load() >= 3 })

	p.Stop()
	stopped := count.Load()
	time.Sleep(30 * time.Millisecond)
	if count.Load() != stopped {
		t.Fatalf("callback invoked after Stop")
	}

	// stop is idempotent
	p.Stop()
}

func TestPeriodicStartTwice(t *testing.T) {
	p := NewPeriodic(time.Hour, func() {})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()
	if err := p.Start(context.Background()); !errors.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestPeriodicInvalidInterval(t *testing.T) {
	p := NewPeriodic(0, func() {})
	if err := p.Start(context.Background()); !errors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestPeriodicSuspendResume(t *testing.T) {
	var count atomic.Int32
	p := NewPeriodic(2*time.Millisecond, func() { count.Add(1) })
	p.Suspend()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)
	p.TickNow()
	if got := count.Load(); got != 0 {
		t.Fatalf("expected no ticks while suspended, got %d", got)
	}

	p.Resume()
	waitFor(t, func() bool { return count.Load() > 0 })

	before := count.Load()
	p.Suspend()
	time.Sleep(5 * time.Millisecond)
	p.TickNow()
	// a tick may have been in flight when suspending
	if got := count.Load(); got > before+1 {
		t.Fatalf("expected ticks to stop while suspended, %d -> %d", before, got)
	}
}

func TestPeriodicContextCancel(t *testing.T) {
	var count atomic.Int32
	p := NewPeriodic(2*time.Millisecond, func() { count.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return count.Load() > 0 })
	cancel()
	time.Sleep(10 * time.Millisecond)
	after := count.Load()
	time.Sleep(20 * time.Millisecond)
	if count.Load() != after {
		t.Fatalf("callback invoked after context cancel")
	}
	p.Stop()
}
