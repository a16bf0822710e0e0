// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-core-stack/throttle/errors"
)

type MyTable struct {
	ManagerImpl
	mu   sync.Mutex
	keys []string
}

func (t *MyTable) Set(key string) {
	t.mu.Lock()
	t.keys = append(t.keys, key)
	t.mu.Unlock()
	t.NotifyCallback(key)
}

func (t *MyTable) ReconcilerGetAllKeys() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := []any{}
	for _, k := range t.keys {
		keys = append(keys, k)
	}
	return keys
}

type MyController struct {
	reEnqueue     atomic.Bool
	retError      atomic.Bool
	notifications atomic.Int32
}

func (c *MyController) Reconcile(k any) (*Result, error) {
	if k.(string) == "" {
		return nil, errors.Wrap(errors.InvalidArgument, "got invalid key")
	}
	c.notifications.Add(1)
	if c.retError.CompareAndSwap(true, false) {
		return nil, errors.Wrap(errors.Unknown, "test error return")
	}
	if c.reEnqueue.CompareAndSwap(true, false) {
		return &Result{
			RequeueAfter: 200 * time.Millisecond,
		}, nil
	}
	return &Result{}, nil
}

func newTable(t *testing.T) *MyTable {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	table := &MyTable{keys: []string{"test-key-1"}}
	if err := table.Initialize(ctx, table); err != nil {
		t.Fatalf("failed to initialize: %s", err)
	}
	return table
}

func Test_ReconcilerBaseValidations(t *testing.T) {
	table := newTable(t)

	crtl := &MyController{}
	if err := table.Register("test", crtl); err != nil {
		t.Fatalf("Got Error %s, while registering controller", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := crtl.notifications.Load(); n != 1 {
		t.Errorf("Got %d notifications, expected only 1", n)
	}

	crtl.reEnqueue.Store(true)
	table.Set("test-key-2")
	time.Sleep(500 * time.Millisecond)
	if n := crtl.notifications.Load(); n != 3 {
		t.Errorf("Got %d notifications, expected 3", n)
	}

	crtl.retError.Store(true)
	table.Set("test-key-3")
	time.Sleep(500 * time.Millisecond)
	if n := crtl.notifications.Load(); n != 5 {
		t.Errorf("Got %d notifications, expected 5", n)
	}
}

func Test_ReconcilerRegistration(t *testing.T) {
	m := &MyTable{}
	if err := m.Register("test", &MyController{}); !errors.IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument before initialization, got %v", err)
	}

	table := newTable(t)
	if err := table.Initialize(context.Background(), table); !errors.IsAlreadyExists(err) {
		t.Errorf("expected AlreadyExists on second initialization, got %v", err)
	}
	if err := table.Register("test", &MyController{}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := table.Register("test", &MyController{}); !errors.IsAlreadyExists(err) {
		t.Errorf("expected AlreadyExists for duplicate controller, got %v", err)
	}
	if err := table.Unregister("test"); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if err := table.Unregister("test"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown controller, got %v", err)
	}
}

func Test_ReconcilerUnregisterStopsNotifications(t *testing.T) {
	table := newTable(t)

	crtl := &MyController{}
	if err := table.Register("test", crtl); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := table.Unregister("test"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	table.Set("test-key-2")
	time.Sleep(100 * time.Millisecond)
	if n := crtl.notifications.Load(); n != 1 {
		t.Errorf("Got %d notifications after unregister, expected 1", n)
	}
}

func Test_PipelineCoalesces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var mu sync.Mutex
	seen := map[any]int{}
	p := NewPipeline(ctx, func(k any) (*Result, error) {
		if k == "block" {
			<-release
		}
		mu.Lock()
		seen[k]++
		mu.Unlock()
		return nil, nil
	})

	// keep the reconciler busy so that the next entries pile up
	_ = p.Enqueue("block")
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 10; i++ {
		_ = p.Enqueue("key")
	}
	close(release)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if seen["key"] != 1 {
		t.Errorf("expected notifications to be coalesced, got %d", seen["key"])
	}

	p.Stop()
	if err := p.Enqueue("key"); err == nil {
		t.Errorf("expected enqueue on stopped pipeline to fail")
	}
}
