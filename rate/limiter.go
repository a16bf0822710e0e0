// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"
)

const (
	// DefaultTicksPerSecond is the default refill cadence
	DefaultTicksPerSecond = 4

	// GlobalScope is the scope name of the budget shared by all clients
	GlobalScope = "global"

	// scope label used for all per client budgets when reporting,
	// client ids are not used as label to keep cardinality bounded
	clientScope = "client"
)

// Observer receives limiter events, typically backed by metrics.
type Observer interface {
	// permits granted to a caller for the scope
	Granted(scope string, n int64)
	// non-blocking acquisition refused or blocking one cancelled
	Refused(scope string, n int64)
	// permits added back by the refill task
	Refilled(scope string, n int64)
	// number of client budgets currently tracked
	TrackedClients(n int)
}

type noopObserver struct{}

func (noopObserver) Granted(string, int64)  {}
func (noopObserver) Refused(string, int64)  {}
func (noopObserver) Refilled(string, int64) {}
func (noopObserver) TrackedClients(int)     {}

// LimiterConfig carries the byte rates of a Limiter, a rate <= 0
// disables limiting for the scope.
type LimiterConfig struct {
	// bytes per second shared by all clients
	GlobalRate int64

	// bytes per second for every single client
	PerClientRate int64

	// refill cadence, DefaultTicksPerSecond if not set
	TicksPerSecond int

	// optional event observer
	Observer Observer
}

// Limiter limits the bytes per second moved by the process as a
// whole and by every client individually. Permits are taken by
// callers per chunk of bytes and given back by Refill, which is
// expected to be invoked TicksPerSecond times every second.
type Limiter struct {
	global *Budget

	perClient     int64
	clients       sync.Map // client id -> *Budget
	clientCount   atomic.Int64
	globalPerTick int64
	clientPerTick int64

	ticks    int
	observer Observer
}

// NewLimiter creates a limiter with full budgets.
func NewLimiter(cfg LimiterConfig) *Limiter {
	l := &Limiter{
		perClient: Unlimited,
		ticks:     cfg.TicksPerSecond,
		observer:  cfg.Observer,
	}
	if l.ticks <= 0 {
		l.ticks = DefaultTicksPerSecond
	}
	if l.observer == nil {
		l.observer = noopObserver{}
	}

	if cfg.GlobalRate > 0 {
		// capacity is validated above, budget creation can't fail
		l.global, _ = NewBudget(GlobalScope, cfg.GlobalRate)
		l.globalPerTick = perTick(cfg.GlobalRate, l.ticks)
		klog.Infof("rate: global limit %s/s", humanize.IBytes(uint64(cfg.GlobalRate)))
	}
	if cfg.PerClientRate > 0 {
		l.perClient = cfg.PerClientRate
		l.clientPerTick = perTick(cfg.PerClientRate, l.ticks)
		klog.Infof("rate: per client limit %s/s", humanize.IBytes(uint64(cfg.PerClientRate)))
	}
	return l
}

// share of the capacity released on every tick, at least one permit
// so that small capacities still replenish
func perTick(capacity int64, ticks int) int64 {
	n := capacity / int64(ticks)
	if n < 1 {
		n = 1
	}
	return n
}

// Enabled reports whether any scope is limited.
func (l *Limiter) Enabled() bool {
	return l.global != nil || l.perClient > 0
}

// GlobalCapacity returns the global bytes per second, or Unlimited.
func (l *Limiter) GlobalCapacity() int64 {
	if l.global == nil {
		return Unlimited
	}
	return l.global.Capacity()
}

// PerClientCapacity returns the per client bytes per second, or
// Unlimited.
func (l *Limiter) PerClientCapacity() int64 {
	return l.perClient
}

// TickInterval returns the interval at which Refill should run.
func (l *Limiter) TickInterval() time.Duration {
	return time.Second / time.Duration(l.ticks)
}

// MaxChunk returns the largest number of bytes a single acquisition
// can ask for, 0 if nothing is limited.
func (l *Limiter) MaxChunk() int64 {
	var max int64
	if l.global != nil {
		max = l.global.Capacity()
	}
	if l.perClient > 0 && (max == 0 || l.perClient < max) {
		max = l.perClient
	}
	return max
}

// Global returns the global budget, nil when not limited.
func (l *Limiter) Global() *Budget {
	return l.global
}

// Clients returns the number of client budgets currently tracked.
func (l *Limiter) Clients() int {
	return int(l.clientCount.Load())
}

// clientBudget returns the budget of the client, creating it on
// first use. Concurrent creation resolves to a single budget.
func (l *Limiter) clientBudget(clientID string) *Budget {
	if v, ok := l.clients.Load(clientID); ok {
		return v.(*Budget)
	}
	// capacity is validated while configuring, budget creation can't fail
	b, _ := NewBudget(clientID, l.perClient)
	v, loaded := l.clients.LoadOrStore(clientID, b)
	if !loaded {
		l.observer.TrackedClients(int(l.clientCount.Add(1)))
		klog.V(3).Infof("rate: tracking client %q", clientID)
	}
	return v.(*Budget)
}

// forget drops a retired client budget, unless it was already
// replaced
func (l *Limiter) forget(clientID any, b *Budget) {
	if l.clients.CompareAndDelete(clientID, b) {
		l.observer.TrackedClients(int(l.clientCount.Add(-1)))
		klog.V(3).Infof("rate: dropped idle client %q", clientID)
	}
}

// Acquire blocks until n bytes worth of permits are granted, first by
// the client budget and then by the global one. On cancellation no
// permits stay taken, including client permits taken before waiting
// on the global budget.
func (l *Limiter) Acquire(ctx context.Context, clientID string, n int64) error {
	if n <= 0 {
		return nil
	}

	var client *Budget
	if l.perClient > 0 {
		for {
			b := l.clientBudget(clientID)
			err := b.acquire(ctx, n)
			if err == errRetired {
				l.forget(clientID, b)
				continue
			}
			if err != nil {
				l.observer.Refused(clientScope, n)
				return err
			}
			client = b
			break
		}
		l.observer.Granted(clientScope, n)
	}

	if l.global != nil {
		if err := l.global.acquire(ctx, n); err != nil {
			l.observer.Refused(GlobalScope, n)
			if client != nil {
				client.Release(n)
			}
			return err
		}
		l.observer.Granted(GlobalScope, n)
	}
	return nil
}

// TryAcquire takes n bytes worth of permits if both the client and
// the global budget have them available right now. The global budget
// is not looked at when the client budget refuses, client permits are
// given back when the global budget refuses.
func (l *Limiter) TryAcquire(clientID string, n int64) bool {
	if n <= 0 {
		return true
	}

	var client *Budget
	if l.perClient > 0 {
		for {
			b := l.clientBudget(clientID)
			ok, err := b.tryAcquire(n)
			if err == errRetired {
				l.forget(clientID, b)
				continue
			}
			if !ok {
				l.observer.Refused(clientScope, n)
				return false
			}
			client = b
			break
		}
		l.observer.Granted(clientScope, n)
	}

	if l.global != nil {
		if !l.global.TryAcquire(n) {
			l.observer.Refused(GlobalScope, n)
			if client != nil {
				client.Release(n)
			}
			return false
		}
		l.observer.Granted(GlobalScope, n)
	}
	return true
}

// Refill gives back one tick worth of permits to every budget. Client
// budgets that are already full with nobody waiting are dropped, the
// client gets a fresh budget on its next acquisition.
func (l *Limiter) Refill() {
	if l.global != nil {
		if added := l.global.Release(l.globalPerTick); added > 0 {
			l.observer.Refilled(GlobalScope, added)
		}
	}
	if l.perClient <= 0 {
		return
	}

	var added int64
	l.clients.Range(func(k, v any) bool {
		b := v.(*Budget)
		n, idle := b.refill(l.clientPerTick)
		added += n
		if idle {
			l.forget(k, b)
		}
		return true
	})
	if added > 0 {
		l.observer.Refilled(clientScope, added)
	}
}
