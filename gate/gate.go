// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package gate provides admission control for long running operations.
//
// The Gate counts in-flight operations per Kind and refuses to admit
// new ones while the count is above the configured maximum. Refusal
// still counts the caller in, so every Enter must be paired with a
// Leave whatever Enter returned:
//
//	err := g.Enter(gate.SyncOperation)
//	defer g.Leave(gate.SyncOperation)
//	if err != nil {
//		return err // errors.IsCapacityExceeded(err)
//	}
//
// Counters are updated atomically one by one, two callers racing may
// briefly push the count above the maximum. The gate is an admission
// heuristic, not a hard guarantee.
package gate

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
)

// maximum not resolved from the resolver yet
const unresolved = math.MinInt64

// Observer receives gate events, typically backed by metrics.
type Observer interface {
	Admitted(kind Kind)
	Rejected(kind Kind)
	Active(kind Kind, n int64)
}

type noopObserver struct{}

func (noopObserver) Admitted(Kind)      {}
func (noopObserver) Rejected(Kind)      {}
func (noopObserver) Active(Kind, int64) {}

// Gate tracks concurrent operations per kind against lazily resolved
// maxima.
type Gate struct {
	counters [numKinds]atomic.Int64
	maxima   [numKinds]atomic.Int64

	// resolving and invalidating are serialized so that an invalidation
	// never gets overwritten by a value read before it
	mu       sync.Mutex
	resolver LimitResolver
	observer Observer

	// keeps a saturated or broken setup from flooding the log
	rejectLog   rate.Sometimes
	resolverLog rate.Sometimes
}

// New creates a gate resolving its maxima from resolver, observer is
// optional.
func New(resolver LimitResolver, observer Observer) *Gate {
	if resolver == nil {
		resolver = UnlimitedLimits
	}
	if observer == nil {
		observer = noopObserver{}
	}
	g := &Gate{
		resolver:    resolver,
		observer:    observer,
		rejectLog:   rate.Sometimes{Interval: 5 * time.Second},
		resolverLog: rate.Sometimes{Interval: 30 * time.Second},
	}
	for i := range g.maxima {
		g.maxima[i].Store(unresolved)
	}
	return g
}

// Enter counts the caller in for kind. It returns a CapacityExceeded
// error when the count goes above the positive maximum configured for
// kind, the caller is counted in regardless and must call Leave.
func (g *Gate) Enter(kind Kind) error {
	if err := kind.validate(); err != nil {
		return err
	}
	n := g.counters[kind].Add(1)
	g.observer.Active(kind, n)

	max := g.Max(kind)
	if max > 0 && n > int64(max) {
		g.observer.Rejected(kind)
		g.rejectLog.Do(func() {
			klog.Warningf("gate: refusing %s, %d in flight with maximum %d", kind, n, max)
		})
		return errors.Wrapf(errors.CapacityExceeded, "too many concurrent %s operations, maximum is %d", kind, max)
	}
	g.observer.Admitted(kind)
	return nil
}

// Leave counts the caller out for kind, it never fails.
func (g *Gate) Leave(kind Kind) {
	if kind.validate() != nil {
		return
	}
	n := g.counters[kind].Add(-1)
	if n < 0 {
		// a Leave without Enter, keep the counter sane
		n = g.counters[kind].Add(1)
		klog.Errorf("gate: unbalanced leave for %s", kind)
	}
	g.observer.Active(kind, n)
}

// Do runs fn admitted for kind. Leave is guaranteed on every exit
// path, including refusal and panics.
func (g *Gate) Do(kind Kind, fn func() error) error {
	err := g.Enter(kind)
	defer g.Leave(kind)
	if err != nil {
		return err
	}
	return fn()
}

// Active returns the number of operations of kind counted in.
func (g *Gate) Active(kind Kind) int64 {
	if kind.validate() != nil {
		return 0
	}
	return g.counters[kind].Load()
}

// Saturated reports whether new operations of kind are refused at the
// moment.
func (g *Gate) Saturated(kind Kind) bool {
	max := g.Max(kind)
	return max > 0 && g.Active(kind) >= int64(max)
}

// Max returns the maximum for kind, resolving it if needed. A resolver
// failure is not cached and the kind is treated as unlimited.
func (g *Gate) Max(kind Kind) int {
	if kind.validate() != nil {
		return Unlimited
	}
	if v := g.maxima[kind].Load(); v != unresolved {
		return int(v)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if v := g.maxima[kind].Load(); v != unresolved {
		return int(v)
	}
	max, err := g.resolver.MaxConcurrent(kind)
	if err != nil {
		g.resolverLog.Do(func() {
			klog.Warningf("gate: no maximum for %s, admitting all: %s", kind, err)
		})
		return Unlimited
	}
	if max <= 0 {
		max = Unlimited
	}
	g.maxima[kind].Store(int64(max))
	klog.V(2).Infof("gate: maximum for %s resolved to %d", kind, max)
	return max
}

// Invalidate drops the cached maximum of kind, it is resolved again on
// next use.
func (g *Gate) Invalidate(kind Kind) {
	if kind.validate() != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxima[kind].Store(unresolved)
}

// InvalidateAll drops all cached maxima.
func (g *Gate) InvalidateAll() {
	for _, kind := range Kinds {
		g.Invalidate(kind)
	}
}
