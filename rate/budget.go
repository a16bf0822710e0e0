// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/go-core-stack/throttle/errors"
)

// errRetired is returned when acquiring from a client budget that the
// refill task already dropped from the limiter, callers are expected
// to fetch a fresh budget for the client and retry
var errRetired = errors.Wrap(errors.NotFound, "rate budget retired")

// Budget is a bounded, replenishable pool of permits for one scope,
// either the global scope or a single client.
//
// Permits are only ever taken by callers and only ever given back by
// the refill task, available permits stay within [0, capacity].
// Waiters are served in FIFO order.
type Budget struct {
	scope    string
	capacity int64
	sem      *semaphore.Weighted

	mu      sync.Mutex
	held    int64 // permits taken and not yet replenished
	waiters int   // callers blocked in Acquire
	retired bool  // dropped from the owning limiter
}

// NewBudget creates a budget for the scope, starting full. Capacity
// must be positive.
func NewBudget(scope string, capacity int64) (*Budget, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(errors.InvalidArgument, "capacity of %s must be > 0, got %d", scope, capacity)
	}
	return &Budget{
		scope:    scope,
		capacity: capacity,
		sem:      semaphore.NewWeighted(capacity),
	}, nil
}

// Scope returns the scope key of the budget.
func (b *Budget) Scope() string {
	return b.scope
}

// Capacity returns the maximum number of permits the budget holds.
func (b *Budget) Capacity() int64 {
	return b.capacity
}

// Available returns the number of permits currently available. An
// Acquire that just got its permits may not be accounted yet, the
// value can then exceed the permits left by up to that request, it
// never exceeds capacity and settles once Acquire returns.
func (b *Budget) Available() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity - b.held
}

// Pending returns the number of callers waiting in Acquire.
func (b *Budget) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiters
}

// Acquire blocks until n permits are available and takes all of them
// at once. If ctx is done before that, no permits are taken and a
// Canceled error wrapping the context error is returned.
func (b *Budget) Acquire(ctx context.Context, n int64) error {
	return b.acquire(ctx, n)
}

// TryAcquire takes n permits if they are available right now and
// reports whether it did, nothing is taken on failure.
func (b *Budget) TryAcquire(n int64) bool {
	ok, _ := b.tryAcquire(n)
	return ok
}

// Release gives back up to n permits without exceeding capacity and
// returns the number of permits actually added. Only the refill task
// is expected to call it.
func (b *Budget) Release(n int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releaseLocked(n)
}

func (b *Budget) acquire(ctx context.Context, n int64) error {
	if n <= 0 {
		return nil
	}
	if n > b.capacity {
		// the semaphore would park the caller until ctx is done
		return errors.Wrapf(errors.InvalidArgument, "%d permits requested from %s with capacity %d", n, b.scope, b.capacity)
	}

	b.mu.Lock()
	if b.retired {
		b.mu.Unlock()
		return errRetired
	}
	b.waiters++
	b.mu.Unlock()

	err := b.sem.Acquire(ctx, n)

	b.mu.Lock()
	if err == nil {
		b.held += n
	}
	b.waiters--
	b.mu.Unlock()

	if err != nil {
		return errors.WrapErr(errors.Canceled, err, "waiting for %d permits of %s", n, b.scope)
	}
	return nil
}

func (b *Budget) tryAcquire(n int64) (bool, error) {
	if n <= 0 {
		return true, nil
	}
	if n > b.capacity {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.retired {
		return false, errRetired
	}
	if !b.sem.TryAcquire(n) {
		return false, nil
	}
	b.held += n
	return true, nil
}

// releaseLocked caps the release to the permits currently held, the
// semaphore panics when released beyond what was acquired
func (b *Budget) releaseLocked(n int64) int64 {
	if n > b.held {
		n = b.held
	}
	if n <= 0 {
		return 0
	}
	b.held -= n
	b.sem.Release(n)
	return n
}

// refill releases up to perTick permits. When there is nothing to
// release and nobody waiting, the budget retires itself and reports
// idle so the owner can forget it.
func (b *Budget) refill(perTick int64) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	added := b.releaseLocked(perTick)
	if added > 0 {
		return added, false
	}
	if b.waiters == 0 {
		b.retired = true
		return 0, true
	}
	return 0, false
}
