// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package timer provides the periodic scheduling used to drive
// refills at a fixed cadence.
package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
)

// Runner is a periodic task that can be started and stopped.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
}

// Factory creates a Runner invoking fn every interval.
type Factory func(interval time.Duration, fn func()) Runner

// Periodic invokes a callback at a fixed interval from a single
// goroutine, similar to time.Ticker but also offering Suspend() and
// Resume(). Ticks while suspended are dropped, slow callbacks delay
// the following ticks rather than running concurrently.
type Periodic struct {
	interval time.Duration
	fn       func()

	suspended atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPeriodic creates a stopped Periodic.
func NewPeriodic(interval time.Duration, fn func()) *Periodic {
	return &Periodic{
		interval: interval,
		fn:       fn,
	}
}

// NewRunner is a Factory creating Periodic runners.
func NewRunner(interval time.Duration, fn func()) Runner {
	return NewPeriodic(interval, fn)
}

// Start runs the loop until ctx is done or Stop is called.
func (p *Periodic) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return errors.Wrapf(errors.InvalidArgument, "invalid interval %v", p.interval)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.Wrap(errors.AlreadyExists, "periodic task already running")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	return nil
}

// Stop stops the loop and waits for a running callback to return.
func (p *Periodic) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Suspend stops invoking the callback, ticks are lost meanwhile
func (p *Periodic) Suspend() {
	p.suspended.Store(true)
}

// Resume re-enables invoking the callback
func (p *Periodic) Resume() {
	p.suspended.Store(false)
}

// TickNow invokes the callback from the calling goroutine, unless
// suspended.
func (p *Periodic) TickNow() {
	if !p.suspended.Load() {
		p.fn()
	}
}

func (p *Periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	klog.V(2).Infof("timer: periodic task started, interval %v", p.interval)
	for {
		select {
		case <-ctx.Done():
			klog.V(2).Infof("timer: periodic task stopped")
			return
		case <-ticker.C:
			if !p.suspended.Load() {
				p.fn()
			}
		}
	}
}
