// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package reconciler

import (
	"context"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// Since Reconciler Pipeline will be used across go routines, it is
// quite possible to have producers and consumers to work at
// different speeds with a possibility of having backlogs or causing
// holdups, thus by default use a buffer length of 1024 for every
// Pipeline to ensure producers can just work seemlessly under
// regular scenarios
// Note: this is expected to be consumed only locally
const bufferLength = 1024

// delay before retrying an entry whose reconciliation failed
const errorRequeueDelay = 100 * time.Millisecond

// Pipeline of elements to be processed by reconciler upon notification
type Pipeline struct {
	// context under which the pipeline is working
	// where the context closure means the pipeline is stopped
	ctx    context.Context
	cancel context.CancelFunc

	// map of entries to work with, here we are storing entries in a map
	// to enable possibility of compressing notifications while trying
	// to enqueue an entry which is already in pipeline
	pMap sync.Map

	// Pipeline is internally built on a buffered channel internally
	pChannel chan any

	// reconciler function to trigger while processing an entry in the
	// pipeline
	reconciler ReconcilerFunc
}

// Enqueue adds the entry to the pipeline, an entry already waiting in
// the pipeline is not added again.
func (p *Pipeline) Enqueue(k any) error {
	// do not allow if the context is already closed
	if p.ctx.Err() != nil {
		return p.ctx.Err()
	}

	// load or store the entry to sync map, checking existence of the
	// entry in the Pipeline, ensuring compressing multiple
	// notifications for a single entry into one
	// while the value stored is nil as we are treating this map more
	// of as a set, where values do not hold relevance as of now
	_, loaded := p.pMap.LoadOrStore(k, nil)
	if !loaded {
		// if entry didn't exist in the map, ensure pushing the same
		// to the buffered channel for processing by reconciler
		select {
		case p.pChannel <- k:
		case <-p.ctx.Done():
			p.pMap.Delete(k)
			return p.ctx.Err()
		}
	}

	return nil
}

// requeue the entry once the delay is over, unless the pipeline is
// stopped in between
func (p *Pipeline) enqueueAfter(k any, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.ctx.Done():
	case <-t.C:
		_ = p.Enqueue(k)
	}
}

// initialize and start the pipeline processing
// internal function and should not be exposed outside
func (p *Pipeline) initialize() {
	for {
		select {
		case <-p.ctx.Done():
			// pipeline processing is stopped return from here
			return
		case k := <-p.pChannel:
			// delete the key from the map while triggering the
			// reconciler, notifications arriving while it runs are
			// queued again
			p.pMap.Delete(k)

			res, err := p.reconciler(k)
			if err != nil {
				// there was an error while processing the entry
				// requeue it at the back of the pipeline for
				// processing later
				klog.V(2).Infof("reconciler: failed to process %v, requeuing: %s", k, err)
				go p.enqueueAfter(k, errorRequeueDelay)
			} else if res != nil && res.RequeueAfter != 0 {
				go p.enqueueAfter(k, res.RequeueAfter)
			}
		}
	}
}

// Stop the pipeline, pending entries are dropped.
func (p *Pipeline) Stop() {
	p.cancel()
}

// NewPipeline creates a pipeline for queuing up and processing entries
// provided for reconciliation, it runs until ctx is done or Stop is
// called
func NewPipeline(ctx context.Context, fn ReconcilerFunc) *Pipeline {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		ctx:        ctx,
		cancel:     cancel,
		pChannel:   make(chan any, bufferLength),
		reconciler: fn,
	}

	// initialize the pipeline before passing it externally
	// to start the core functionality
	go p.initialize()
	return p
}
