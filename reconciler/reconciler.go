// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package reconciler

import (
	"context"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
)

// Taking motivation from kubernetes
// https://github.com/kubernetes-sigs/controller-runtime/blob/main/pkg/reconcile/reconcile.go
// enable a reconciler function
type Result struct {
	// RequeueAfter if greater than 0, tells the Controller to requeue the reconcile key after the Duration.
	RequeueAfter time.Duration
}

// ReconcilerFunc processes a single key taken from a pipeline
type ReconcilerFunc func(k any) (*Result, error)

// Reconcile allows a plain function to be registered as Controller
func (fn ReconcilerFunc) Reconcile(k any) (*Result, error) {
	return fn(k)
}

// controller interface meant for registering to the manager for
// processing changes occurring to the entries it tracks
type Controller interface {
	Reconcile(k any) (*Result, error)
}

// Controller data used for saving the context of a controller
// and corresponding information along with the reconciliation
// pipeline
type controllerData struct {
	name     string
	handle   Controller
	pipeline *Pipeline
}

// Manager interface for enforcing implementation of specific
// functions
type Manager interface {
	// function to get all existing keys tracked by the manager
	ReconcilerGetAllKeys() []any

	// interface should not be embed by anyone directly
	mustEmbedManagerImpl()
}

// Manager implementation with implementation of the core logic
// typically built over and above a data source on which it will
// offer reconcilation capabilities
type ManagerImpl struct {
	Manager
	parent      Manager
	controllers sync.Map
	ctx         context.Context
}

// NotifyCallback enqueues the key for every registered controller
func (m *ManagerImpl) NotifyCallback(wKey any) {
	// iterate over all the registered clients
	m.controllers.Range(func(name, data any) bool {
		crtl, ok := data.(*controllerData)
		if !ok {
			// this ideally should never happen
			klog.Fatalf("reconciler: wrong data type of controller info received")
		}
		// enqueue the entry for reconciliation
		if err := crtl.pipeline.Enqueue(wKey); err != nil {
			// pipeline stopped while being iterated over
			klog.V(2).Infof("reconciler: skipping %s: %s", name, err)
		}
		return true
	})
}

// Initialize the manager with context and the parent providing keys
func (m *ManagerImpl) Initialize(ctx context.Context, parent Manager) error {
	if m.parent != nil {
		return errors.Wrap(errors.AlreadyExists, "Initialization already done")
	}

	m.ctx = ctx
	m.parent = parent

	return nil
}

// register a controller with manager for reconciliation, all existing
// keys are queued for it once
func (m *ManagerImpl) Register(name string, crtl Controller) error {
	if m.parent == nil {
		return errors.Wrap(errors.InvalidArgument, "manager is not initialized")
	}
	data := &controllerData{
		name:   name,
		handle: crtl,
	}
	_, loaded := m.controllers.LoadOrStore(name, data)
	if loaded {
		return errors.Wrapf(errors.AlreadyExists, "Reconciler %s, already exists", name)
	}

	// initiate a new pipeline for reconcilation triggers
	data.pipeline = NewPipeline(m.ctx, crtl.Reconcile)

	// ensure triggering reconciliation of existing entries
	// separately for reconciliation by the controller
	go func() {
		keys := m.parent.ReconcilerGetAllKeys()
		for _, key := range keys {
			if err := data.pipeline.Enqueue(key); err != nil {
				klog.V(2).Infof("reconciler: %s stopped before initial sync: %s", name, err)
				return
			}
		}
	}()

	return nil
}

// Unregister stops the pipeline of the controller and forgets it
func (m *ManagerImpl) Unregister(name string) error {
	data, ok := m.controllers.LoadAndDelete(name)
	if !ok {
		return errors.Wrapf(errors.NotFound, "Reconciler %s, not found", name)
	}
	data.(*controllerData).pipeline.Stop()
	return nil
}
