// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package config provides the configuration sources the throttling
// limits are read from.
//
// A Source stores plain string values, absent keys are reported with
// ok set to false. A source failing to provide values returns an error
// with code ConfigurationUnavailable. Changes are delivered to
// subscribers through a reconciler pipeline per subscriber, multiple
// changes of a key not yet delivered are coalesced into one
// notification.
package config

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/reconciler"
)

// Source provides configuration values.
type Source interface {
	// GetString returns the value of key, ok is false if the key is
	// not set
	GetString(key string) (value string, ok bool, err error)

	// GetInt returns the value of key parsed as integer
	GetInt(key string) (value int, ok bool, err error)

	// Subscribe registers fn to be called with the key of every
	// changed value. All known keys are delivered once right after
	// subscribing, covering changes done before the subscription.
	Subscribe(fn func(key string)) (*Subscription, error)

	// Close stops change notifications and releases resources
	Close() error
}

// Subscription to the changes of a source.
type Subscription struct {
	id string
	n  *notifier
}

// ID returns the unique identifier of the subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Cancel stops the notifications, it is safe to call multiple times.
func (s *Subscription) Cancel() {
	if err := s.n.Unregister(s.id); err == nil {
		klog.V(2).Infof("config: subscription %s cancelled", s.id)
	}
}

// notifier fans out key changes to the subscribers, embedded by
// every source
type notifier struct {
	reconciler.ManagerImpl
	cancel context.CancelFunc
}

func (n *notifier) init() {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	// can fail only when initialized twice
	_ = n.Initialize(ctx, n)
}

// ReconcilerGetAllKeys provides the keys delivered to every new
// subscriber
func (n *notifier) ReconcilerGetAllKeys() []any {
	return allKeys()
}

// Subscribe implements Source.
func (n *notifier) Subscribe(fn func(key string)) (*Subscription, error) {
	if fn == nil {
		return nil, errors.Wrap(errors.InvalidArgument, "subscription callback not provided")
	}
	s := &Subscription{
		id: uuid.NewString(),
		n:  n,
	}
	err := n.Register(s.id, reconciler.ReconcilerFunc(func(k any) (*reconciler.Result, error) {
		fn(k.(string))
		return nil, nil
	}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (n *notifier) notify(key string) {
	n.NotifyCallback(key)
}

func (n *notifier) close() {
	n.cancel()
}

// parse the value of an integer key
func parseInt(key, val string, ok bool, err error) (int, bool, error) {
	if err != nil || !ok {
		return 0, ok, err
	}
	v, perr := strconv.Atoi(strings.TrimSpace(val))
	if perr != nil {
		return 0, true, errors.Wrapf(errors.MalformedLimitValue, "invalid integer %q for %s", val, key)
	}
	return v, true, nil
}

// compare two snapshots of values, returning the keys that differ
func changedKeys(old, cur map[string]string) []string {
	changed := []string{}
	for _, k := range Keys {
		ov, oOk := old[k]
		cv, cOk := cur[k]
		if oOk != cOk || ov != cv {
			changed = append(changed, k)
		}
	}
	return changed
}
