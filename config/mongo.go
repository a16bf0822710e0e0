// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"context"
	"maps"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/db"
	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/utils"
)

// setting document stored in the collection, a null value is treated
// as absent
type setting struct {
	Key   string  `bson:"_id"`
	Value *string `bson:"value"`
}

// MongoSource keeps the values as documents of a mongo collection,
// serving them from an in memory cache kept in sync through a change
// stream watch.
type MongoSource struct {
	notifier
	col    db.StoreCollection
	cancel context.CancelFunc

	cacheMu sync.RWMutex
	cache   map[string]string

	// keys refreshed by the watch while the initial load is running,
	// the load must not overwrite them with its older view
	refreshed map[string]struct{}
}

// NewMongoSource loads the known keys from col and starts watching
// it, the watch stops when ctx is done or the source is closed.
func NewMongoSource(ctx context.Context, col db.StoreCollection) (*MongoSource, error) {
	if err := col.SetKeyType(reflect.TypeOf(new(string))); err != nil {
		return nil, err
	}

	s := &MongoSource{
		col:       col,
		cache:     map[string]string{},
		refreshed: map[string]struct{}{},
	}
	s.init()

	wctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if err := col.Watch(wctx, nil, s.callback); err != nil {
		cancel()
		s.close()
		return nil, errors.WrapErr(errors.ConfigurationUnavailable, err, "failed to watch settings")
	}

	list := []setting{}
	filter := bson.M{"_id": bson.M{"$in": Keys}}
	if err := col.FindMany(ctx, filter, &list); err != nil {
		cancel()
		s.close()
		return nil, errors.WrapErr(errors.ConfigurationUnavailable, err, "failed to load settings")
	}

	s.cacheMu.Lock()
	for _, entry := range list {
		if _, ok := s.refreshed[entry.Key]; ok {
			continue
		}
		if entry.Value != nil {
			s.cache[entry.Key] = *entry.Value
		}
	}
	s.refreshed = nil
	s.cacheMu.Unlock()
	return s, nil
}

// callback is invoked on collection changes, refreshing the cache and
// notifying the subscribers
func (s *MongoSource) callback(op string, wKey any) {
	key, ok := wKey.(*string)
	// failure should logically never happen, but lets handle just incase
	if !ok || !isKnown(*key) {
		return
	}

	entry := &setting{}
	err := s.col.FindOne(context.Background(), *key, entry)
	if err != nil && !errors.IsNotFound(err) {
		// keep serving the cached value, the next change will
		// refresh it
		klog.Errorf("config: failed to refresh %s after %s: %s", *key, op, err)
		return
	}

	s.cacheMu.Lock()
	if s.refreshed != nil {
		s.refreshed[*key] = struct{}{}
	}
	old := maps.Clone(s.cache)
	if err != nil || entry.Value == nil {
		delete(s.cache, *key)
	} else {
		s.cache[*key] = utils.Value(entry.Value)
	}
	changed := changedKeys(old, s.cache)
	s.cacheMu.Unlock()

	for _, k := range changed {
		s.notify(k)
	}
}

func isKnown(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// GetString implements Source.
func (s *MongoSource) GetString(key string) (string, bool, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	v, ok := s.cache[key]
	return v, ok, nil
}

// GetInt implements Source.
func (s *MongoSource) GetInt(key string) (int, bool, error) {
	v, ok, err := s.GetString(key)
	return parseInt(key, v, ok, err)
}

// Set stores the value of key in the collection, the cache is updated
// once the change is observed on the watch.
func (s *MongoSource) Set(ctx context.Context, key, value string) error {
	if !isKnown(key) {
		return errors.Wrapf(errors.InvalidArgument, "unknown setting %s", key)
	}
	return s.col.UpdateOne(ctx, key, bson.M{"value": value}, true)
}

// Delete removes the value of key from the collection.
func (s *MongoSource) Delete(ctx context.Context, key string) error {
	return s.col.DeleteOne(ctx, key)
}

// Reset removes all the throttling settings from the collection,
// leaving every key unset, and returns the number of removed values.
func (s *MongoSource) Reset(ctx context.Context) (int64, error) {
	return s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": Keys}})
}

// Close implements Source.
func (s *MongoSource) Close() error {
	s.cancel()
	s.close()
	return nil
}
