// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"maps"
	"sync"

	"github.com/go-core-stack/throttle/errors"
)

// MemorySource keeps the values in process memory.
type MemorySource struct {
	notifier
	mu     sync.RWMutex
	values map[string]string
	err    error
}

// NewMemorySource creates a source holding a copy of values.
func NewMemorySource(values map[string]string) *MemorySource {
	s := &MemorySource{
		values: map[string]string{},
	}
	maps.Copy(s.values, values)
	s.init()
	return s
}

// GetString implements Source.
func (s *MemorySource) GetString(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// GetInt implements Source.
func (s *MemorySource) GetInt(key string) (int, bool, error) {
	v, ok, err := s.GetString(key)
	return parseInt(key, v, ok, err)
}

// Set the value of key, subscribers are notified if it changed.
func (s *MemorySource) Set(key, value string) {
	s.mu.Lock()
	old, ok := s.values[key]
	s.values[key] = value
	s.mu.Unlock()
	if !ok || old != value {
		s.notify(key)
	}
}

// Delete the value of key, subscribers are notified if it was set.
func (s *MemorySource) Delete(key string) {
	s.mu.Lock()
	_, ok := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()
	if ok {
		s.notify(key)
	}
}

// Fail makes the source unavailable until called again with nil, all
// keys are notified on every transition.
func (s *MemorySource) Fail(err error) {
	if err != nil {
		err = errors.WrapErr(errors.ConfigurationUnavailable, err, "memory source failed")
	}
	s.mu.Lock()
	changed := (s.err == nil) != (err == nil)
	s.err = err
	s.mu.Unlock()
	if changed {
		for _, k := range Keys {
			s.notify(k)
		}
	}
}

// Close implements Source.
func (s *MemorySource) Close() error {
	s.close()
	return nil
}
