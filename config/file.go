// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
)

// FileSource reads the values from a yaml, json or toml file, watching
// it for changes. Values can be overridden by environment variables
// named after the key in upper case with dots replaced by underscores.
type FileSource struct {
	notifier
	path string
	v    *viper.Viper

	// viper is not safe for concurrent use while watching, values are
	// served from a snapshot taken on every change
	mu       sync.RWMutex
	snapshot map[string]string
}

// NewFileSource reads the file at path and starts watching it.
func NewFileSource(path string) (*FileSource, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapErr(errors.ConfigurationUnavailable, err, "failed to read config file %s", path)
	}

	s := &FileSource{
		path: path,
		v:    v,
	}
	s.snapshot = s.load()
	s.init()

	v.OnConfigChange(func(in fsnotify.Event) {
		cur := s.load()
		s.mu.Lock()
		old := s.snapshot
		s.snapshot = cur
		s.mu.Unlock()

		changed := changedKeys(old, cur)
		klog.V(2).Infof("config: %s changed (%s), keys %v", path, in.Op, changed)
		for _, k := range changed {
			s.notify(k)
		}
	})
	v.WatchConfig()
	klog.Infof("config: reading throttling limits from %s", path)
	return s, nil
}

// values of the known keys as currently seen by viper
func (s *FileSource) load() map[string]string {
	values := map[string]string{}
	for _, k := range Keys {
		if s.v.IsSet(k) {
			values[k] = s.v.GetString(k)
		}
	}
	return values
}

// Path returns the file the values are read from.
func (s *FileSource) Path() string {
	return s.path
}

// GetString implements Source.
func (s *FileSource) GetString(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.snapshot[key]
	return v, ok, nil
}

// GetInt implements Source.
func (s *FileSource) GetInt(key string) (int, bool, error) {
	v, ok, err := s.GetString(key)
	return parseInt(key, v, ok, err)
}

// Close implements Source. Viper keeps watching the file, changes are
// no longer delivered.
func (s *FileSource) Close() error {
	s.close()
	return nil
}
