// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/rate"
)

// ByteRate returns the rate configured for key in bytes per second,
// rate.Unlimited when it is not set.
func ByteRate(src Source, key string) (int64, error) {
	v, ok, err := src.GetString(key)
	if err != nil {
		return rate.Unlimited, err
	}
	if !ok {
		return rate.Unlimited, nil
	}
	n, err := rate.ParseByteRate(v)
	if err != nil {
		return rate.Unlimited, errors.WrapErr(errors.MalformedLimitValue, err, "invalid value for %s", key)
	}
	return n, nil
}

// LimiterConfig reads the rate limiter settings from the source, a
// malformed value fails the whole read.
func LimiterConfig(src Source) (rate.LimiterConfig, error) {
	cfg := rate.LimiterConfig{}
	var err error
	if cfg.GlobalRate, err = ByteRate(src, RateOverallKey); err != nil {
		return cfg, err
	}
	if cfg.PerClientRate, err = ByteRate(src, RatePerClientKey); err != nil {
		return cfg, err
	}
	ticks, ok, err := src.GetInt(RateTicksKey)
	if err != nil {
		return cfg, err
	}
	if ok {
		if ticks <= 0 {
			return cfg, errors.Wrapf(errors.MalformedLimitValue, "invalid value %d for %s", ticks, RateTicksKey)
		}
		cfg.TicksPerSecond = ticks
	}
	return cfg, nil
}

// MaxConcurrentKey returns the key configuring the maximum of kind.
func MaxConcurrentKey(kind gate.Kind) string {
	switch kind {
	case gate.FileTransfer:
		return MaxFileTransfersKey
	case gate.SyncOperation:
		return MaxSyncOperationsKey
	}
	return ""
}

type limitResolver struct {
	src Source
}

// LimitResolver resolves the gate maxima from the source.
func LimitResolver(src Source) gate.LimitResolver {
	return &limitResolver{src: src}
}

// MaxConcurrent implements gate.LimitResolver.
func (r *limitResolver) MaxConcurrent(kind gate.Kind) (int, error) {
	key := MaxConcurrentKey(kind)
	if key == "" {
		return gate.Unlimited, errors.Wrapf(errors.InvalidArgument, "unknown gate kind %s", kind)
	}
	v, ok, err := r.src.GetInt(key)
	if err != nil {
		return gate.Unlimited, err
	}
	if !ok {
		return gate.Unlimited, nil
	}
	return v, nil
}
