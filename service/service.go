// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package service owns the throttling state of a sync backend process.
//
// The byte rate limiter and the concurrency gate are created once from
// the configuration source and live until the service stops. Changes
// of the maximum concurrent operations apply to the next admission,
// changes of the byte rates apply to the next service created from
// the source.
package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/config"
	"github.com/go-core-stack/throttle/engine"
	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/metrics"
	"github.com/go-core-stack/throttle/rate"
	"github.com/go-core-stack/throttle/timer"
	"github.com/go-core-stack/throttle/transfer"
)

// Options of the service, all optional
type Options struct {
	// registers the throttling metrics when set
	Registerer prometheus.Registerer

	// creates the refill runner, timer.NewRunner if not set
	TimerFactory timer.Factory

	// advertised to clients refused by the gate
	RetryAfter time.Duration
}

// Service holds the limiter and the gate of the process.
type Service struct {
	src        config.Source
	rates      rate.LimiterConfig
	limiter    *rate.Limiter
	gate       *gate.Gate
	metrics    *metrics.Metrics
	newRunner  timer.Factory
	retryAfter time.Duration

	mu     sync.Mutex
	refill timer.Runner
	sub    *config.Subscription
	cancel context.CancelFunc
}

// New reads the byte rates from src and creates the limiter and the
// gate. A malformed byte rate fails the creation.
func New(src config.Source, opts Options) (*Service, error) {
	if src == nil {
		return nil, errors.Wrap(errors.InvalidArgument, "configuration source not provided")
	}
	rates, err := config.LimiterConfig(src)
	if err != nil {
		return nil, err
	}

	m, err := metrics.New(opts.Registerer)
	if err != nil {
		return nil, errors.WrapErr(errors.AlreadyExists, err, "failed to register metrics")
	}

	s := &Service{
		src:        src,
		rates:      rates,
		metrics:    m,
		newRunner:  opts.TimerFactory,
		retryAfter: opts.RetryAfter,
	}
	if s.newRunner == nil {
		s.newRunner = timer.NewRunner
	}

	cfg := rates
	cfg.Observer = m
	s.limiter = rate.NewLimiter(cfg)
	s.gate = gate.New(config.LimitResolver(src), m)
	return s, nil
}

// Start the refill of the limiter and the tracking of configuration
// changes, both stop when ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return errors.Wrap(errors.AlreadyExists, "service already started")
	}
	ctx, cancel := context.WithCancel(ctx)

	if s.limiter.Enabled() {
		refill := s.newRunner(s.limiter.TickInterval(), s.limiter.Refill)
		if err := refill.Start(ctx); err != nil {
			cancel()
			return err
		}
		s.refill = refill
	}

	sub, err := s.src.Subscribe(s.onChange)
	if err != nil {
		if s.refill != nil {
			s.refill.Stop()
			s.refill = nil
		}
		cancel()
		return err
	}
	s.sub = sub
	s.cancel = cancel

	go func() {
		<-ctx.Done()
		s.stop(sub)
	}()
	klog.Infof("service: throttling started, limiter enabled %v", s.limiter.Enabled())
	return nil
}

// Stop the refill and the tracking of configuration changes, it is
// safe to call multiple times.
func (s *Service) Stop() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	s.stop(sub)
}

// stop the run tracked by sub, a later run is left alone
func (s *Service) stop(sub *config.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub == nil || s.sub != sub {
		return
	}
	s.cancel()
	s.sub.Cancel()
	s.sub = nil
	if s.refill != nil {
		s.refill.Stop()
		s.refill = nil
	}
	klog.Infof("service: throttling stopped")
}

// onChange is the reload callback of the configuration source
func (s *Service) onChange(key string) {
	if config.IsRateKey(key) {
		rates, err := config.LimiterConfig(s.src)
		if err != nil {
			klog.Warningf("service: ignoring invalid %s: %s", key, err)
			return
		}
		if rates.GlobalRate != s.rates.GlobalRate ||
			rates.PerClientRate != s.rates.PerClientRate ||
			rates.TicksPerSecond != s.rates.TicksPerSecond {
			klog.Warningf("service: %s changed, byte rates take effect on process restart", key)
		}
		return
	}
	for _, kind := range gate.Kinds {
		if config.MaxConcurrentKey(kind) == key {
			s.gate.Invalidate(kind)
			klog.V(2).Infof("service: maximum of %s invalidated", kind)
		}
	}
}

// Limiter returns the byte rate limiter.
func (s *Service) Limiter() *rate.Limiter {
	return s.limiter
}

// Gate returns the concurrency gate.
func (s *Service) Gate() *gate.Gate {
	return s.gate
}

// Wrap returns eng with its bounded work operations gated.
func (s *Service) Wrap(eng engine.Engine) *engine.Throttled {
	return engine.NewThrottled(eng, s.gate)
}

// Router returns the http handler serving eng, throttled.
func (s *Service) Router(eng engine.Engine) http.Handler {
	return transfer.NewRouter(s.Wrap(eng), s.limiter, s.gate, transfer.Options{
		RetryAfter: s.retryAfter,
	})
}
