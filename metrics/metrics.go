// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package metrics exports the throttling state as prometheus metrics.
// Metrics implements both rate.Observer and gate.Observer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/rate"
)

const namespace = "throttle"

// Metrics holds the collectors of a single service instance.
type Metrics struct {
	bytesGranted  *prometheus.CounterVec
	bytesRefused  *prometheus.CounterVec
	bytesRefilled *prometheus.CounterVec
	clients       prometheus.Gauge

	admitted *prometheus.CounterVec
	rejected *prometheus.CounterVec
	active   *prometheus.GaugeVec
}

var (
	_ rate.Observer = &Metrics{}
	_ gate.Observer = &Metrics{}
)

// New creates the collectors and registers them with reg, when reg is
// nil the collectors are not registered anywhere.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		bytesGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate",
			Name:      "granted_bytes_total",
			Help:      "Bytes granted by the rate limiter per scope.",
		}, []string{"scope"}),
		bytesRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate",
			Name:      "refused_bytes_total",
			Help:      "Bytes refused or abandoned by the rate limiter per scope.",
		}, []string{"scope"}),
		bytesRefilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate",
			Name:      "refilled_bytes_total",
			Help:      "Bytes given back by the refill task per scope.",
		}, []string{"scope"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rate",
			Name:      "tracked_clients",
			Help:      "Number of clients with a rate budget.",
		}),
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "admitted_total",
			Help:      "Operations admitted by the concurrency gate.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "rejected_total",
			Help:      "Operations refused by the concurrency gate.",
		}, []string{"kind"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "active",
			Help:      "Operations currently counted in by the concurrency gate.",
		}, []string{"kind"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.bytesGranted,
		m.bytesRefused,
		m.bytesRefilled,
		m.clients,
		m.admitted,
		m.rejected,
		m.active,
	}
}

// Granted implements rate.Observer.
func (m *Metrics) Granted(scope string, n int64) {
	m.bytesGranted.WithLabelValues(scope).Add(float64(n))
}

// Refused implements rate.Observer.
func (m *Metrics) Refused(scope string, n int64) {
	m.bytesRefused.WithLabelValues(scope).Add(float64(n))
}

// Refilled implements rate.Observer.
func (m *Metrics) Refilled(scope string, n int64) {
	m.bytesRefilled.WithLabelValues(scope).Add(float64(n))
}

// TrackedClients implements rate.Observer.
func (m *Metrics) TrackedClients(n int) {
	m.clients.Set(float64(n))
}

// Admitted implements gate.Observer.
func (m *Metrics) Admitted(kind gate.Kind) {
	m.admitted.WithLabelValues(kind.String()).Inc()
}

// Rejected implements gate.Observer.
func (m *Metrics) Rejected(kind gate.Kind) {
	m.rejected.WithLabelValues(kind.String()).Inc()
}

// Active implements gate.Observer.
func (m *Metrics) Active(kind gate.Kind, n int64) {
	m.active.WithLabelValues(kind.String()).Set(float64(n))
}
