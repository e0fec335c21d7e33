// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes binding internals as Prometheus metrics. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "audbind"

// Callback outcomes.
const (
	ResultOK    = "ok"
	ResultGone  = "gone"
	ResultPanic = "panic"
)

// Metrics holds the binding collectors.
type Metrics struct {
	pinsActive     prometheus.Gauge
	pinEvents      *prometheus.CounterVec
	handlesOpen    *prometheus.GaugeVec
	registrations  *prometheus.GaugeVec
	callbacks      *prometheus.CounterVec
	nativeFailures *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pinsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pins_active",
			Help:      "Caller buffers currently pinned for the engine.",
		}),
		pinEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_events_total",
			Help:      "Buffer pins and releases.",
		}, []string{"event"}),
		handlesOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handles_open",
			Help:      "Live engine handles tracked by the binding.",
		}, []string{"kind"}),
		registrations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "callback_registrations",
			Help:      "Live callback registrations.",
		}, []string{"kind"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_invocations_total",
			Help:      "Engine callback invocations by outcome (ok, gone, panic).",
		}, []string{"kind", "result"}),
		nativeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_failures_total",
			Help:      "Failed engine calls by operation and error code.",
		}, []string{"op", "code"}),
	}

	if reg != nil {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.pinsActive.Describe(ch)
	m.pinEvents.Describe(ch)
	m.handlesOpen.Describe(ch)
	m.registrations.Describe(ch)
	m.callbacks.Describe(ch)
	m.nativeFailures.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.pinsActive.Collect(ch)
	m.pinEvents.Collect(ch)
	m.handlesOpen.Collect(ch)
	m.registrations.Collect(ch)
	m.callbacks.Collect(ch)
	m.nativeFailures.Collect(ch)
}

func (m *Metrics) PinAcquired() {
	if m == nil {
		return
	}
	m.pinsActive.Inc()
	m.pinEvents.WithLabelValues("pinned").Inc()
}

func (m *Metrics) PinReleased() {
	if m == nil {
		return
	}
	m.pinsActive.Dec()
	m.pinEvents.WithLabelValues("released").Inc()
}

func (m *Metrics) HandleOpened(kind string) {
	if m == nil {
		return
	}
	m.handlesOpen.WithLabelValues(kind).Inc()
}

func (m *Metrics) HandleClosed(kind string) {
	if m == nil {
		return
	}
	m.handlesOpen.WithLabelValues(kind).Dec()
}

func (m *Metrics) RegistrationAdded(kind string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(kind).Inc()
}

func (m *Metrics) RegistrationRemoved(kind string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(kind).Dec()
}

func (m *Metrics) CallbackInvoked(kind, result string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) NativeFailure(op, code string) {
	if m == nil {
		return
	}
	m.nativeFailures.WithLabelValues(op, code).Inc()
}
