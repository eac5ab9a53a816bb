// Package metrics exposes Prometheus collectors for the relay pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "link_relay"

// Recorder is the metrics surface used by the pipeline.
type Recorder interface {
	RecordGateCheck(outcome string)
	RecordResolve(outcome string)
	RecordOutbound(kind string, ok bool)
	SetRegisteredUsers(count int)
}

// Collector records pipeline metrics in Prometheus collectors.
type Collector struct {
	gateChecks      *prometheus.CounterVec
	resolves        *prometheus.CounterVec
	outbound        *prometheus.CounterVec
	registeredUsers prometheus.Gauge
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_checks_total",
			Help:      "Membership gate checks by outcome.",
		}, []string{"outcome"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolves_total",
			Help:      "Link resolutions by outcome.",
		}, []string{"outcome"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_actions_total",
			Help:      "Outbound Telegram actions by kind and result.",
		}, []string{"kind", "result"}),
		registeredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_users",
			Help:      "Distinct users recorded since process start.",
		}),
	}

	reg.MustRegister(c.gateChecks, c.resolves, c.outbound, c.registeredUsers)

	return c
}

// RecordGateCheck counts a gate decision ("member", "not_member").
func (c *Collector) RecordGateCheck(outcome string) {
	c.gateChecks.WithLabelValues(outcome).Inc()
}

// RecordResolve counts a resolution outcome ("ok", "no_code", "upstream_status", "error").
func (c *Collector) RecordResolve(outcome string) {
	c.resolves.WithLabelValues(outcome).Inc()
}

// RecordOutbound counts one outbound action.
func (c *Collector) RecordOutbound(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.outbound.WithLabelValues(kind, result).Inc()
}

// SetRegisteredUsers sets the registry size gauge.
func (c *Collector) SetRegisteredUsers(count int) {
	c.registeredUsers.Set(float64(count))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordGateCheck(string) {}

func (Nop) RecordResolve(string) {}

func (Nop) RecordOutbound(string, bool) {}

func (Nop) SetRegisteredUsers(int) {}
