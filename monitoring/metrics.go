package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

// Metrics exports controller and node state as Prometheus metrics. It is a
// sweep observer and a controller hook at the same time.
type Metrics struct {
	registry  *prometheus.Registry
	sweeps    *prometheus.CounterVec
	failures  *prometheus.CounterVec
	nodeValue *prometheus.GaugeVec
	simTime   prometheus.Gauge
}

// NewMetrics creates the metrics in a registry of their own.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalflow_sweeps_total",
			Help: "Total count of completed sweeps by controller.",
		}, []string{"controller"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalflow_failures_total",
			Help: "Total count of failed sweeps and observers by controller.",
		}, []string{"controller", "kind"}),
		nodeValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalflow_node_value",
			Help: "Output of a node after the latest sweep.",
		}, []string{"node", "controller", "unit"}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalflow_sim_time_seconds",
			Help: "Simulated time of the latest sweep.",
		}),
	}

	m.registry.MustRegister(m.sweeps, m.failures, m.nodeValue, m.simTime)

	return m
}

// Registry returns the registry that holds the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe subscribes the metrics to a controller and hooks into its failure
// reports. The controller must have passed early init, which drops all
// observers.
func (m *Metrics) Observe(c *calc.Controller) {
	c.Subscribe(m)
	c.AcceptHook(m)
}

// SweepCompleted records the values of all the nodes bound to the controller.
func (m *Metrics) SweepCompleted(c *calc.Controller, now sim.VTimeInSec) error {
	m.sweeps.WithLabelValues(c.Name()).Inc()
	m.simTime.Set(float64(now))

	for _, n := range c.BoundNodes() {
		m.nodeValue.
			WithLabelValues(n.Name(), c.Name(), n.OutputUnit().String()).
			Set(n.LastValue())
	}

	return nil
}

// Func counts failed sweeps and failed observers.
func (m *Metrics) Func(ctx sim.HookCtx) {
	c, ok := ctx.Domain.(*calc.Controller)
	if !ok {
		return
	}

	switch ctx.Pos {
	case calc.HookPosSweepEnd:
		if ctx.Detail != nil {
			m.failures.WithLabelValues(c.Name(), "sweep").Inc()
		}
	case calc.HookPosObserverFailure:
		m.failures.WithLabelValues(c.Name(), "observer").Inc()
	}
}
