// Package metrics provides Prometheus metrics for a reflection runtime.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/module"
	"github.com/wippyai/reflect-runtime/registry"
	"github.com/wippyai/reflect-runtime/resource"
	"github.com/wippyai/reflect-runtime/types"
)

const namespace = "reflect"

// Collector holds all Prometheus metrics of a runtime.
type Collector struct {
	// Module metrics
	ModulesLoaded prometheus.Gauge
	ModuleUnloads prometheus.Counter
	TypesLive     prometheus.Gauge
	TypesDropped  prometheus.Counter

	// Registry metrics
	Associations *prometheus.CounterVec

	// Call metrics
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// New creates a collector with all metrics registered on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ModulesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "modules_loaded",
				Help:      "Number of currently loaded modules",
			},
		),
		ModuleUnloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_unloads_total",
				Help:      "Total number of module unloads",
			},
		),
		TypesLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "types_live",
				Help:      "Number of live type descriptors",
			},
		),
		TypesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "types_dropped_total",
				Help:      "Total number of type descriptors dropped",
			},
		),
		Associations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_associations_total",
				Help:      "Total native id associations by outcome",
			},
			[]string{"outcome"},
		),
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total function calls by function and outcome",
			},
			[]string{"function", "outcome"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Function call duration in seconds",
				Buckets:   []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"function"},
		),
	}
}

// ObserveModule records a module lifecycle event.
func (c *Collector) ObserveModule(e module.Event) {
	switch e.Type {
	case module.EventCreated:
		c.ModulesLoaded.Inc()
	case module.EventUnloaded:
		c.ModulesLoaded.Dec()
		c.ModuleUnloads.Inc()
	}
}

// ObserveAssociation records a registry association attempt.
func (c *Collector) ObserveAssociation(o registry.Outcome) {
	c.Associations.WithLabelValues(string(o)).Inc()
}

// ObserveCall records a finished call. Rejected calls are counted with
// their error kind and not timed.
func (c *Collector) ObserveCall(fn *types.Function, elapsed time.Duration, err error) {
	name := fn.FullName()
	outcome := "ok"
	if err != nil {
		outcome = string(errors.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	c.Calls.WithLabelValues(name, outcome).Inc()
	if elapsed > 0 {
		c.CallDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}

// OnResourceEvent tracks descriptor creation and drops in the type arena.
func (c *Collector) OnResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventCreated:
		c.TypesLive.Inc()
	case resource.EventDropped:
		c.TypesLive.Dec()
		c.TypesDropped.Inc()
	}
}

var _ resource.Observer = (*Collector)(nil)
