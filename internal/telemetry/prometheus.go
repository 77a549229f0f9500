package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records scheduling events as Prometheus metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	suggestions      *prometheus.CounterVec
	slotsFound       prometheus.Histogram
	requiredDuration prometheus.Histogram
	autoScheduled    *prometheus.CounterVec
	emptySuggestions prometheus.Counter
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sowilo_smart_slots_generated_total",
			Help: "Total number of slot suggestion passes",
		}, []string{"priority"}),
		slotsFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sowilo_slots_found",
			Help:    "Number of candidate slots found per suggestion pass",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		requiredDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sowilo_required_duration_seconds",
			Help:    "Required task duration per suggestion pass",
			Buckets: []float64{900, 1200, 1800, 3600, 5400, 7200, 14400},
		}),
		autoScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sowilo_task_auto_scheduled_total",
			Help: "Total number of tasks committed to a slot",
		}, []string{"priority", "deep_work"}),
		emptySuggestions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sowilo_suggestions_empty_total",
			Help: "Suggestion passes that found no slot",
		}),
	}

	c.registry.MustRegister(
		c.suggestions,
		c.slotsFound,
		c.requiredDuration,
		c.autoScheduled,
		c.emptySuggestions,
	)
	return c
}

// SlotsGenerated implements Recorder.
func (c *Collector) SlotsGenerated(e SlotsGenerated) {
	c.suggestions.WithLabelValues(strconv.Itoa(e.Priority)).Inc()
	c.slotsFound.Observe(float64(e.SlotsFound))
	c.requiredDuration.Observe(e.RequiredDuration.Seconds())
	if e.SlotsFound == 0 {
		c.emptySuggestions.Inc()
	}
}

// TaskAutoScheduled implements Recorder.
func (c *Collector) TaskAutoScheduled(e TaskAutoScheduled) {
	c.autoScheduled.WithLabelValues(strconv.Itoa(e.Priority), strconv.FormatBool(e.IsDeepWork)).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
