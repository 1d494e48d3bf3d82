// Package metrics exposes Prometheus instrumentation for the tap logger:
// outbox depth, flush outcomes, tap counts, and remote reachability.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles all metrics on a private registry so tests can create
// as many instances as they like without duplicate-registration panics.
type Collector struct {
	reg *prometheus.Registry

	OutboxDepth prometheus.Gauge
	Online      prometheus.Gauge

	TapsRecorded     *prometheus.CounterVec // action label: on|off|manual
	FlushAttempts    prometheus.Counter
	FlushFailures    prometheus.Counter
	EntriesDelivered prometheus.Counter
}

// NewCollector builds and registers all tap logger metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		OutboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taplog_outbox_depth",
			Help: "Number of log entries queued locally awaiting delivery.",
		}),
		Online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taplog_remote_online",
			Help: "1 if the remote log store is reachable, 0 otherwise.",
		}),
		TapsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taplog_taps_recorded_total",
			Help: "Total confirmed tap events enqueued.",
		}, []string{"action"}),
		FlushAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taplog_flush_attempts_total",
			Help: "Total outbox flush attempts.",
		}),
		FlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taplog_flush_failures_total",
			Help: "Total flush attempts that left the outbox untouched.",
		}),
		EntriesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taplog_entries_delivered_total",
			Help: "Total log entries acknowledged by the remote store.",
		}),
	}

	reg.MustRegister(
		c.OutboxDepth, c.Online,
		c.TapsRecorded, c.FlushAttempts, c.FlushFailures, c.EntriesDelivered,
	)
	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
