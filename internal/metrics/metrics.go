// Package metrics instruments the engine with a small set of Prometheus
// collectors: HTTP request outcomes and worker-pool throughput.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors the engine updates. It is always
// constructed, but only ever scraped when --metrics-addr is set.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
	TasksProcessed     *prometheus.CounterVec
	TasksOutstanding   prometheus.Gauge
}

// New builds and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "git_dumper",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP GET attempts made against the target, by status code.",
		}, []string{"status"}),
		HTTPRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "git_dumper",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP GET attempts against the target.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "git_dumper",
			Subsystem: "tasks",
			Name:      "processed_total",
			Help:      "Total tasks processed, by phase.",
		}, []string{"phase"}),
		TasksOutstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "git_dumper",
			Subsystem: "tasks",
			Name:      "outstanding",
			Help:      "Tasks currently enqueued or in flight in the active phase.",
		}),
	}

	reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestSeconds, m.TasksProcessed, m.TasksOutstanding)
	return m
}
