// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics is the set of collectors the data screens report to. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	actions       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	staleFetches  *prometheus.CounterVec
	bulkItems     *prometheus.CounterVec
	screens       prometheus.Gauge
	jobRuns       *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratadata",
			Name:      "record_actions_total",
			Help:      "Record mutations by action and outcome.",
		}, []string{"category", "action", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stratadata",
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch a category's records from the store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category", "outcome"}),
		staleFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratadata",
			Name:      "stale_fetches_total",
			Help:      "Fetch responses discarded because a newer fetch was requested.",
		}, []string{"category"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratadata",
			Name:      "bulk_items_total",
			Help:      "Items processed by bulk actions.",
		}, []string{"action", "outcome"}),
		screens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stratadata",
			Name:      "open_screens",
			Help:      "Data screens currently held in memory.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratadata",
			Name:      "background_job_runs_total",
			Help:      "Background job executions by job and outcome.",
		}, []string{"job", "outcome"}),
	}
	m.reg.MustRegister(
		m.actions, m.fetchDuration, m.staleFetches, m.bulkItems, m.screens, m.jobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Action counts one record mutation. A nil receiver is a no-op so callers
// can run without metrics.
func (m *Metrics) Action(category, action string, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(category, action, outcome(err)).Inc()
}

// Fetch records how long a fetch took.
func (m *Metrics) Fetch(category string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(category, outcome(err)).Observe(time.Since(started).Seconds())
}

// StaleFetch counts a discarded fetch response.
func (m *Metrics) StaleFetch(category string) {
	if m == nil {
		return
	}
	m.staleFetches.WithLabelValues(category).Inc()
}

// BulkItems adds the per-item results of one bulk action.
func (m *Metrics) BulkItems(action string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.bulkItems.WithLabelValues(action, OutcomeOK).Add(float64(succeeded))
	m.bulkItems.WithLabelValues(action, OutcomeError).Add(float64(failed))
}

// SetScreens reports the number of live screens.
func (m *Metrics) SetScreens(n int) {
	if m == nil {
		return
	}
	m.screens.Set(float64(n))
}

// JobRun counts one background job execution.
func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome(err)).Inc()
}
