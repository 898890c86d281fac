package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics wraps Prometheus collectors for stackwarden. The supervisor is
// a single-shot process, so collectors are pushed to a Pushgateway at the
// end of the cycle instead of being served over HTTP.
type Metrics struct {
	registry             *prometheus.Registry
	cycleDurationSeconds prometheus.Histogram
	checkResults         *prometheus.GaugeVec
	remediationsTotal    *prometheus.CounterVec
	notifyFailuresTotal  prometheus.Counter
	lastCycleGauge       prometheus.Gauge
	pusher               *push.Pusher
}

// New initializes a Metrics registry with all collectors registered.
// An empty pushgateway URL disables pushing; the collectors still record
// so tests can observe them.
func New(pushgatewayURL, job string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackwarden_cycle_duration_seconds",
			Help:    "Duration of supervision cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		checkResults: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackwarden_check_results",
			Help: "Check results by check name and severity (1 = current).",
		}, []string{"check", "severity"}),
		remediationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackwarden_remediations_total",
			Help: "Total remediation actions applied, by action.",
		}, []string{"action"}),
		notifyFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackwarden_notify_failures_total",
			Help: "Total failed notification deliveries.",
		}),
		lastCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackwarden_last_cycle_timestamp",
			Help: "Unix timestamp of the last completed cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.checkResults,
		m.remediationsTotal,
		m.notifyFailuresTotal,
		m.lastCycleGauge,
	)

	if pushgatewayURL != "" {
		m.pusher = push.New(pushgatewayURL, job).Gatherer(registry)
	}

	return m
}

// ObserveCycleDuration records the duration of a completed cycle.
func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
}

// SetCheckResult marks the current severity for a check.
func (m *Metrics) SetCheckResult(checkName, severity string) {
	if m == nil {
		return
	}
	m.checkResults.WithLabelValues(checkName, severity).Set(1)
}

// IncRemediation counts an applied remediation action.
func (m *Metrics) IncRemediation(action string) {
	if m == nil {
		return
	}
	m.remediationsTotal.WithLabelValues(action).Inc()
}

// IncNotifyFailure counts a failed notification delivery.
func (m *Metrics) IncNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailuresTotal.Inc()
}

// SetLastCycleTimestamp sets the completion time of the cycle.
func (m *Metrics) SetLastCycleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastCycleGauge.Set(float64(t.Unix()))
}

// Push delivers the collectors to the Pushgateway, if configured.
func (m *Metrics) Push(ctx context.Context) error {
	if m == nil || m.pusher == nil {
		return nil
	}
	return m.pusher.AddContext(ctx)
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
