// Package metrics defines the prometheus collectors of the reconciliation engine.
// Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reconciliation"

type Metrics struct {
	gatherer prometheus.Gatherer

	runs                *prometheus.CounterVec
	runDuration         prometheus.Histogram
	discrepancies       *prometheus.CounterVec
	verifications       *prometheus.CounterVec
	corrections         *prometheus.CounterVec
	concurrencyWarnings prometheus.Counter
	resolutions         prometheus.Counter
	healthStatus        prometheus.Gauge
	openDiscrepancies   prometheus.Gauge
	outboxPublished     *prometheus.CounterVec
}

// New registers the collectors with reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total reconciliation passes by outcome status.",
		}, []string{"status"}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		discrepancies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "discrepancies_total",
			Help:      "Total discrepancy alerts raised by severity.",
		}, []string{"severity"}),

		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "verifications_total",
			Help:      "Total transaction verifications by result.",
		}, []string{"result"}),

		corrections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corrections",
			Name:      "applied_total",
			Help:      "Total balance corrections applied by type.",
		}, []string{"type"}),

		concurrencyWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corrections",
			Name:      "concurrency_warnings_total",
			Help:      "Corrections whose observed balance differed from the caller's current balance.",
		}),

		resolutions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discrepancies",
			Name:      "resolved_total",
			Help:      "Total discrepancy alerts resolved.",
		}),

		healthStatus: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "healthy",
			Help:      "Whether the last financial health check was HEALTHY (1) or not (0).",
		}),

		openDiscrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "open_discrepancies",
			Help:      "Open discrepancy alerts seen by the last health check.",
		}),

		outboxPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "messages_total",
			Help:      "Outbox messages handled by the poller by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ReconciliationRun(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(took.Seconds())
}

func (m *Metrics) DiscrepancyRaised(severity string) {
	if m == nil {
		return
	}
	m.discrepancies.WithLabelValues(severity).Inc()
}

func (m *Metrics) Verification(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "issues"
	}
	m.verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) CorrectionApplied(correctionType string, concurrencyWarning bool) {
	if m == nil {
		return
	}
	m.corrections.WithLabelValues(correctionType).Inc()
	if concurrencyWarning {
		m.concurrencyWarnings.Inc()
	}
}

func (m *Metrics) DiscrepancyResolved() {
	if m == nil {
		return
	}
	m.resolutions.Inc()
}

func (m *Metrics) HealthChecked(healthy bool, openDiscrepancies int) {
	if m == nil {
		return
	}
	if healthy {
		m.healthStatus.Set(1)
	} else {
		m.healthStatus.Set(0)
	}
	m.openDiscrepancies.Set(float64(openDiscrepancies))
}

// OutboxMessage counts one poller outcome: published, retry or failed
func (m *Metrics) OutboxMessage(result string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(result).Inc()
}

// Handler serves the registered collectors in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
