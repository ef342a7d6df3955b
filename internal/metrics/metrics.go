package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the outreach service
type Metrics struct {
	// Action layer
	ActionsTotal          *prometheus.CounterVec
	ConfirmationsRequired *prometheus.CounterVec

	// Pipeline stages
	StageItemsTotal      *prometheus.CounterVec
	StageRunsTotal       *prometheus.CounterVec
	ProviderRetriesTotal *prometheus.CounterVec

	// API
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_actions_total",
				Help: "Total number of executed actions by type and outcome",
			},
			[]string{"action", "outcome"},
		),
		ConfirmationsRequired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_confirmations_required_total",
				Help: "Total number of actions halted at the confirmation gate",
			},
			[]string{"action"},
		),
		StageItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_stage_items_total",
				Help: "Total number of contacts processed by stage and result",
			},
			[]string{"stage", "result"},
		),
		StageRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_stage_runs_total",
				Help: "Total number of stage batches executed",
			},
			[]string{"stage"},
		),
		ProviderRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_provider_retries_total",
				Help: "Total number of rate-limit retries against providers",
			},
			[]string{"provider"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.ActionsTotal,
		m.ConfirmationsRequired,
		m.StageItemsTotal,
		m.StageRunsTotal,
		m.ProviderRetriesTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
	)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordStage records the per-item tallies of one stage batch
func (m *Metrics) RecordStage(stage string, succeeded, skipped, failed int) {
	m.StageRunsTotal.WithLabelValues(stage).Inc()
	m.StageItemsTotal.WithLabelValues(stage, "success").Add(float64(succeeded))
	m.StageItemsTotal.WithLabelValues(stage, "skipped").Add(float64(skipped))
	m.StageItemsTotal.WithLabelValues(stage, "failed").Add(float64(failed))
}
