package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the notepad.
type Metrics struct {
	// Language-model calls (kind = plan|refine, backend = model|mock)
	LLMCalls   *prometheus.CounterVec
	LLMLatency *prometheus.HistogramVec
	LLMErrors  *prometheus.CounterVec

	// Workflow metrics
	UpdatesCreated *prometheus.CounterVec
	Verdicts       *prometheus.CounterVec
	BusyRejections prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		LLMCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_llm_calls_total",
				Help: "Total number of plan/refine calls",
			},
			[]string{"kind", "backend", "success"},
		),
		LLMLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notepad_llm_latency_seconds",
				Help:    "Plan/refine call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"kind", "backend"},
		),
		LLMErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_llm_errors_total",
				Help: "Total number of plan/refine failures",
			},
			[]string{"kind", "error_code"},
		),
		UpdatesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_updates_created_total",
				Help: "Total number of updates created",
			},
			[]string{"type"},
		),
		Verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_step_verdicts_total",
				Help: "Total number of checklist verdicts recorded",
			},
			[]string{"verdict"},
		),
		BusyRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notepad_generation_busy_total",
				Help: "Generations rejected because another was in flight",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_http_requests_total",
				Help: "Total number of HTTP API requests",
			},
			[]string{"route", "status"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_errors_total",
				Help: "Total number of errors by code",
			},
			[]string{"code"},
		),
	}
}

// NewRegistry creates a new Prometheus registry with metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// HandlerFor returns an HTTP handler for a specific registry.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RecordLLMCall records the outcome and latency of a plan/refine call.
// A nil receiver is a no-op.
func (m *Metrics) RecordLLMCall(kind, backend string, d time.Duration, errCode string) {
	if m == nil {
		return
	}
	success := "true"
	if errCode != "" {
		success = "false"
		m.LLMErrors.WithLabelValues(kind, errCode).Inc()
	}
	m.LLMCalls.WithLabelValues(kind, backend, success).Inc()
	m.LLMLatency.WithLabelValues(kind, backend).Observe(d.Seconds())
}

// RecordVerdict counts a pass or fail verdict.
func (m *Metrics) RecordVerdict(verdict string) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(verdict).Inc()
}

// RecordUpdateCreated counts a new update by type.
func (m *Metrics) RecordUpdateCreated(updateType string) {
	if m == nil {
		return
	}
	m.UpdatesCreated.WithLabelValues(updateType).Inc()
}

// RecordBusy counts a generation rejected by the in-flight guard.
func (m *Metrics) RecordBusy() {
	if m == nil {
		return
	}
	m.BusyRejections.Inc()
}

// RecordError counts an error by its code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}

// RecordHTTP counts an HTTP API request by route pattern and status.
func (m *Metrics) RecordHTTP(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, http.StatusText(status)).Inc()
}
