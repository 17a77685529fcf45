package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the consignado API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	pipelineSteps    *prometheus.CounterVec
	proposalsCreated *prometheus.CounterVec
}

// PipelineSnapshot is an aggregate view of contracting activity, served by
// GET /v1/metrics/pipeline.
type PipelineSnapshot struct {
	ProposalsCreated   int64   `json:"proposals_created"`
	ProposalsSucceeded int64   `json:"proposals_succeeded"`
	ProposalsFailed    int64   `json:"proposals_failed"`
	SuccessRate        float64 `json:"success_rate"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "consignado_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consignado_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consignado_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consignado_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		pipelineSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consignado_pipeline_steps_total",
				Help: "Contracting pipeline steps executed, by outcome.",
			},
			[]string{"step", "outcome"},
		),
		proposalsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consignado_proposals_total",
				Help: "Proposal records persisted, by terminal status.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrPipelineStep records one executed pipeline step and its outcome
// ("ok" or "error").
func (m *Metrics) IncrPipelineStep(step, outcome string) {
	m.pipelineSteps.WithLabelValues(step, outcome).Inc()
}

// IncrProposalCreated records a persisted proposal by terminal status.
func (m *Metrics) IncrProposalCreated(status string) {
	m.proposalsCreated.WithLabelValues(status).Inc()
}

// GetPipelineSnapshot returns an aggregate of contracting activity suitable
// for the GET /v1/metrics/pipeline endpoint.
func (m *Metrics) GetPipelineSnapshot() *PipelineSnapshot {
	succeeded := getCounterValue(m.proposalsCreated, "aguardando_assinatura")
	failed := getCounterValue(m.proposalsCreated, "erro_simulacao") +
		getCounterValue(m.proposalsCreated, "erro_dados") +
		getCounterValue(m.proposalsCreated, "erro_proposta")
	total := succeeded + failed

	cacheHits := getCounterValue(m.cacheHits, "proposals")
	cacheMisses := getCounterValue(m.cacheMisses, "proposals")

	successRate := float64(0)
	if total > 0 {
		successRate = succeeded / total
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &PipelineSnapshot{
		ProposalsCreated:   int64(total),
		ProposalsSucceeded: int64(succeeded),
		ProposalsFailed:    int64(failed),
		SuccessRate:        successRate,
		CacheHitRate:       cacheHitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
