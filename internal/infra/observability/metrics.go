package observability

import (
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	assessments     *prometheus.CounterVec
	levies          *prometheus.CounterVec
	priceSources    *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
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
				Name:    "zakah_assessment_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		assessments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_assessments_total",
				Help: "Assessments computed, by nisab outcome.",
			},
			[]string{"nisab"},
		),
		levies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_levy_total",
				Help: "Sum of levies assessed, by kind.",
			},
			[]string{"kind"},
		),
		priceSources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_price_source_total",
				Help: "Price quotes used, by source.",
			},
			[]string{"source"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zakah_requests_total",
				Help: "Total assessment requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordAssessment counts one assessment and adds its levies.
func (m *Metrics) RecordAssessment(a domain.ZakahAssessment) {
	outcome := "below"
	if a.AboveNisab {
		outcome = "above"
	}
	m.assessments.WithLabelValues(outcome).Inc()
	m.levies.WithLabelValues("standard").Add(a.StandardLevy.InexactFloat64())
	m.levies.WithLabelValues("agriculture").Add(a.AgricultureLevy.InexactFloat64())
}

// IncrPriceSource counts a quote taken from source.
func (m *Metrics) IncrPriceSource(source domain.PriceSource) {
	m.priceSources.WithLabelValues(string(source)).Inc()
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

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// Snapshot reads the counters back into the GET /v1/metrics/summary shape.
// Values are cumulative since process start.
func (m *Metrics) Snapshot() *domain.ServiceMetrics {
	above := getCounterValue(m.assessments, "above")
	below := getCounterValue(m.assessments, "below")
	total := above + below

	hits := getCounterValue(m.cacheHits, "prices")
	misses := getCounterValue(m.cacheMisses, "prices")

	success := getCounterValue(m.requestsTotal, "success")
	failed := getCounterValue(m.requestsTotal, "error")

	snap := &domain.ServiceMetrics{
		TotalAssessments:     int64(total),
		StandardLevyTotal:    getCounterValue(m.levies, "standard"),
		AgricultureLevyTotal: getCounterValue(m.levies, "agriculture"),
		PriceFeedQuotes:      int64(getCounterValue(m.priceSources, string(domain.PriceSourceFeed))),
		StaticFallbacks:      int64(getCounterValue(m.priceSources, string(domain.PriceSourceStatic))),
		Period:               "all_time",
	}
	if total > 0 {
		snap.AboveNisabRate = above / total
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	if success+failed > 0 {
		snap.ErrorRate = failed / (success + failed)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
