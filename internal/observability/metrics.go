package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the researcher profile service.
// Metrics are organized by subsystem: profiles, sources, citations, enrichment,
// and description generation. All collectors are registered via promauto with
// the default Prometheus registry.
type Metrics struct {
	// ProfileFetches counts profile fetches, labeled by outcome
	// (cache_hit, fetched, failed).
	ProfileFetches *prometheus.CounterVec

	// ProfileFetchDuration observes end-to-end profile reconciliation
	// duration in seconds.
	ProfileFetchDuration prometheus.Histogram

	// PublicationsPerProfile observes the number of valid publications per
	// fetched profile.
	PublicationsPerProfile prometheus.Histogram

	// SourceRequestsTotal counts requests to bibliographic source APIs,
	// labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed requests to bibliographic source
	// APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes request duration to bibliographic
	// source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// CitationLookups counts citation resolution lookups, labeled by outcome
	// (matched, unmatched, failed).
	CitationLookups *prometheus.CounterVec

	// EnrichmentBatches counts supplementary-data batches, labeled by outcome
	// (completed, aborted).
	EnrichmentBatches *prometheus.CounterVec

	// EnrichmentWorks counts works enriched with supplementary data.
	EnrichmentWorks prometheus.Counter

	// DescriptionsGenerated counts researcher descriptions generated.
	DescriptionsGenerated prometheus.Counter

	// IdentityMatches counts cross-source identity matches, labeled by
	// outcome (matched, unmatched).
	IdentityMatches *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ProfileFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_fetches_total",
			Help:      "Total number of profile fetches by outcome",
		}, []string{"outcome"}),
		ProfileFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_fetch_duration_seconds",
			Help:      "Duration of profile reconciliation in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		PublicationsPerProfile: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publications_per_profile",
			Help:      "Number of valid publications per fetched profile",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to bibliographic sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to bibliographic sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to bibliographic sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from sources",
		}, []string{"source"}),
		CitationLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_lookups_total",
			Help:      "Total number of citation resolution lookups by outcome",
		}, []string{"outcome"}),
		EnrichmentBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_batches_total",
			Help:      "Total number of supplementary-data batches by outcome",
		}, []string{"outcome"}),
		EnrichmentWorks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_works_total",
			Help:      "Total number of works enriched with supplementary data",
		}),
		DescriptionsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptions_generated_total",
			Help:      "Total number of researcher descriptions generated",
		}),
		IdentityMatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_matches_total",
			Help:      "Total number of cross-source identity match attempts by outcome",
		}, []string{"outcome"}),
	}
}

// RecordProfileCacheHit records a profile served from the persisted cache.
func (m *Metrics) RecordProfileCacheHit() {
	m.ProfileFetches.WithLabelValues("cache_hit").Inc()
}

// RecordProfileFetched records a profile rebuilt from the sources.
func (m *Metrics) RecordProfileFetched(publicationCount int, durationSeconds float64) {
	m.ProfileFetches.WithLabelValues("fetched").Inc()
	m.ProfileFetchDuration.Observe(durationSeconds)
	m.PublicationsPerProfile.Observe(float64(publicationCount))
}

// RecordProfileFetchFailed records a failed profile fetch.
func (m *Metrics) RecordProfileFetchFailed(durationSeconds float64) {
	m.ProfileFetches.WithLabelValues("failed").Inc()
	m.ProfileFetchDuration.Observe(durationSeconds)
}

// RecordSourceRequest records a request to a bibliographic source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a bibliographic source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordCitationLookup records one citation resolution lookup.
func (m *Metrics) RecordCitationLookup(outcome string) {
	m.CitationLookups.WithLabelValues(outcome).Inc()
}

// RecordEnrichmentBatch records a supplementary-data batch and how many works
// it enriched.
func (m *Metrics) RecordEnrichmentBatch(outcome string, works int) {
	m.EnrichmentBatches.WithLabelValues(outcome).Inc()
	m.EnrichmentWorks.Add(float64(works))
}

// RecordDescriptionGenerated records a generated researcher description.
func (m *Metrics) RecordDescriptionGenerated() {
	m.DescriptionsGenerated.Inc()
}

// RecordIdentityMatch records a cross-source identity match attempt.
func (m *Metrics) RecordIdentityMatch(matched bool) {
	outcome := "unmatched"
	if matched {
		outcome = "matched"
	}
	m.IdentityMatches.WithLabelValues(outcome).Inc()
}
