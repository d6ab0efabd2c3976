package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_profile_service_new")

	assert.NotNil(t, m.ProfileFetches)
	assert.NotNil(t, m.ProfileFetchDuration)
	assert.NotNil(t, m.PublicationsPerProfile)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceRequestsFailed)
	assert.NotNil(t, m.SourceRateLimited)
	assert.NotNil(t, m.CitationLookups)
	assert.NotNil(t, m.EnrichmentBatches)
	assert.NotNil(t, m.DescriptionsGenerated)
	assert.NotNil(t, m.IdentityMatches)
}

func TestRecordProfileOutcomes(t *testing.T) {
	m := NewMetrics("test_profile_outcomes")

	m.RecordProfileCacheHit()
	m.RecordProfileFetched(42, 1.5)
	m.RecordProfileFetchFailed(0.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileFetches.WithLabelValues("cache_hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileFetches.WithLabelValues("fetched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileFetches.WithLabelValues("failed")))
}

func TestRecordSourceRequests(t *testing.T) {
	m := NewMetrics("test_source_requests")

	m.RecordSourceRequest("dblp", "author_profile", 0.3)
	m.RecordSourceRequestFailed("dblp", "author_profile", "timeout")
	m.RecordSourceRateLimited("semanticscholar")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("dblp", "author_profile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("dblp", "author_profile", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("semanticscholar")))
}

func TestRecordEnrichmentBatch(t *testing.T) {
	m := NewMetrics("test_enrichment")

	m.RecordEnrichmentBatch("completed", 7)
	m.RecordEnrichmentBatch("aborted", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentBatches.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentBatches.WithLabelValues("aborted")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.EnrichmentWorks))
}

func TestRecordIdentityMatch(t *testing.T) {
	m := NewMetrics("test_identity")

	m.RecordIdentityMatch(true)
	m.RecordIdentityMatch(false)
	m.RecordIdentityMatch(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityMatches.WithLabelValues("matched")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IdentityMatches.WithLabelValues("unmatched")))
}
