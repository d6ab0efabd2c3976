// Package profile reconciles researcher profiles between the persisted store
// and the primary bibliographic source, and derives the aggregate view served
// to clients.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/bibliometrics"
	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/keywords"
	"github.com/scholarmap/researcher-profile-service/internal/observability"
	"github.com/scholarmap/researcher-profile-service/internal/repository"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/venuerank"
)

// refreshPageSize is how many stored profiles RefreshAll loads per page.
const refreshPageSize = 100

// AuthorSource fetches the canonical author record from the primary
// bibliographic source.
type AuthorSource interface {
	AuthorProfile(ctx context.Context, pid string) (*dblp.AuthorRecord, error)
}

// CitationResolver resolves the citation count for one publication. A zero
// count means unresolved.
type CitationResolver interface {
	Resolve(ctx context.Context, title string, year int, authors []string) int
}

// Describer generates a short researcher description from publication titles.
type Describer interface {
	Describe(ctx context.Context, name string, titles []string) (string, error)
}

// View is the aggregate profile representation returned to clients. The
// aggregates are derived on every read and never persisted.
type View struct {
	Profile   *domain.ResearcherProfile  `json:"profile"`
	Coauthors []domain.CoauthorAggregate `json:"coauthors"`
	Venues    []domain.VenueAggregate    `json:"venues"`
	Topics    []domain.TopicAggregate    `json:"topics,omitempty"`
	Metrics   *bibliometrics.Snapshot    `json:"metrics,omitempty"`
}

// Reconciler drives the profile lifecycle: check the store, fetch from the
// source when needed, merge, persist, and build the aggregate view.
//
// The ranker, resolver, extractor, describer, and metrics collaborators are
// all optional; a nil collaborator disables its concern.
type Reconciler struct {
	source    AuthorSource
	repo      repository.ProfileRepository
	ranker    *venuerank.Ranker
	resolver  CitationResolver
	snapshots *bibliometrics.SnapshotCache
	extractor keywords.Extractor
	describer Describer
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewReconciler creates a reconciler. source and repo are required.
func NewReconciler(
	source AuthorSource,
	repo repository.ProfileRepository,
	snapshots *bibliometrics.SnapshotCache,
	logger zerolog.Logger,
) *Reconciler {
	if snapshots == nil {
		snapshots = bibliometrics.NewSnapshotCache(0)
	}
	return &Reconciler{
		source:    source,
		repo:      repo,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "profile").Logger(),
	}
}

// WithRanker attaches a venue ranker.
func (r *Reconciler) WithRanker(ranker *venuerank.Ranker) *Reconciler {
	r.ranker = ranker
	return r
}

// WithCitations attaches a citation resolver used for bibliometrics.
func (r *Reconciler) WithCitations(resolver CitationResolver) *Reconciler {
	r.resolver = resolver
	return r
}

// WithTopics attaches a keyword extractor for per-publication topics.
func (r *Reconciler) WithTopics(extractor keywords.Extractor) *Reconciler {
	r.extractor = extractor
	return r
}

// WithDescriber attaches a description generator for new profiles.
func (r *Reconciler) WithDescriber(describer Describer) *Reconciler {
	r.describer = describer
	return r
}

// WithMetrics attaches the Prometheus metrics collector.
func (r *Reconciler) WithMetrics(metrics *observability.Metrics) *Reconciler {
	r.metrics = metrics
	return r
}

// FetchProfile returns the aggregate view for a researcher. A stored profile
// that already has publications is served as-is; otherwise the profile is
// rebuilt from the bibliographic source, merged with whatever was stored, and
// persisted before the view is built. withMetrics additionally computes the
// bibliometric snapshot, resolving citation counts on a cache miss.
func (r *Reconciler) FetchProfile(ctx context.Context, pid string, withMetrics bool) (*View, error) {
	if pid == "" {
		return nil, domain.NewValidationError("pid", "pid is required")
	}
	start := time.Now()

	cached, err := r.repo.GetByPID(ctx, pid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking stored profile: %w", err)
	}

	if cached != nil && len(cached.Publications) > 0 {
		if r.metrics != nil {
			r.metrics.RecordProfileCacheHit()
		}
		r.logger.Debug().Str("pid", pid).Int("publications", len(cached.Publications)).
			Msg("serving stored profile")
		return r.buildView(ctx, cached, nil, withMetrics)
	}

	record, err := r.source.AuthorProfile(ctx, pid)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordProfileFetchFailed(time.Since(start).Seconds())
		}
		return nil, err
	}
	fetched := record.Profile

	r.applyVenueRanks(fetched)
	r.applyTopics(ctx, fetched)

	merged := r.merge(cached, fetched)
	r.describe(ctx, merged)

	persisted, err := r.repo.Upsert(ctx, merged)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordProfileFetchFailed(time.Since(start).Seconds())
		}
		return nil, fmt.Errorf("persisting profile: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordProfileFetched(len(persisted.Publications), time.Since(start).Seconds())
	}
	r.logger.Info().Str("pid", pid).Str("researcher", persisted.Name).
		Int("publications", len(persisted.Publications)).
		Msg("profile reconciled from source")

	return r.buildView(ctx, persisted, record.CoauthorPIDs, withMetrics)
}

// Refresh rebuilds one profile from the source regardless of what is stored,
// and returns the persisted result.
func (r *Reconciler) Refresh(ctx context.Context, pid string) (*domain.ResearcherProfile, error) {
	if pid == "" {
		return nil, domain.NewValidationError("pid", "pid is required")
	}

	cached, err := r.repo.GetByPID(ctx, pid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking stored profile: %w", err)
	}

	record, err := r.source.AuthorProfile(ctx, pid)
	if err != nil {
		return nil, err
	}
	fetched := record.Profile

	r.applyVenueRanks(fetched)
	r.applyTopics(ctx, fetched)

	merged := r.merge(cached, fetched)
	r.describe(ctx, merged)

	persisted, err := r.repo.Upsert(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("persisting profile: %w", err)
	}
	return persisted, nil
}

// RefreshAll re-fetches every stored profile from the source. Individual
// failures are logged and skipped; the error reports only how many failed.
func (r *Reconciler) RefreshAll(ctx context.Context) error {
	var failed, refreshed int
	offset := 0

	for {
		page, total, err := r.repo.List(ctx, repository.ProfileFilter{
			Limit:  refreshPageSize,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("listing profiles: %w", err)
		}

		for _, stored := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := r.Refresh(ctx, stored.PID); err != nil {
				failed++
				r.logger.Warn().Err(err).Str("pid", stored.PID).Msg("profile refresh failed")
				continue
			}
			refreshed++
		}

		offset += len(page)
		if int64(offset) >= total || len(page) == 0 {
			break
		}
	}

	r.logger.Info().Int("refreshed", refreshed).Int("failed", failed).Msg("refresh pass finished")
	if failed > 0 {
		return fmt.Errorf("refresh finished with %d of %d profiles failed", failed, refreshed+failed)
	}
	return nil
}

// merge folds a freshly fetched profile into the stored one. Publications are
// fully replaced by the fetch; affiliations are replaced only when nothing
// was stored; a stored description survives.
func (r *Reconciler) merge(cached, fetched *domain.ResearcherProfile) *domain.ResearcherProfile {
	if cached == nil {
		return fetched
	}

	cached.Name = fetched.Name
	cached.SourceURL = fetched.SourceURL
	cached.Publications = fetched.Publications
	if len(cached.Affiliations) == 0 {
		cached.Affiliations = fetched.Affiliations
	}
	cached.SetDescription(fetched.Description)
	return cached
}

// applyVenueRanks stamps each publication with its venue's rank.
func (r *Reconciler) applyVenueRanks(profile *domain.ResearcherProfile) {
	if r.ranker == nil {
		return
	}
	for i := range profile.Publications {
		if rank, ok := r.ranker.Rank(profile.Publications[i].Venue); ok {
			profile.Publications[i].VenueRank = rank
		}
	}
}

// applyTopics extracts topic phrases from each publication title. Extraction
// failures degrade to untagged publications.
func (r *Reconciler) applyTopics(ctx context.Context, profile *domain.ResearcherProfile) {
	if r.extractor == nil {
		return
	}
	for i := range profile.Publications {
		extracted, err := r.extractor.Extract(ctx, profile.Publications[i].Title)
		if err != nil {
			r.logger.Warn().Err(err).Str("title", profile.Publications[i].Title).
				Msg("topic extraction failed")
			continue
		}
		profile.Publications[i].Topics = keywords.Phrases(extracted)
	}
}

// describe fills in a description for profiles that lack one.
func (r *Reconciler) describe(ctx context.Context, profile *domain.ResearcherProfile) {
	if r.describer == nil || profile.Description != "" || len(profile.Publications) == 0 {
		return
	}

	description, err := r.describer.Describe(ctx, profile.Name, profile.Titles())
	if err != nil {
		r.logger.Warn().Err(err).Str("pid", profile.PID).Msg("description generation failed")
		return
	}
	profile.SetDescription(description)
	if r.metrics != nil && profile.Description != "" {
		r.metrics.RecordDescriptionGenerated()
	}
}

// buildView derives the aggregate view. coauthorPIDs may be nil when the
// profile was served from the store.
func (r *Reconciler) buildView(ctx context.Context, profile *domain.ResearcherProfile, coauthorPIDs map[string]string, withMetrics bool) (*View, error) {
	view := &View{
		Profile:   profile,
		Coauthors: profile.CoauthorAggregates(coauthorPIDs),
		Venues:    profile.VenueAggregates(),
		Topics:    profile.TopicAggregates(),
	}

	if withMetrics {
		snapshot := r.snapshot(ctx, profile)
		view.Metrics = &snapshot
	}
	return view, nil
}

// snapshot returns the bibliometric snapshot for the profile's publication
// set, resolving citation counts on a cache miss.
func (r *Reconciler) snapshot(ctx context.Context, profile *domain.ResearcherProfile) bibliometrics.Snapshot {
	titles := profile.Titles()
	if cached, ok := r.snapshots.Get(titles); ok {
		return cached
	}

	if r.resolver != nil {
		for i := range profile.Publications {
			pub := &profile.Publications[i]
			authors := append([]string{profile.Name}, pub.Coauthors...)
			pub.CitationCount = r.resolver.Resolve(ctx, pub.Title, pub.Year, authors)
		}
	}

	snapshot := bibliometrics.ComputeSnapshot(profile.CitationCounts())
	r.snapshots.Put(titles, snapshot)
	return snapshot
}
