package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarmap/researcher-profile-service/internal/bibliometrics"
	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/keywords"
	"github.com/scholarmap/researcher-profile-service/internal/repository"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/venuerank"
)

type fakeSource struct {
	record *dblp.AuthorRecord
	err    error
	calls  int
}

func (f *fakeSource) AuthorProfile(_ context.Context, _ string) (*dblp.AuthorRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeRepo struct {
	profiles  map[string]*domain.ResearcherProfile
	upserts   int
	upsertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[string]*domain.ResearcherProfile)}
}

func (f *fakeRepo) Upsert(_ context.Context, profile *domain.ResearcherProfile) (*domain.ResearcherProfile, error) {
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.UpdatedAt = time.Now()
	f.profiles[profile.PID] = profile
	return profile, nil
}

func (f *fakeRepo) GetByPID(_ context.Context, pid string) (*domain.ResearcherProfile, error) {
	profile, ok := f.profiles[pid]
	if !ok {
		return nil, domain.NewNotFoundError("profile", pid)
	}
	return profile, nil
}

func (f *fakeRepo) List(_ context.Context, filter repository.ProfileFilter) ([]*domain.ResearcherProfile, int64, error) {
	var all []*domain.ResearcherProfile
	for _, profile := range f.profiles {
		all = append(all, profile)
	}
	if filter.Offset >= len(all) {
		return nil, int64(len(all)), nil
	}
	return all[filter.Offset:], int64(len(all)), nil
}

func (f *fakeRepo) Delete(_ context.Context, pid string) error {
	if _, ok := f.profiles[pid]; !ok {
		return domain.NewNotFoundError("profile", pid)
	}
	delete(f.profiles, pid)
	return nil
}

type fakeResolver struct {
	counts map[string]int
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, title string, _ int, _ []string) int {
	f.calls++
	return f.counts[title]
}

type fakeExtractor struct {
	topics map[string][]string
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, text string) ([]keywords.Keyword, error) {
	if f.err != nil {
		return nil, f.err
	}
	var extracted []keywords.Keyword
	for _, phrase := range f.topics[text] {
		extracted = append(extracted, keywords.Keyword{Phrase: phrase, Score: 1})
	}
	return extracted, nil
}

type fakeDescriber struct {
	description string
	err         error
	calls       int
}

func (f *fakeDescriber) Describe(_ context.Context, _ string, _ []string) (string, error) {
	f.calls++
	return f.description, f.err
}

func sourceRecord() *dblp.AuthorRecord {
	return &dblp.AuthorRecord{
		Profile: &domain.ResearcherProfile{
			PID:          "81/3309",
			Name:         "Jane Doe",
			Affiliations: []string{"MIT"},
			SourceURL:    "https://dblp.org/pid/81/3309",
			Publications: []domain.Publication{
				{Title: "Attention Is All You Need", Year: 2017, Venue: "NeurIPS", Coauthors: []string{"John Smith"}},
				{Title: "Graph Transformers", Year: 2021, Venue: "ICML", Coauthors: []string{"John Smith"}},
			},
		},
		CoauthorPIDs: map[string]string{"John Smith": "99/1234"},
	}
}

func newTestReconciler(source AuthorSource, repo repository.ProfileRepository) *Reconciler {
	return NewReconciler(source, repo, bibliometrics.NewSnapshotCache(time.Hour), zerolog.Nop())
}

func TestFetchProfileServesStoredProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["81/3309"] = &domain.ResearcherProfile{
		PID:  "81/3309",
		Name: "Jane Doe",
		Publications: []domain.Publication{
			{Title: "Attention Is All You Need", Year: 2017, Venue: "NeurIPS"},
		},
	}
	source := &fakeSource{record: sourceRecord()}
	reconciler := newTestReconciler(source, repo)

	view, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.NoError(t, err)
	assert.Equal(t, 0, source.calls, "stored profile with publications must not hit the source")
	assert.Equal(t, 0, repo.upserts)
	assert.Equal(t, "Jane Doe", view.Profile.Name)
	require.Len(t, view.Venues, 1)
	assert.Equal(t, "NeurIPS", view.Venues[0].Venue)
	assert.Nil(t, view.Metrics)
}

func TestFetchProfileFetchesWhenMissing(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{record: sourceRecord()}
	ranker := venuerank.NewRanker(venuerank.NewTable([]venuerank.Entry{
		{Name: "Neural Information Processing Systems", Abbreviation: "NeurIPS", Rank: "A*"},
	}), 80)
	extractor := &fakeExtractor{topics: map[string][]string{
		"Attention Is All You Need": {"attention", "transformers"},
	}}
	describer := &fakeDescriber{description: "Jane Doe works on transformers."}

	reconciler := newTestReconciler(source, repo).
		WithRanker(ranker).
		WithTopics(extractor).
		WithDescriber(describer)

	view, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, repo.upserts)
	assert.Equal(t, 1, describer.calls)
	assert.Equal(t, "Jane Doe works on transformers.", view.Profile.Description)
	assert.Equal(t, "A*", view.Profile.Publications[0].VenueRank)
	assert.Equal(t, []string{"attention", "transformers"}, view.Profile.Publications[0].Topics)

	require.Len(t, view.Coauthors, 1)
	assert.Equal(t, "John Smith", view.Coauthors[0].Name)
	assert.Equal(t, "99/1234", view.Coauthors[0].PID)
	assert.Equal(t, 2, view.Coauthors[0].PublicationsTogether)
}

func TestFetchProfileMergesWithStoredProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["81/3309"] = &domain.ResearcherProfile{
		PID:          "81/3309",
		Name:         "J. Doe",
		Affiliations: []string{"Stanford University"},
		Description:  "Curated description.",
	}
	source := &fakeSource{record: sourceRecord()}
	describer := &fakeDescriber{description: "Generated description."}
	reconciler := newTestReconciler(source, repo).WithDescriber(describer)

	view, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", view.Profile.Name, "name follows the source")
	assert.Equal(t, []string{"Stanford University"}, view.Profile.Affiliations,
		"stored affiliations survive the merge")
	assert.Equal(t, "Curated description.", view.Profile.Description)
	assert.Equal(t, 0, describer.calls, "described profiles are not re-described")
	assert.Len(t, view.Profile.Publications, 2, "publications are fully replaced")
}

func TestFetchProfileSourceError(t *testing.T) {
	repo := newFakeRepo()
	sourceErr := domain.NewExternalAPIError("dblp", 503, "unavailable", nil)
	reconciler := newTestReconciler(&fakeSource{err: sourceErr}, repo)

	_, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.Error(t, err)
	var apiErr *domain.ExternalAPIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, repo.upserts)
}

func TestFetchProfileEmptyPID(t *testing.T) {
	reconciler := newTestReconciler(&fakeSource{}, newFakeRepo())

	_, err := reconciler.FetchProfile(context.Background(), "", false)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetchProfileWithMetrics(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{record: sourceRecord()}
	resolver := &fakeResolver{counts: map[string]int{
		"Attention Is All You Need": 100,
		"Graph Transformers":        3,
	}}
	reconciler := newTestReconciler(source, repo).WithCitations(resolver)

	view, err := reconciler.FetchProfile(context.Background(), "81/3309", true)

	require.NoError(t, err)
	require.NotNil(t, view.Metrics)
	assert.Equal(t, 103, view.Metrics.TotalCitations)
	assert.Equal(t, 2, view.Metrics.HIndex)
	assert.Equal(t, 2, resolver.calls)

	// Second read serves both the profile and the snapshot from cache.
	view, err = reconciler.FetchProfile(context.Background(), "81/3309", true)
	require.NoError(t, err)
	assert.Equal(t, 103, view.Metrics.TotalCitations)
	assert.Equal(t, 2, resolver.calls, "cached snapshot must not re-resolve citations")
}

func TestFetchProfileTopicExtractionFailureTolerated(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{record: sourceRecord()}
	extractor := &fakeExtractor{err: errors.New("keyword service down")}
	reconciler := newTestReconciler(source, repo).WithTopics(extractor)

	view, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.NoError(t, err)
	assert.Empty(t, view.Profile.Publications[0].Topics)
}

func TestFetchProfileDescriberFailureTolerated(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{record: sourceRecord()}
	describer := &fakeDescriber{err: errors.New("model unavailable")}
	reconciler := newTestReconciler(source, repo).WithDescriber(describer)

	view, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.NoError(t, err)
	assert.Empty(t, view.Profile.Description)
	assert.Equal(t, 1, repo.upserts, "profile persists even without a description")
	_ = view
}

func TestFetchProfileUpsertError(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErr = errors.New("connection reset")
	reconciler := newTestReconciler(&fakeSource{record: sourceRecord()}, repo)

	_, err := reconciler.FetchProfile(context.Background(), "81/3309", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting profile")
}

func TestRefreshAll(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["81/3309"] = &domain.ResearcherProfile{PID: "81/3309", Name: "Jane Doe"}
	source := &fakeSource{record: sourceRecord()}
	reconciler := newTestReconciler(source, repo)

	err := reconciler.RefreshAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Len(t, repo.profiles["81/3309"].Publications, 2)
}

func TestRefreshAllReportsFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["81/3309"] = &domain.ResearcherProfile{PID: "81/3309", Name: "Jane Doe"}
	source := &fakeSource{err: domain.NewExternalAPIError("dblp", 500, "boom", nil)}
	reconciler := newTestReconciler(source, repo)

	err := reconciler.RefreshAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 profiles failed")
}
