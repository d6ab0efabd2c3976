package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/sources/semanticscholar"
)

type fakeScholar struct {
	authors []semanticscholar.Author
	err     error
}

func (f *fakeScholar) SearchAuthors(ctx context.Context, query string) ([]semanticscholar.Author, error) {
	return f.authors, f.err
}

type fakeDBLP struct {
	candidates  []dblp.AuthorCandidate
	titles      map[string]map[string]struct{}
	titleErrs   map[string]error
	titleCalls  int
	searchError error
}

func (f *fakeDBLP) SearchAuthors(ctx context.Context, query string) ([]dblp.AuthorCandidate, error) {
	return f.candidates, f.searchError
}

func (f *fakeDBLP) AuthorTitles(ctx context.Context, profileURL string) (map[string]struct{}, error) {
	f.titleCalls++
	if err, ok := f.titleErrs[profileURL]; ok {
		return nil, err
	}
	return f.titles[profileURL], nil
}

func titleSet(titles ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		set[title] = struct{}{}
	}
	return set
}

func TestMatcher_Search_EnrichesOnSufficientOverlap(t *testing.T) {
	scholar := &fakeScholar{authors: []semanticscholar.Author{{
		AuthorID:     "a1",
		Name:         "Jane Doe",
		Affiliations: []string{"Scholar Affiliation"},
		PaperTitles:  []string{"Paper One.", "Paper Two", "Paper Three", "Paper Four", "Paper Five"},
	}}}
	dblpSource := &fakeDBLP{
		candidates: []dblp.AuthorCandidate{
			{Name: "Jane Doe 0001", PID: "99/1", URL: "u1", Affiliations: []string{"Example University"}},
			{Name: "Jane Doe 0002", PID: "99/2", URL: "u2"},
		},
		titles: map[string]map[string]struct{}{
			// Four shared titles: above the threshold.
			"u1": titleSet("paper one", "paper two", "paper three", "paper four", "unrelated"),
			// Three shared titles: not strictly greater than the threshold.
			"u2": titleSet("paper one", "paper two", "paper three"),
		},
	}
	matcher := NewMatcher(scholar, dblpSource, zerolog.Nop())

	matches, err := matcher.Search(context.Background(), "jane doe")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, "99/1", match.DBLPPID)
	assert.Equal(t, 4, match.SharedTitles)
	assert.Equal(t, []string{"Scholar Affiliation", "Example University"}, match.Author.Affiliations)
}

func TestMatcher_Search_ThreeSharedTitlesIsNotEnough(t *testing.T) {
	scholar := &fakeScholar{authors: []semanticscholar.Author{{
		Name:        "Jane Doe",
		PaperTitles: []string{"Paper One", "Paper Two", "Paper Three"},
	}}}
	dblpSource := &fakeDBLP{
		candidates: []dblp.AuthorCandidate{{Name: "Jane Doe", PID: "99/1", URL: "u1"}},
		titles: map[string]map[string]struct{}{
			"u1": titleSet("paper one", "paper two", "paper three"),
		},
	}
	matcher := NewMatcher(scholar, dblpSource, zerolog.Nop())

	matches, err := matcher.Search(context.Background(), "jane doe")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].DBLPPID)
	assert.Zero(t, matches[0].SharedTitles)
}

func TestMatcher_Search_FailedCandidateIsExcludedOnly(t *testing.T) {
	scholar := &fakeScholar{authors: []semanticscholar.Author{{
		Name:        "Jane Doe",
		PaperTitles: []string{"Paper One", "Paper Two", "Paper Three", "Paper Four"},
	}}}
	dblpSource := &fakeDBLP{
		candidates: []dblp.AuthorCandidate{
			{Name: "Broken", PID: "00/0", URL: "broken"},
			{Name: "Jane Doe", PID: "99/1", URL: "u1", Affiliations: []string{"Example University"}},
		},
		titleErrs: map[string]error{"broken": errors.New("fetch failed")},
		titles: map[string]map[string]struct{}{
			"u1": titleSet("paper one", "paper two", "paper three", "paper four"),
		},
	}
	matcher := NewMatcher(scholar, dblpSource, zerolog.Nop())

	matches, err := matcher.Search(context.Background(), "jane doe")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "99/1", matches[0].DBLPPID)
}

func TestMatcher_Search_TitleSetsFetchedOncePerCandidate(t *testing.T) {
	scholar := &fakeScholar{authors: []semanticscholar.Author{
		{Name: "Jane Doe", PaperTitles: []string{"Paper One"}},
		{Name: "Jane D. Other", PaperTitles: []string{"Paper Two"}},
	}}
	dblpSource := &fakeDBLP{
		candidates: []dblp.AuthorCandidate{{Name: "Jane Doe", PID: "99/1", URL: "u1"}},
		titles:     map[string]map[string]struct{}{"u1": titleSet("paper one")},
	}
	matcher := NewMatcher(scholar, dblpSource, zerolog.Nop())

	_, err := matcher.Search(context.Background(), "jane doe")
	require.NoError(t, err)
	assert.Equal(t, 1, dblpSource.titleCalls)
}

func TestMatcher_Search_NoResults(t *testing.T) {
	matcher := NewMatcher(
		&fakeScholar{},
		&fakeDBLP{candidates: []dblp.AuthorCandidate{{Name: "Someone", URL: "u1"}}},
		zerolog.Nop(),
	)

	_, err := matcher.Search(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMatcher_Search_SourceErrorPropagates(t *testing.T) {
	matcher := NewMatcher(
		&fakeScholar{err: errors.New("scholar down")},
		&fakeDBLP{},
		zerolog.Nop(),
	)

	_, err := matcher.Search(context.Background(), "jane doe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scholar down")
}

func TestSharedTitleCount(t *testing.T) {
	a := titleSet("one", "two", "three")
	b := titleSet("two", "three", "four", "five")

	assert.Equal(t, 2, SharedTitleCount(a, b))
	assert.Equal(t, 2, SharedTitleCount(b, a))
	assert.Zero(t, SharedTitleCount(a, nil))
}

type countingMatchMetrics struct {
	matched   int
	unmatched int
}

func (c *countingMatchMetrics) RecordIdentityMatch(matched bool) {
	if matched {
		c.matched++
	} else {
		c.unmatched++
	}
}

func TestMatcher_Search_RecordsPairingOutcomes(t *testing.T) {
	scholar := &fakeScholar{authors: []semanticscholar.Author{
		{AuthorID: "a1", Name: "Jane Doe", PaperTitles: []string{"Paper One", "Paper Two", "Paper Three", "Paper Four"}},
		{AuthorID: "a2", Name: "Someone Else", PaperTitles: []string{"Unrelated Paper"}},
	}}
	dblpSource := &fakeDBLP{
		candidates: []dblp.AuthorCandidate{{Name: "Jane Doe", PID: "99/1", URL: "u1"}},
		titles: map[string]map[string]struct{}{
			"u1": titleSet("paper one", "paper two", "paper three", "paper four"),
		},
	}
	metrics := &countingMatchMetrics{}
	matcher := NewMatcher(scholar, dblpSource, zerolog.Nop()).WithMetrics(metrics)

	matches, err := matcher.Search(context.Background(), "jane doe")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, metrics.matched)
	assert.Equal(t, 1, metrics.unmatched)
}
