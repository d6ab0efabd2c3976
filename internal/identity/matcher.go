// Package identity matches researcher records across bibliographic sources
// by comparing publication title sets.
package identity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/sources/semanticscholar"
)

// MinSharedTitles is the identity threshold: a candidate pairing is accepted
// only when the title-set intersection is strictly larger than this.
const MinSharedTitles = 3

// ScholarSearcher is the slice of the Semantic Scholar client the matcher needs.
type ScholarSearcher interface {
	SearchAuthors(ctx context.Context, query string) ([]semanticscholar.Author, error)
}

// CandidateSource is the slice of the DBLP client the matcher needs.
type CandidateSource interface {
	SearchAuthors(ctx context.Context, query string) ([]dblp.AuthorCandidate, error)
	AuthorTitles(ctx context.Context, profileURL string) (map[string]struct{}, error)
}

// Match is one Semantic Scholar author, possibly enriched with the identity
// and affiliations of its best-matching DBLP candidate.
type Match struct {
	Author       semanticscholar.Author `json:"author"`
	DBLPPID      string                 `json:"dblp_pid,omitempty"`
	SharedTitles int                    `json:"shared_titles,omitempty"`
}

// MatchMetrics counts pairing outcomes. Satisfied by *observability.Metrics.
type MatchMetrics interface {
	RecordIdentityMatch(matched bool)
}

// Matcher fuses author search results across sources.
type Matcher struct {
	scholar ScholarSearcher
	dblp    CandidateSource
	metrics MatchMetrics
	logger  zerolog.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(scholar ScholarSearcher, dblpSource CandidateSource, logger zerolog.Logger) *Matcher {
	return &Matcher{
		scholar: scholar,
		dblp:    dblpSource,
		logger:  logger.With().Str("component", "identity").Logger(),
	}
}

// WithMetrics enables pairing outcome counting.
func (m *Matcher) WithMetrics(metrics MatchMetrics) *Matcher {
	m.metrics = metrics
	return m
}

// Search runs the author query against both sources and pairs each Semantic
// Scholar author with the DBLP candidate sharing the most publication titles,
// provided the overlap clears MinSharedTitles. Unmatched authors are returned
// unenriched. Candidates whose title set cannot be fetched are excluded from
// pairing without failing the search.
func (m *Matcher) Search(ctx context.Context, query string) ([]Match, error) {
	authors, err := m.scholar.SearchAuthors(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching primary source: %w", err)
	}
	candidates, err := m.dblp.SearchAuthors(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching candidates: %w", err)
	}
	if len(authors) == 0 || len(candidates) == 0 {
		return nil, domain.NewNotFoundError("researchers", query)
	}

	// Title sets are fetched once per candidate and shared across authors.
	titleSets := make([]map[string]struct{}, len(candidates))
	fetched := make([]bool, len(candidates))
	titlesFor := func(i int) map[string]struct{} {
		if fetched[i] {
			return titleSets[i]
		}
		fetched[i] = true
		titles, err := m.dblp.AuthorTitles(ctx, candidates[i].URL)
		if err != nil {
			m.logger.Warn().Err(err).Str("candidate", candidates[i].Name).Msg("title set fetch failed, excluding candidate")
			return nil
		}
		titleSets[i] = titles
		return titles
	}

	matches := make([]Match, 0, len(authors))
	for _, author := range authors {
		authorTitles := normalizeTitles(author.PaperTitles)

		bestIdx := -1
		bestShared := 0
		for i := range candidates {
			candidateTitles := titlesFor(i)
			if candidateTitles == nil {
				continue
			}
			shared := SharedTitleCount(authorTitles, candidateTitles)
			if shared > bestShared && shared > MinSharedTitles {
				bestShared = shared
				bestIdx = i
			}
		}

		if m.metrics != nil {
			m.metrics.RecordIdentityMatch(bestIdx >= 0)
		}
		match := Match{Author: author}
		if bestIdx >= 0 {
			candidate := candidates[bestIdx]
			match.DBLPPID = candidate.PID
			match.SharedTitles = bestShared
			match.Author.Affiliations = appendUnique(match.Author.Affiliations, candidate.Affiliations)
		} else {
			m.logger.Debug().Str("author", author.Name).Msg("no candidate cleared the shared-title threshold")
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// SharedTitleCount counts the intersection of two normalized title sets.
func SharedTitleCount(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for title := range a {
		if _, ok := b[title]; ok {
			count++
		}
	}
	return count
}

func normalizeTitles(titles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		if normalized := domain.NormalizeTitle(title); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func appendUnique(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[item] = struct{}{}
	}
	for _, item := range extra {
		if _, dup := seen[item]; dup || item == "" {
			continue
		}
		seen[item] = struct{}{}
		existing = append(existing, item)
	}
	return existing
}
