// Package citations resolves citation counts for publications by scored
// search against the Semantic Scholar paper search endpoint.
package citations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/fuzzy"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
	"github.com/scholarmap/researcher-profile-service/internal/sources/semanticscholar"
)

const (
	// scoreFloor is the minimum match score; below it no candidate is
	// trusted and the citation count stays zero.
	scoreFloor = 40

	// exactYearBonus is awarded when the candidate's year matches exactly.
	exactYearBonus = 50

	// maxRetries is the number of additional attempts after the first.
	maxRetries = 2

	// initialRetryDelay is the first backoff interval; it doubles per attempt.
	initialRetryDelay = 200 * time.Millisecond

	// searchLimit is how many candidates are requested per title.
	searchLimit = 10

	// DefaultRateLimit spaces out search calls; roughly the original request
	// spacing expressed as a sustained rate.
	DefaultRateLimit = 5.0
)

// Searcher is the slice of the Semantic Scholar client the resolver needs.
type Searcher interface {
	SearchPapers(ctx context.Context, query string, limit int) ([]semanticscholar.PaperCandidate, error)
}

// LookupMetrics counts lookup outcomes. Satisfied by *observability.Metrics.
type LookupMetrics interface {
	RecordCitationLookup(outcome string)
}

// Resolver resolves citation counts. Lookups never fail the caller: any
// error, including retry exhaustion, resolves to a count of zero.
type Resolver struct {
	searcher Searcher
	limiter  *sources.RateLimiter
	metrics  LookupMetrics
	logger   zerolog.Logger
}

// NewResolver creates a resolver. If limiter is nil a limiter with
// DefaultRateLimit is used; all Resolve calls share it.
func NewResolver(searcher Searcher, limiter *sources.RateLimiter, logger zerolog.Logger) *Resolver {
	if limiter == nil {
		limiter = sources.NewRateLimiter(DefaultRateLimit, 1)
	}
	return &Resolver{
		searcher: searcher,
		limiter:  limiter,
		logger:   logger.With().Str("component", "citations").Logger(),
	}
}

// WithMetrics enables lookup outcome counting.
func (r *Resolver) WithMetrics(m LookupMetrics) *Resolver {
	r.metrics = m
	return r
}

func (r *Resolver) record(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordCitationLookup(outcome)
	}
}

// Resolve returns the citation count of the best-scoring search candidate for
// the given publication, or zero when no candidate clears the score floor or
// the search fails. A year of zero means the year is unknown.
func (r *Resolver) Resolve(ctx context.Context, title string, year int, authors []string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0
	}

	candidates, err := r.search(ctx, title)
	if err != nil {
		r.logger.Warn().Err(err).Str("title", title).Msg("citation search failed, count stays zero")
		r.record("failed")
		return 0
	}
	if len(candidates) == 0 {
		r.logger.Debug().Str("title", title).Msg("no citation candidates found")
		r.record("unresolved")
		return 0
	}

	var best *semanticscholar.PaperCandidate
	bestScore := -1
	for i := range candidates {
		score := matchScore(title, year, authors, &candidates[i])
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}

	if bestScore < scoreFloor {
		r.logger.Debug().Str("title", title).Int("best_score", bestScore).Msg("no candidate cleared the score floor")
		r.record("unresolved")
		return 0
	}
	r.record("resolved")
	if best.CitationCount == nil {
		return 0
	}
	return *best.CitationCount
}

// search runs the rate-limited paper search with exponential backoff.
// Validation errors are permanent; everything else is retried.
func (r *Resolver) search(ctx context.Context, title string) ([]semanticscholar.PaperCandidate, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialRetryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	var candidates []semanticscholar.PaperCandidate
	operation := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		found, err := r.searcher.SearchPapers(ctx, title, searchLimit)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return backoff.Permanent(err)
			}
			return err
		}
		candidates = found
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// matchScore scores one candidate against the publication being resolved:
// title similarity (0-100) plus a year bonus (+50 exact, decaying within
// three years) plus +30 when any known author appears among the candidate's
// authors.
func matchScore(title string, year int, authors []string, candidate *semanticscholar.PaperCandidate) int {
	score := fuzzy.Ratio(title, candidate.Title)

	if year != 0 && candidate.Year != nil {
		delta := year - *candidate.Year
		if delta < 0 {
			delta = -delta
		}
		switch {
		case delta == 0:
			score += exactYearBonus
		case delta <= 3:
			score += 30 - delta*10
		}
	}

	if len(authors) > 0 && len(candidate.Authors) > 0 {
		for _, author := range authors {
			if authorListed(author, candidate.Authors) {
				score += 30
				break
			}
		}
	}
	return score
}

func authorListed(author string, candidateAuthors []string) bool {
	author = strings.ToLower(strings.TrimSpace(author))
	if author == "" {
		return false
	}
	for _, candidate := range candidateAuthors {
		if strings.Contains(strings.ToLower(candidate), author) {
			return true
		}
	}
	return false
}
