// Package enrichment supplements persisted publications with abstracts and
// citation counts fetched from OpenAlex by DOI.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
	"github.com/scholarmap/researcher-profile-service/internal/sources/openalex"
)

const (
	// doiPrefix marks resolvable publication links.
	doiPrefix = "https://doi.org/"

	// concurrentFetches caps in-flight work lookups. OpenAlex tolerates very
	// little parallelism from anonymous clients, so requests run one at a time.
	concurrentFetches = 1

	// DefaultRateLimit paces work lookups to about one request per second.
	DefaultRateLimit = 1.0
)

// Supplement is the enrichment payload for one DOI.
type Supplement struct {
	DOI          string `json:"doi"`
	CitedByCount int    `json:"cited_by_count"`
	Abstract     string `json:"abstract,omitempty"`
}

// WorkFetcher is the slice of the OpenAlex client the fetcher needs.
type WorkFetcher interface {
	WorkByDOI(ctx context.Context, doi string) (*openalex.Work, error)
}

// BatchMetrics counts enrichment batch outcomes. Satisfied by
// *observability.Metrics.
type BatchMetrics interface {
	RecordEnrichmentBatch(outcome string, works int)
}

// Fetcher fetches supplements for batches of DOIs.
type Fetcher struct {
	works   WorkFetcher
	limiter *sources.RateLimiter
	metrics BatchMetrics
	logger  zerolog.Logger
}

// NewFetcher creates a fetcher. If limiter is nil a limiter with
// DefaultRateLimit is used.
func NewFetcher(works WorkFetcher, limiter *sources.RateLimiter, logger zerolog.Logger) *Fetcher {
	if limiter == nil {
		limiter = sources.NewRateLimiter(DefaultRateLimit, 1)
	}
	return &Fetcher{
		works:   works,
		limiter: limiter,
		logger:  logger.With().Str("component", "enrichment").Logger(),
	}
}

// WithMetrics enables batch outcome counting.
func (f *Fetcher) WithMetrics(m BatchMetrics) *Fetcher {
	f.metrics = m
	return f
}

func (f *Fetcher) recordBatch(outcome string, works int) {
	if f.metrics != nil {
		f.metrics.RecordEnrichmentBatch(outcome, works)
	}
}

// FetchSupplementary resolves supplements for the given DOIs, keyed by input
// DOI. Lookups run sequentially behind a single-slot semaphore and the shared
// limiter. Any throttling response aborts the whole batch with
// domain.ErrRateLimited so the caller can back off; other per-DOI failures
// are logged and that DOI is omitted from the result.
func (f *Fetcher) FetchSupplementary(ctx context.Context, dois []string) (map[string]Supplement, error) {
	if len(dois) == 0 {
		return map[string]Supplement{}, nil
	}

	var (
		mu          sync.Mutex
		supplements = make(map[string]Supplement, len(dois))
	)

	group, ctx := errgroup.WithContext(ctx)
	slots := semaphore.NewWeighted(concurrentFetches)

	for _, doi := range dois {
		group.Go(func() error {
			if err := slots.Acquire(ctx, 1); err != nil {
				return err
			}
			defer slots.Release(1)

			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}

			work, err := f.works.WorkByDOI(ctx, doi)
			if err != nil {
				if errors.Is(err, domain.ErrRateLimited) {
					return fmt.Errorf("doi %s: %w", doi, err)
				}
				f.logger.Warn().Err(err).Str("doi", doi).Msg("work lookup failed, omitting")
				return nil
			}

			mu.Lock()
			supplements[doi] = Supplement{
				DOI:          doi,
				CitedByCount: work.CitedByCount,
				Abstract:     ReconstructAbstract(work.AbstractInvertedIndex),
			}
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		f.recordBatch("aborted", 0)
		return nil, err
	}
	f.recordBatch("completed", len(supplements))
	return supplements, nil
}

// ReconstructAbstract rebuilds abstract prose from an inverted index mapping
// each word to the positions it occupies.
func ReconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	wordAt := make(map[int]string)
	positions := make([]int, 0, len(invertedIndex))
	for word, wordPositions := range invertedIndex {
		for _, pos := range wordPositions {
			if _, taken := wordAt[pos]; !taken {
				positions = append(positions, pos)
			}
			wordAt[pos] = word
		}
	}
	sort.Ints(positions)

	words := make([]string, len(positions))
	for i, pos := range positions {
		words[i] = wordAt[pos]
	}
	return strings.Join(words, " ")
}

// ExtractDOIs returns the DOIs found among publication links, in order,
// deduplicated. Only resolvable doi.org links qualify.
func ExtractDOIs(links []string) []string {
	var dois []string
	seen := make(map[string]struct{})
	for _, link := range links {
		if !strings.Contains(link, doiPrefix) {
			continue
		}
		doi := strings.TrimSpace(strings.ReplaceAll(link, doiPrefix, ""))
		if doi == "" {
			continue
		}
		if _, dup := seen[doi]; dup {
			continue
		}
		seen[doi] = struct{}{}
		dois = append(dois, doi)
	}
	return dois
}
