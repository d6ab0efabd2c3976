// Package semanticscholar provides the client for the Semantic Scholar graph
// API: author search, author papers, and paper search for citation counts.
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultSearchLimit is the number of candidates requested from the paper
	// search endpoint when resolving citation counts.
	DefaultSearchLimit = 10

	// APIKeyHeader is the header name for the Semantic Scholar API key.
	APIKeyHeader = "x-api-key"

	// citationBatchSize is how many paper IDs are sent per batch request when
	// backfilling missing citation counts.
	citationBatchSize = 25

	// authorSearchFields requests paper titles alongside author metadata so
	// the identity matcher can compare title sets without extra calls.
	authorSearchFields = "name,url,affiliations,paperCount,hIndex,citationCount,externalIds,papers.title,papers.year"

	// authorFields is the field set for single-author lookups.
	authorFields = "name,url,affiliations,paperCount,hIndex,citationCount"

	// paperFields is the field set for publication listings and lookups.
	paperFields = "url,paperId,title,year,authors,abstract,venue,citationCount,fieldsOfStudy"

	// paperSearchFields is the minimal field set used for citation resolution.
	paperSearchFields = "citationCount,year,title,authors"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to DefaultBurstSize.
	BurstSize int
}

// Client talks to the Semantic Scholar graph API.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: APIKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "semanticscholar").Logger(),
	}
}

// SearchPapers queries the paper search endpoint and returns up to limit
// candidates with the fields needed for citation resolution. A limit of zero
// means DefaultSearchLimit.
func (c *Client) SearchPapers(ctx context.Context, query string, limit int) ([]PaperCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	searchURL := fmt.Sprintf("%s/paper/search?query=%s&fields=%s&limit=%d",
		c.config.BaseURL, url.QueryEscape(query), paperSearchFields, limit)

	var resp paperSearchResponse
	if err := c.httpClient.GetJSON(ctx, searchURL, &resp, c.apiError("paper search", query)); err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}

	candidates := make([]PaperCandidate, 0, len(resp.Data))
	for _, result := range resp.Data {
		names := make([]string, 0, len(result.Authors))
		for _, author := range result.Authors {
			names = append(names, author.Name)
		}
		candidates = append(candidates, PaperCandidate{
			PaperID:       result.PaperID,
			Title:         result.Title,
			Year:          result.Year,
			Authors:       names,
			CitationCount: result.CitationCount,
		})
	}
	return candidates, nil
}

// SearchAuthors queries the author search endpoint. Results carry the titles
// of each author's papers for cross-source identity matching.
func (c *Client) SearchAuthors(ctx context.Context, query string) ([]Author, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}

	searchURL := fmt.Sprintf("%s/author/search?query=%s&fields=%s",
		c.config.BaseURL, url.QueryEscape(query), url.QueryEscape(authorSearchFields))

	var resp authorSearchResponse
	if err := c.httpClient.GetJSON(ctx, searchURL, &resp, c.apiError("author search", query)); err != nil {
		return nil, fmt.Errorf("searching authors: %w", err)
	}

	authors := make([]Author, 0, len(resp.Data))
	for _, result := range resp.Data {
		author := convertAuthor(result)
		for _, paper := range result.Papers {
			if paper.Title != "" {
				author.PaperTitles = append(author.PaperTitles, paper.Title)
			}
		}
		authors = append(authors, author)
	}
	return authors, nil
}

// GetAuthor retrieves a single author record by Semantic Scholar author ID.
func (c *Client) GetAuthor(ctx context.Context, authorID string) (*Author, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return nil, domain.NewValidationError("authorID", "must not be empty")
	}

	authorURL := fmt.Sprintf("%s/author/%s?fields=%s",
		c.config.BaseURL, url.PathEscape(authorID), url.QueryEscape(authorFields))

	var result authorResult
	if err := c.httpClient.GetJSON(ctx, authorURL, &result, c.apiError("author", authorID)); err != nil {
		return nil, fmt.Errorf("fetching author: %w", err)
	}

	author := convertAuthor(result)
	return &author, nil
}

// AuthorPapers lists an author's publications. Papers the listing endpoint
// reports without a citation count are backfilled through the paper batch
// endpoint; if the backfill itself fails, those counts stay zero.
func (c *Client) AuthorPapers(ctx context.Context, authorID string) ([]Paper, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return nil, domain.NewValidationError("authorID", "must not be empty")
	}

	papersURL := fmt.Sprintf("%s/author/%s/papers?fields=%s",
		c.config.BaseURL, url.PathEscape(authorID), url.QueryEscape(paperFields))

	var resp authorPapersResponse
	if err := c.httpClient.GetJSON(ctx, papersURL, &resp, c.apiError("author", authorID)); err != nil {
		return nil, fmt.Errorf("fetching author papers: %w", err)
	}

	counts := c.backfillCitationCounts(ctx, resp.Data)

	papers := make([]Paper, 0, len(resp.Data))
	for _, result := range resp.Data {
		paper := convertPaper(result)
		if result.CitationCount == nil {
			paper.CitationCount = counts[result.PaperID]
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// GetPaper retrieves a single paper record by Semantic Scholar paper ID.
func (c *Client) GetPaper(ctx context.Context, paperID string) (*Paper, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return nil, domain.NewValidationError("paperID", "must not be empty")
	}

	paperURL := fmt.Sprintf("%s/paper/%s?fields=%s",
		c.config.BaseURL, url.PathEscape(paperID), url.QueryEscape(paperFields))

	var result paperResult
	if err := c.httpClient.GetJSON(ctx, paperURL, &result, c.apiError("paper", paperID)); err != nil {
		return nil, fmt.Errorf("fetching paper: %w", err)
	}

	paper := convertPaper(result)
	return &paper, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// backfillCitationCounts collects paper IDs missing a citation count and
// resolves them in batches. Batch failures are logged and leave the affected
// counts at zero.
func (c *Client) backfillCitationCounts(ctx context.Context, results []paperResult) map[string]int {
	var missing []string
	for _, result := range results {
		if result.CitationCount == nil && result.PaperID != "" {
			missing = append(missing, result.PaperID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	batchURL := fmt.Sprintf("%s/paper/batch?fields=paperId,citationCount", c.config.BaseURL)
	counts := make(map[string]int, len(missing))
	for start := 0; start < len(missing); start += citationBatchSize {
		end := start + citationBatchSize
		if end > len(missing) {
			end = len(missing)
		}

		var batch []batchResult
		payload := map[string][]string{"ids": missing[start:end]}
		if err := c.httpClient.PostJSON(ctx, batchURL, payload, &batch, c.apiError("paper batch", "")); err != nil {
			c.logger.Warn().Err(err).Int("papers", end-start).Msg("citation count backfill failed")
			continue
		}
		for _, item := range batch {
			if item.CitationCount != nil {
				counts[item.PaperID] = *item.CitationCount
			}
		}
	}
	return counts
}

func convertAuthor(result authorResult) Author {
	return Author{
		AuthorID:      result.AuthorID,
		Name:          result.Name,
		URL:           result.URL,
		Affiliations:  result.Affiliations,
		PaperCount:    intOrZero(result.PaperCount),
		HIndex:        intOrZero(result.HIndex),
		CitationCount: intOrZero(result.CitationCount),
	}
}

func convertPaper(result paperResult) Paper {
	paper := Paper{
		PaperID:       result.PaperID,
		URL:           result.URL,
		Title:         result.Title,
		Year:          intOrZero(result.Year),
		Venue:         result.Venue,
		CitationCount: intOrZero(result.CitationCount),
		FieldsOfStudy: result.FieldsOfStudy,
	}
	if result.Abstract != nil {
		paper.Abstract = *result.Abstract
	}
	if paper.URL == "" && paper.PaperID != "" {
		paper.URL = "https://www.semanticscholar.org/paper/" + paper.PaperID
	}
	for _, author := range result.Authors {
		paper.Authors = append(paper.Authors, PaperAuthor{AuthorID: author.AuthorID, Name: author.Name})
	}
	return paper
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// apiError builds the non-2xx response mapper for one request.
func (c *Client) apiError(entity, id string) func(status int, body []byte) error {
	return func(status int, body []byte) error {
		return c.mapAPIError(entity, id, status, body)
	}
}

func (c *Client) mapAPIError(entity, id string, status int, body []byte) error {
	if status == 404 {
		return domain.NewNotFoundError(entity, id)
	}
	if status == 429 {
		return domain.NewRateLimitError(sourceName, 0)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message != "" {
			return domain.NewExternalAPIError(sourceName, status, message, nil)
		}
	}
	return domain.NewExternalAPIError(sourceName, status, strings.TrimSpace(string(body)), nil)
}
