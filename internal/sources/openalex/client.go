// Package openalex provides the client for the OpenAlex works API, used to
// supplement publications with abstracts and citation counts by DOI.
package openalex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the OpenAlex API.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit keeps the client inside OpenAlex's polite pool budget.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// workFields is the field selection for work lookups.
	workFields = "id,doi,title,cited_by_count,abstract_inverted_index"

	// sourceName is the human-readable name for this source.
	sourceName = "OpenAlex"
)

// Work is one work record keyed by DOI. AbstractInvertedIndex maps each word
// to the positions it occupies in the abstract; reconstruction into prose is
// the caller's concern.
type Work struct {
	ID                    string           `json:"id"`
	DOI                   string           `json:"doi"`
	Title                 string           `json:"title"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// Config contains configuration options for the OpenAlex client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to DefaultBurstSize.
	BurstSize int
}

// Client talks to the OpenAlex API.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new OpenAlex client with the given configuration.
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
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "openalex").Logger(),
	}
}

// WorkByDOI fetches the work record for one DOI. Throttling responses map to
// domain.RateLimitError, including the case where the underlying client
// exhausted its retries against 429s.
func (c *Client) WorkByDOI(ctx context.Context, doi string) (*Work, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, domain.NewValidationError("doi", "must not be empty")
	}

	workURL := fmt.Sprintf("%s/works/https://doi.org/%s?select=%s", c.config.BaseURL, doi, workFields)

	var work Work
	err := c.httpClient.GetJSON(ctx, workURL, &work, func(status int, body []byte) error {
		switch status {
		case 404:
			return domain.NewNotFoundError("work", doi)
		case 429:
			return domain.NewRateLimitError(sourceName, 0)
		default:
			return domain.NewExternalAPIError(sourceName, status, strings.TrimSpace(string(body)), nil)
		}
	})
	if err != nil {
		var exhausted *sources.RetryExhaustedError
		if errors.As(err, &exhausted) && exhausted.LastStatus == 429 {
			return nil, domain.NewRateLimitError(sourceName, 0)
		}
		return nil, fmt.Errorf("fetching work: %w", err)
	}
	return &work, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}
