// Package keywords extracts topic phrases from publication titles through an
// external keyword-extraction service.
package keywords

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

// Keyword is one extracted phrase with its relevance score.
type Keyword struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

// Extractor extracts ranked keywords from a piece of text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Keyword, error)
}

const (
	// DefaultTopN is how many keywords are requested per text.
	DefaultTopN = 5

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	// serviceName identifies the collaborator in error messages.
	serviceName = "keyword service"
)

// Config contains configuration options for the HTTP extractor.
type Config struct {
	// Endpoint is the extraction endpoint URL. Required.
	Endpoint string

	// TopN is how many keywords to request. Defaults to DefaultTopN.
	TopN int

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// HTTPExtractor calls an external keyword-extraction service. The service is
// a black box: this client only speaks its request/response contract.
type HTTPExtractor struct {
	httpClient *sources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// Compile-time check that HTTPExtractor implements Extractor.
var _ Extractor = (*HTTPExtractor)(nil)

// NewHTTPExtractor creates an extractor for the given endpoint.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewHTTPExtractor(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *HTTPExtractor {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{Timeout: cfg.Timeout})
	}

	return &HTTPExtractor{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "keywords").Logger(),
	}
}

type extractRequest struct {
	Text string `json:"text"`
	TopN int    `json:"top_n"`
}

type extractResponse struct {
	Keywords []Keyword `json:"keywords"`
}

// Extract returns the ranked keyword list for the given text. Blank text
// yields no keywords without calling the service.
func (e *HTTPExtractor) Extract(ctx context.Context, text string) ([]Keyword, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var resp extractResponse
	payload := extractRequest{Text: text, TopN: e.config.TopN}
	err := e.httpClient.PostJSON(ctx, e.config.Endpoint, payload, &resp, func(status int, body []byte) error {
		return domain.NewExternalAPIError(serviceName, status, strings.TrimSpace(string(body)), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("extracting keywords: %w", err)
	}
	return resp.Keywords, nil
}

// NopExtractor extracts nothing. It stands in when no extraction service is
// configured.
type NopExtractor struct{}

// Compile-time check that NopExtractor implements Extractor.
var _ Extractor = NopExtractor{}

// Extract returns no keywords.
func (NopExtractor) Extract(ctx context.Context, text string) ([]Keyword, error) {
	return nil, nil
}

// Phrases returns just the phrases of a keyword list, in rank order.
func Phrases(keywords []Keyword) []string {
	if len(keywords) == 0 {
		return nil
	}
	phrases := make([]string, len(keywords))
	for i, keyword := range keywords {
		phrases[i] = keyword.Phrase
	}
	return phrases
}
