// Package huggingface provides a best-effort lookup of a researcher's models
// and datasets on the Hugging Face Hub. Lookups take an explicit username.
package huggingface

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Hub API.
	DefaultBaseURL = "https://huggingface.co"

	// DefaultRateLimit is the default sustained request rate.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "Hugging Face"
)

// Resources lists the Hub artifacts published under one username.
type Resources struct {
	Username    string   `json:"username"`
	ModelURLs   []string `json:"models,omitempty"`
	DatasetURLs []string `json:"datasets,omitempty"`
}

// Config contains configuration options for the Hugging Face client.
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

// Client talks to the Hugging Face Hub API.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new Hugging Face client with the given configuration.
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
		logger:     logger.With().Str("component", "huggingface").Logger(),
	}
}

type hubItem struct {
	ID string `json:"id"`
}

// UserResources lists the models and datasets published by the given
// username. A failure on one listing degrades to the other rather than
// failing the lookup; both failing returns the first error.
func (c *Client) UserResources(ctx context.Context, username string) (*Resources, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "must not be empty")
	}

	resources := &Resources{Username: username}

	models, modelsErr := c.listItems(ctx, "models", username)
	if modelsErr != nil {
		c.logger.Warn().Err(modelsErr).Str("username", username).Msg("model listing failed")
	}
	for _, item := range models {
		resources.ModelURLs = append(resources.ModelURLs, fmt.Sprintf("%s/%s", DefaultBaseURL, item.ID))
	}

	datasets, datasetsErr := c.listItems(ctx, "datasets", username)
	if datasetsErr != nil {
		c.logger.Warn().Err(datasetsErr).Str("username", username).Msg("dataset listing failed")
	}
	for _, item := range datasets {
		resources.DatasetURLs = append(resources.DatasetURLs, fmt.Sprintf("%s/datasets/%s", DefaultBaseURL, item.ID))
	}

	if modelsErr != nil && datasetsErr != nil {
		return nil, fmt.Errorf("listing hub resources: %w", modelsErr)
	}
	return resources, nil
}

func (c *Client) listItems(ctx context.Context, kind, username string) ([]hubItem, error) {
	listURL := fmt.Sprintf("%s/api/%s?author=%s", c.config.BaseURL, kind, url.QueryEscape(username))

	var items []hubItem
	err := c.httpClient.GetJSON(ctx, listURL, &items, func(status int, body []byte) error {
		if status == 429 {
			return domain.NewRateLimitError(sourceName, 0)
		}
		return domain.NewExternalAPIError(sourceName, status, strings.TrimSpace(string(body)), nil)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}
