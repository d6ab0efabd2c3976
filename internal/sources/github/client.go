// Package github provides a best-effort lookup of a researcher's GitHub
// presence. Lookups take an explicit username; no guessing is attempted.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// repoPageSize is how many repositories are listed per user.
	repoPageSize = 20

	// sourceName is the human-readable name for this source.
	sourceName = "GitHub"
)

// Profile is a researcher's public GitHub presence.
type Profile struct {
	Username     string       `json:"username"`
	Name         string       `json:"name,omitempty"`
	Company      string       `json:"company,omitempty"`
	Blog         string       `json:"blog,omitempty"`
	Location     string       `json:"location,omitempty"`
	Bio          string       `json:"bio,omitempty"`
	URL          string       `json:"url"`
	PublicRepos  int          `json:"public_repos"`
	Followers    int          `json:"followers"`
	Repositories []Repository `json:"repositories,omitempty"`
}

// Repository is one public repository owned by the user.
type Repository struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars"`
}

// Config contains configuration options for the GitHub client.
type Config struct {
	// BaseURL overrides the GitHub API base URL, mainly for tests.
	BaseURL string

	// Token is an optional access token. Unauthenticated requests work but
	// have a much lower rate budget.
	Token string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client wraps the go-github client.
type Client struct {
	gh     *gh.Client
	logger zerolog.Logger
}

// NewClient creates a new GitHub client with the given configuration.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	ghClient := gh.NewClient(httpClient)
	if cfg.Token != "" {
		ghClient = ghClient.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		ghClient.BaseURL = baseURL
	}

	return &Client{
		gh:     ghClient,
		logger: logger.With().Str("component", "github").Logger(),
	}, nil
}

// UserProfile looks up the public profile and first page of repositories for
// the given username. A failed repository listing degrades to a profile
// without repositories rather than failing the lookup.
func (c *Client) UserProfile(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "must not be empty")
	}

	user, _, err := c.gh.Users.Get(ctx, username)
	if err != nil {
		return nil, c.wrapError(err, username)
	}

	profile := &Profile{
		Username:    user.GetLogin(),
		Name:        user.GetName(),
		Company:     user.GetCompany(),
		Blog:        user.GetBlog(),
		Location:    user.GetLocation(),
		Bio:         user.GetBio(),
		URL:         user.GetHTMLURL(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
	}

	repos, _, err := c.gh.Repositories.ListByUser(ctx, username, &gh.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: repoPageSize},
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("username", username).Msg("repository listing failed")
		return profile, nil
	}

	for _, repo := range repos {
		profile.Repositories = append(profile.Repositories, Repository{
			Name:        repo.GetName(),
			Description: repo.GetDescription(),
			URL:         repo.GetHTMLURL(),
			Language:    repo.GetLanguage(),
			Stars:       repo.GetStargazersCount(),
		})
	}
	return profile, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// wrapError converts go-github errors to domain errors.
func (c *Client) wrapError(err error, username string) error {
	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return domain.NewRateLimitError(sourceName, time.Until(rateLimitErr.Rate.Reset.Time))
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		if ghErr.Response.StatusCode == http.StatusNotFound {
			return domain.NewNotFoundError("github user", username)
		}
		return domain.NewExternalAPIError(sourceName, ghErr.Response.StatusCode, ghErr.Message, nil)
	}

	return fmt.Errorf("github user lookup: %w", err)
}
