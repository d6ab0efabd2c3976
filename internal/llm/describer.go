// Package llm generates short researcher descriptions from publication
// history using a local text-generation service.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

const (
	// DefaultBaseURL is the default generation service endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemma2:9b"

	// DefaultTimeout allows for slow local generation.
	DefaultTimeout = 2 * time.Minute

	// generateSeed keeps output deterministic across identical prompts.
	generateSeed = 42

	// maxPromptTitles caps how many titles are included in the prompt.
	maxPromptTitles = 50

	serviceName = "llm"
)

// delimitedOutput matches the [[ ... ]] block the prompt asks the model to
// wrap its answer in.
var delimitedOutput = regexp.MustCompile(`(?s)\[\[(.*?)\]\]`)

// Config contains configuration options for the describer.
type Config struct {
	// BaseURL is the generation service base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is the model name. Defaults to DefaultModel.
	Model string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Describer produces one-paragraph research summaries for a researcher based
// on their publication titles.
type Describer struct {
	httpClient *sources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewDescriber creates a describer for the configured generation service.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewDescriber(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Describer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{Timeout: cfg.Timeout})
	}

	return &Describer{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "llm").Logger(),
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Describe generates a short description of a researcher's work from their
// publication titles. The model is asked to wrap its answer in [[ ]] so the
// surrounding chatter can be stripped; if the delimiters are missing the raw
// output is returned inside an explanatory string rather than as an error.
func (d *Describer) Describe(ctx context.Context, name string, titles []string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.NewValidationError("name", "name is required")
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("describing %s: %w", name, domain.ErrSourceEmpty)
	}

	payload := generateRequest{
		Model:  d.config.Model,
		Prompt: buildPrompt(name, titles),
		Stream: false,
		Options: map[string]any{
			"seed": generateSeed,
		},
	}

	var resp generateResponse
	url := d.config.BaseURL + "/api/generate"
	err := d.httpClient.PostJSON(ctx, url, payload, &resp, func(status int, body []byte) error {
		return domain.NewExternalAPIError(serviceName, status, strings.TrimSpace(string(body)), nil)
	})
	if err != nil {
		return "", fmt.Errorf("generating description: %w", err)
	}

	return extractDescription(resp.Response), nil
}

// buildPrompt assembles the generation prompt. Titles beyond maxPromptTitles
// are dropped to keep the prompt inside the model's context window.
func buildPrompt(name string, titles []string) string {
	if len(titles) > maxPromptTitles {
		titles = titles[:maxPromptTitles]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Below is a list of publication titles by the researcher %s.\n\n", name)
	for _, title := range titles {
		b.WriteString("- ")
		b.WriteString(title)
		b.WriteString("\n")
	}
	b.WriteString("\nWrite a single paragraph describing this researcher's areas of work, ")
	b.WriteString("based only on the titles above. Do not mention individual titles. ")
	b.WriteString("Wrap your answer in double square brackets, like [[your answer]], ")
	b.WriteString("and output nothing outside the brackets.")
	return b.String()
}

// extractDescription strips the [[ ]] delimiters from the model output.
// Output that ignored the delimiter instruction is still surfaced, flagged
// as unformatted, so the profile is not left blank.
func extractDescription(output string) string {
	match := delimitedOutput.FindStringSubmatch(output)
	if match == nil {
		trimmed := strings.TrimSpace(output)
		if trimmed == "" {
			return ""
		}
		return fmt.Sprintf("Error: Response format incorrect - %s", trimmed)
	}
	return strings.TrimSpace(match[1])
}
