// Package dblp provides the client for the primary bibliographic source: the
// DBLP person export (XML) and author search (JSON) APIs.
package dblp

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the DBLP APIs.
	DefaultBaseURL = "https://dblp.org"

	// DefaultRateLimit is the default sustained request rate. DBLP asks
	// crawlers to stay well below a handful of requests per second.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "DBLP"

	// unknownResearcher is the display name used when the person export
	// carries no name attribute.
	unknownResearcher = "Unknown Researcher"
)

// Config contains configuration options for the DBLP client.
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

// AuthorRecord is the parsed result of one person export: the canonical
// profile plus the coauthor identifier map, which exists only at fetch time
// and is never persisted.
type AuthorRecord struct {
	Profile      *domain.ResearcherProfile
	CoauthorPIDs map[string]string
}

// AuthorCandidate is one hit from the author search API.
type AuthorCandidate struct {
	Name         string
	PID          string
	URL          string
	Affiliations []string
}

// Client talks to the DBLP APIs.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new DBLP client with the given configuration.
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
		logger:     logger.With().Str("component", "dblp").Logger(),
	}
}

// AuthorProfile fetches and parses the person export for the given persistent
// identifier. A successful response with an empty body means the identity is
// unknown upstream and is reported as domain.ErrSourceEmpty; transport
// failures surface as transient errors.
func (c *Client) AuthorProfile(ctx context.Context, pid string) (*AuthorRecord, error) {
	pid = strings.TrimSpace(pid)
	if pid == "" {
		return nil, domain.NewValidationError("pid", "must not be empty")
	}

	exportURL := fmt.Sprintf("%s/pid/%s.xml", c.config.BaseURL, pid)
	body, err := c.httpClient.GetBody(ctx, exportURL, c.apiError("researcher", pid))
	if err != nil {
		return nil, fmt.Errorf("fetching person export: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, fmt.Errorf("person export for pid %q: %w", pid, domain.ErrSourceEmpty)
	}

	var person personRecord
	if err := xml.Unmarshal(body, &person); err != nil {
		return nil, fmt.Errorf("parsing person export: %w", err)
	}

	return c.buildRecord(pid, &person), nil
}

// SearchAuthors queries the author search API and returns the candidate list.
// Candidates without a profile URL are skipped.
func (c *Client) SearchAuthors(ctx context.Context, query string) ([]AuthorCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}

	searchURL := fmt.Sprintf("%s/search/author/api?q=%s&format=json", c.config.BaseURL, url.QueryEscape(query))
	var resp searchResponse
	if err := c.httpClient.GetJSON(ctx, searchURL, &resp, c.apiError("author search", query)); err != nil {
		return nil, fmt.Errorf("searching authors: %w", err)
	}

	candidates := make([]AuthorCandidate, 0, len(resp.Result.Hits.Hit))
	for _, hit := range resp.Result.Hits.Hit {
		if hit.Info.URL == "" {
			c.logger.Debug().Str("author", hit.Info.Author).Msg("search hit without profile URL, skipping")
			continue
		}

		candidate := AuthorCandidate{
			Name: hit.Info.Author,
			PID:  PIDFromURL(hit.Info.URL),
			URL:  hit.Info.URL,
		}
		if hit.Info.Notes != nil {
			for _, note := range hit.Info.Notes.Note {
				if note.Type == "affiliation" {
					candidate.Affiliations = append(candidate.Affiliations, note.Text)
				}
			}
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// AuthorTitles fetches the person export at the given profile URL and returns
// the set of normalized publication titles, for cross-source identity matching.
func (c *Client) AuthorTitles(ctx context.Context, profileURL string) (map[string]struct{}, error) {
	body, err := c.httpClient.GetBody(ctx, profileURL+".xml", c.apiError("researcher", profileURL))
	if err != nil {
		return nil, fmt.Errorf("fetching person export: %w", err)
	}

	var person personRecord
	if err := xml.Unmarshal(body, &person); err != nil {
		return nil, fmt.Errorf("parsing person export: %w", err)
	}

	titles := make(map[string]struct{})
	for i := range person.Records {
		_, elem := person.Records[i].tagged()
		if elem == nil {
			continue
		}
		if title := domain.NormalizeTitle(elem.Title); title != "" {
			titles[title] = struct{}{}
		}
	}
	return titles, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// PIDFromURL extracts the persistent identifier from a DBLP profile URL.
func PIDFromURL(profileURL string) string {
	const marker = "/pid/"
	if idx := strings.LastIndex(profileURL, marker); idx >= 0 {
		return profileURL[idx+len(marker):]
	}
	return profileURL
}

// buildRecord assembles the canonical profile from a parsed person export.
func (c *Client) buildRecord(pid string, person *personRecord) *AuthorRecord {
	name := person.Name
	if name == "" {
		name = unknownResearcher
	}

	profile := &domain.ResearcherProfile{
		PID:       pid,
		Name:      name,
		SourceURL: fmt.Sprintf("%s/pid/%s", c.config.BaseURL, pid),
	}
	for _, note := range person.Person.Notes {
		if note.Type == "affiliation" {
			profile.AddAffiliation(note.Text)
		}
	}

	coauthorPIDs := make(map[string]string)
	for i := range person.Records {
		tag, elem := person.Records[i].tagged()
		if elem == nil {
			c.logger.Debug().Str("pid", pid).Msg("unrecognized publication record, skipping")
			continue
		}

		// Affiliation notes can also hang off home page records.
		for _, note := range elem.Notes {
			if note.Type == "affiliation" {
				profile.AddAffiliation(note.Text)
			}
		}

		pub, pubCoauthors := c.buildPublication(tag, elem, name)
		for coauthor, coauthorPID := range pubCoauthors {
			if coauthorPID != "" {
				coauthorPIDs[coauthor] = coauthorPID
			}
		}
		profile.AddPublication(pub)
	}

	return &AuthorRecord{Profile: profile, CoauthorPIDs: coauthorPIDs}
}

// buildPublication converts one publication element into a domain publication
// and the coauthor→pid pairs observed on it.
func (c *Client) buildPublication(tag string, elem *publElem, ownerName string) (domain.Publication, map[string]string) {
	pubType, venue := typeAndVenue(tag, elem)

	year := 0
	if y, err := strconv.Atoi(strings.TrimSpace(elem.Year)); err == nil {
		year = y
	} else if elem.Year != "" {
		c.logger.Debug().Str("title", elem.Title).Str("year", elem.Year).Msg("unparseable year on publication record")
	}

	coauthorPIDs := make(map[string]string, len(elem.Authors))
	coauthors := make([]string, 0, len(elem.Authors))
	for _, author := range elem.Authors {
		authorName := strings.TrimSpace(author.Name)
		if authorName == "" || authorName == ownerName {
			continue
		}
		coauthors = append(coauthors, authorName)
		coauthorPIDs[authorName] = author.PID
	}

	return domain.Publication{
		Title:     strings.TrimSpace(elem.Title),
		Year:      year,
		Type:      pubType,
		Venue:     venue,
		Topics:    nil,
		Coauthors: coauthors,
		Links:     elem.Links,
		Preprint:  elem.PublType == "informal",
	}, coauthorPIDs
}

// typeAndVenue derives the publication type and display venue from the record
// tag. Thesis records carry a fixed venue label; dataset records use the
// publisher; anything unrecognized is Other with an unknown venue.
func typeAndVenue(tag string, elem *publElem) (domain.PublicationType, string) {
	switch tag {
	case "inproceedings":
		return domain.PublicationTypeConference, orUnknown(elem.BookTitle)
	case "article":
		return domain.PublicationTypeJournal, orUnknown(elem.Journal)
	case "book":
		if elem.BookTitle != "" {
			return domain.PublicationTypeBook, elem.BookTitle
		}
		return domain.PublicationTypeBook, orUnknown(elem.Publisher)
	case "incollection":
		return domain.PublicationTypeInCollection, orUnknown(elem.BookTitle)
	case "phdthesis":
		return domain.PublicationTypePhDThesis, "PhD Dissertation"
	case "mastersthesis":
		return domain.PublicationTypeMastersThesis, "Master's Dissertation"
	case "data":
		return domain.PublicationTypeDataset, orUnknown(elem.Publisher)
	default:
		return domain.PublicationTypeOther, domain.VenueUnknown
	}
}

func orUnknown(venue string) string {
	if strings.TrimSpace(venue) == "" {
		return domain.VenueUnknown
	}
	return venue
}

// apiError builds the non-2xx response mapper for one request.
func (c *Client) apiError(entity, id string) func(status int, body []byte) error {
	return func(status int, body []byte) error {
		switch status {
		case 404:
			return domain.NewNotFoundError(entity, id)
		case 429:
			return domain.NewRateLimitError(sourceName, 0)
		default:
			return domain.NewExternalAPIError(sourceName, status, strings.TrimSpace(string(body)), nil)
		}
	}
}
