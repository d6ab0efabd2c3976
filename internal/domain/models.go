// Package domain provides domain models and business logic for the
// researcher profile service.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicationType classifies a publication by its structural record type in
// the primary bibliographic source.
type PublicationType string

const (
	PublicationTypeConference    PublicationType = "Conference Paper"
	PublicationTypeJournal       PublicationType = "Journal Article"
	PublicationTypeBook          PublicationType = "Book"
	PublicationTypeInCollection  PublicationType = "Book Chapter"
	PublicationTypePhDThesis     PublicationType = "PhD Thesis"
	PublicationTypeMastersThesis PublicationType = "Masters Thesis"
	PublicationTypeDataset       PublicationType = "Dataset"
	PublicationTypeOther         PublicationType = "Other"
)

// VenueUnknown is the venue label used when no venue can be derived from the
// record type, and the rank label used when the venue ranker finds no match.
const VenueUnknown = "Unknown"

// homePagePlaceholder is the title DBLP uses for non-article profile records.
const homePagePlaceholder = "home page"

// Publication represents one work attributed to a researcher.
type Publication struct {
	Title         string          `json:"title"`
	Year          int             `json:"year"`
	Type          PublicationType `json:"type"`
	Venue         string          `json:"venue"`
	VenueRank     string          `json:"venue_rank,omitempty"`
	CitationCount int             `json:"citations"`
	Topics        []string        `json:"topics,omitempty"`
	Coauthors     []string        `json:"coauthors,omitempty"`
	Links         []string        `json:"links,omitempty"`
	Preprint      bool            `json:"preprint"`
	Abstract      string          `json:"abstract,omitempty"`
}

// Valid reports whether the publication satisfies the inclusion invariants:
// a non-empty title, a year of at least 1, and a title that is not the
// bibliographic source's profile placeholder record.
func (p *Publication) Valid() bool {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return false
	}
	if p.Year < 1 {
		return false
	}
	return strings.ToLower(strings.TrimRight(title, ".")) != homePagePlaceholder
}

// NormalizeTitle produces the canonical form of a publication title used for
// deduplication and cross-source matching: trimmed, lowercased, with any
// trailing period stripped.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimRight(title, ".")
	return strings.ToLower(title)
}

// ResearcherProfile is the canonical aggregate for one researcher.
type ResearcherProfile struct {
	ID           uuid.UUID     `json:"-"`
	PID          string        `json:"pid"`
	Name         string        `json:"name"`
	Affiliations []string      `json:"affiliations"`
	Description  string        `json:"description,omitempty"`
	SourceURL    string        `json:"dblp_url,omitempty"`
	Publications []Publication `json:"publications"`
	CreatedAt    time.Time     `json:"-"`
	UpdatedAt    time.Time     `json:"-"`
}

// AddPublication appends a publication if it is valid and no publication with
// the same normalized title is already present. It reports whether the
// publication was added.
func (r *ResearcherProfile) AddPublication(pub Publication) bool {
	if !pub.Valid() {
		return false
	}
	key := NormalizeTitle(pub.Title)
	for i := range r.Publications {
		if NormalizeTitle(r.Publications[i].Title) == key {
			return false
		}
	}
	r.Publications = append(r.Publications, pub)
	return true
}

// AddAffiliation appends an affiliation preserving discovery order, skipping
// blanks and duplicates.
func (r *ResearcherProfile) AddAffiliation(affiliation string) {
	affiliation = strings.TrimSpace(affiliation)
	if affiliation == "" {
		return
	}
	for _, existing := range r.Affiliations {
		if existing == affiliation {
			return
		}
	}
	r.Affiliations = append(r.Affiliations, affiliation)
}

// SetDescription stores the description only if none is present yet. A
// description, once set, is never overwritten with different text.
func (r *ResearcherProfile) SetDescription(description string) {
	if r.Description != "" {
		return
	}
	r.Description = strings.TrimSpace(description)
}

// Titles returns the raw titles of all publications, in storage order.
func (r *ResearcherProfile) Titles() []string {
	titles := make([]string, len(r.Publications))
	for i := range r.Publications {
		titles[i] = r.Publications[i].Title
	}
	return titles
}

// CitationCounts returns the citation counts of all publications, in storage
// order.
func (r *ResearcherProfile) CitationCounts() []int {
	counts := make([]int, len(r.Publications))
	for i := range r.Publications {
		counts[i] = r.Publications[i].CitationCount
	}
	return counts
}
