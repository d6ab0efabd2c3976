// Package venuerank resolves free-text venue names to a quality rank tier by
// fuzzy-matching against a reference table of known venues (the CORE
// conference ranking export).
package venuerank

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/scholarmap/researcher-profile-service/internal/fuzzy"
)

// DefaultThreshold is the minimum fuzzy similarity (0-100) required for a
// venue to be considered a match against the reference table.
const DefaultThreshold = 80

// Entry is one row of the venue reference table.
type Entry struct {
	Name         string
	Abbreviation string
	Rank         string
}

// Table is an in-memory, read-only venue reference table. Load it once at
// startup and share it across requests.
type Table struct {
	entries []Entry
}

// NewTable creates a table from pre-built entries.
func NewTable(entries []Entry) *Table {
	return &Table{entries: entries}
}

// LoadTable reads the reference table from a CORE CSV export. The export has
// no header row; columns are id, name, abbreviation, source, rank, followed
// by columns this service does not use.
func LoadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading venue table: %w", err)
		}
		if len(record) < 5 {
			continue
		}
		entries = append(entries, Entry{
			Name:         strings.TrimSpace(record[1]),
			Abbreviation: strings.TrimSpace(record[2]),
			Rank:         strings.TrimSpace(record[4]),
		})
	}
	return &Table{entries: entries}, nil
}

// LoadTableFile reads the reference table from a CSV file on disk.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening venue table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Ranker matches venue names against a reference table.
type Ranker struct {
	table     *Table
	threshold int
}

// NewRanker creates a ranker over the given table. A threshold of 0 uses
// DefaultThreshold.
func NewRanker(table *Table, threshold int) *Ranker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Ranker{table: table, threshold: threshold}
}

// Rank returns the rank tier of the best-matching reference venue. The venue
// name is compared against both the full name and the abbreviation column;
// the higher-scoring of the two best matches wins, provided it clears the
// threshold. The boolean result is false when no reference row matches.
// Among equally scored rows the first occurrence wins.
func (r *Ranker) Rank(venue string) (string, bool) {
	venue = strings.TrimSpace(venue)
	if venue == "" {
		return "", false
	}

	bestScore := 0
	bestRank := ""
	for _, entry := range r.table.entries {
		score := fuzzy.Ratio(venue, entry.Name)
		if s := fuzzy.Ratio(venue, entry.Abbreviation); s > score {
			score = s
		}
		if score > bestScore {
			bestScore = score
			bestRank = entry.Rank
		}
	}

	if bestScore < r.threshold {
		return "", false
	}
	return bestRank, true
}
