package bibliometrics

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

// DefaultSnapshotTTL is how long a cached snapshot stays valid. Citation
// counts drift slowly, so a day-old snapshot is acceptable.
const DefaultSnapshotTTL = 24 * time.Hour

// defaultCacheSize bounds the number of cached snapshots.
const defaultCacheSize = 4096

// Snapshot holds the computed citation metrics for one publication set.
type Snapshot struct {
	TotalCitations int `json:"total_citations"`
	HIndex         int `json:"h_index"`
	GIndex         int `json:"g_index"`
}

// ComputeSnapshot computes a full snapshot from a list of citation counts.
func ComputeSnapshot(citations []int) Snapshot {
	return Snapshot{
		TotalCitations: TotalCitations(citations),
		HIndex:         HIndex(citations),
		GIndex:         GIndex(citations),
	}
}

// SnapshotCache caches bibliometric snapshots keyed by the publication title
// set, so an entry is invalidated implicitly whenever the publication set
// changes. Entries also expire after a TTL. Safe for concurrent use.
type SnapshotCache struct {
	cache *expirable.LRU[string, Snapshot]
}

// NewSnapshotCache creates a snapshot cache with the given TTL. A zero ttl
// uses DefaultSnapshotTTL.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl == 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{
		cache: expirable.NewLRU[string, Snapshot](defaultCacheSize, nil, ttl),
	}
}

// Key derives the cache key for a publication set: a SHA-256 digest over the
// sorted, normalized titles. Order of the input does not matter.
func Key(titles []string) string {
	normalized := make([]string, len(titles))
	for i, title := range titles {
		normalized[i] = domain.NormalizeTitle(title)
	}
	sort.Strings(normalized)

	sum := sha256.Sum256([]byte(strings.Join(normalized, "\n")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached snapshot for the given title set, if present and
// unexpired.
func (c *SnapshotCache) Get(titles []string) (Snapshot, bool) {
	return c.cache.Get(Key(titles))
}

// Put stores a snapshot for the given title set.
func (c *SnapshotCache) Put(titles []string, snapshot Snapshot) {
	c.cache.Add(Key(titles), snapshot)
}
