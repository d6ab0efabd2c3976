// Package fuzzy provides string similarity scoring used for venue ranking
// and citation candidate matching.
package fuzzy

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio returns a normalized edit-distance similarity between a and b on a
// 0-100 scale: 100 for identical strings (case-insensitive), 0 for strings
// with nothing in common. Comparison is performed on lowercased, trimmed
// input.
func Ratio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	return (longest - distance) * 100 / longest
}
