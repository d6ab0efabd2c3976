// Package bibliometrics computes citation-based indices for researcher
// profiles: h-index, g-index, and total citations.
package bibliometrics

import "sort"

// HIndex computes the h-index from a list of citation counts: the largest h
// such that h publications each have at least h citations. Negative entries
// are ignored. An empty list yields 0.
func HIndex(citations []int) int {
	sorted := cleanDescending(citations)
	h := 0
	for i, c := range sorted {
		if c >= i+1 {
			h = i + 1
		} else {
			break
		}
	}
	return h
}

// GIndex computes the g-index from a list of citation counts: the largest g
// such that the top g publications have a combined citation count of at
// least g squared. Negative entries are ignored. An empty list yields 0.
func GIndex(citations []int) int {
	sorted := cleanDescending(citations)
	total := 0
	g := 0
	for i, c := range sorted {
		total += c
		if total >= (i+1)*(i+1) {
			g = i + 1
		} else {
			break
		}
	}
	return g
}

// TotalCitations sums the citation counts, ignoring negative entries.
func TotalCitations(citations []int) int {
	total := 0
	for _, c := range citations {
		if c >= 0 {
			total += c
		}
	}
	return total
}

// cleanDescending filters out negative counts and returns a copy sorted in
// descending order.
func cleanDescending(citations []int) []int {
	sorted := make([]int, 0, len(citations))
	for _, c := range citations {
		if c >= 0 {
			sorted = append(sorted, c)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	return sorted
}
