// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pool merges per-query candidate lists into one deduplicated pool.
package pool

import (
	"sort"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// Stats describes one aggregation.
type Stats struct {
	// Raw is the number of candidates across all input lists.
	Raw int

	// Merged is the number of candidates folded into an earlier
	// occurrence of the same ID.
	Merged int
}

// Aggregate groups candidates by ID across all per-query lists. A merged
// candidate keeps the maximum relevance score and the union of source
// queries; embedding, centroids, and title come from the first
// occurrence. Every ID appears exactly once in the output. Output order
// is first-seen order, but callers must not rely on it.
func Aggregate(perQuery [][]types.Candidate) ([]types.Candidate, Stats) {
	var stats Stats
	seen := make(map[string]int)
	var merged []types.Candidate

	for _, list := range perQuery {
		for _, c := range list {
			stats.Raw++
			if idx, ok := seen[c.ID]; ok {
				mergeInto(&merged[idx], c)
				stats.Merged++
				continue
			}
			seen[c.ID] = len(merged)
			c.SourceQueries = union(nil, c.SourceQueries)
			merged = append(merged, c)
		}
	}

	if merged == nil {
		merged = []types.Candidate{}
	}
	return merged, stats
}

// mergeInto folds src into dst: higher score wins, source queries union,
// representation fields stay from dst unless dst has none.
func mergeInto(dst *types.Candidate, src types.Candidate) {
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	dst.SourceQueries = union(dst.SourceQueries, src.SourceQueries)

	if len(dst.Embedding) == 0 && len(src.Embedding) > 0 {
		dst.Embedding = src.Embedding
	}
	if len(dst.Centroids) == 0 && len(src.Centroids) > 0 {
		dst.Centroids = src.Centroids
	}
	if len(dst.TitleTokens) == 0 && len(src.TitleTokens) > 0 {
		dst.TitleTokens = src.TitleTokens
	}
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if dst.ContentRef == "" && src.ContentRef != "" {
		dst.ContentRef = src.ContentRef
	}
}

// union returns the sorted set union of a and b in a new slice.
func union(a, b []int) []int {
	set := make(map[int]struct{}, len(a)+len(b))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		set[v] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
