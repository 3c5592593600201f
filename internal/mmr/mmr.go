// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mmr selects a ranked, diverse subset of a candidate pool with
// Maximal Marginal Relevance.
//
// Selection keeps two sets, Remaining and Selected. Each step scores every
// remaining candidate as
//
//	mmr(c) = lambda*relevance(c) - (1-lambda)*max(sim(c, s) for s in Selected)
//
// with the penalty defined as 0 while Selected is empty, and moves the best
// candidate into Selected. Ties go to the higher relevance score, then to
// the lexicographically smaller ID, so identical inputs always produce
// identical output.
//
// Because the penalty is 0 on the first step, the first pick is always
// the most relevant candidate, even at lambda = 0.
package mmr

import (
	"github.com/pdiddy/recall-engine/pkg/types"
)

// Similarity scores two candidates in [0,1].
type Similarity func(a, b types.Candidate) float64

// Select returns up to k candidates from pool in MMR order. lambda is
// clamped to [0,1]. The pool slice is not modified. The result is never
// nil.
func Select(pool []types.Candidate, k int, lambda float64, sim Similarity) []types.Selection {
	if k <= 0 || len(pool) == 0 {
		return []types.Selection{}
	}
	if k > len(pool) {
		k = len(pool)
	}
	lambda = clampLambda(lambda)

	remaining := make([]types.Candidate, len(pool))
	copy(remaining, pool)

	// penalty[i] is max sim(remaining[i], s) over Selected. Only the newest
	// selection can raise it, so each step costs one similarity call per
	// remaining candidate.
	penalty := make([]float64, len(remaining))

	selected := make([]types.Selection, 0, k)
	var last *types.Candidate

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		var bestScore float64

		for i := range remaining {
			c := &remaining[i]
			if last != nil {
				if s := sim(*c, *last); s > penalty[i] {
					penalty[i] = s
				}
			}

			score := lambda*c.RelevanceScore - (1-lambda)*penalty[i]
			if bestIdx < 0 || better(score, c, bestScore, &remaining[bestIdx]) {
				bestIdx = i
				bestScore = score
			}
		}

		pick := remaining[bestIdx]
		selected = append(selected, types.Selection{
			ID:             pick.ID,
			RelevanceScore: pick.RelevanceScore,
			MMRScore:       bestScore,
			Rank:           len(selected) + 1,
			Title:          pick.Title,
			ContentRef:     pick.ContentRef,
		})

		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		penalty = append(penalty[:bestIdx], penalty[bestIdx+1:]...)
		last = &pick
	}

	return selected
}

// better reports whether candidate c with score beats the current best.
func better(score float64, c *types.Candidate, bestScore float64, best *types.Candidate) bool {
	if score != bestScore {
		return score > bestScore
	}
	if c.RelevanceScore != best.RelevanceScore {
		return c.RelevanceScore > best.RelevanceScore
	}
	return c.ID < best.ID
}

func clampLambda(lambda float64) float64 {
	switch {
	case lambda < 0:
		return 0
	case lambda > 1:
		return 1
	default:
		return lambda
	}
}
