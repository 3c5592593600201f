// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity computes pairwise similarity between recall
// candidates. Providers are stateless and safe to share across concurrent
// requests. Every provider returns a symmetric score in [0,1] with
// Similarity(a, a) = 1.
//
// Cosine convention: raw cosine in [-1,1] is mapped to [0,1] by
// (cos+1)/2 everywhere in this package, so orthogonal vectors score 0.5
// and opposite vectors score 0.
package similarity

import (
	"fmt"
	"math"
	"reflect"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// Provider computes the similarity of two candidates.
type Provider interface {
	Name() types.Strategy
	Similarity(a, b types.Candidate) float64
}

// New returns the provider for strategy s configured by cfg. An empty
// strategy selects embedding cosine.
func New(s types.Strategy, cfg types.SimilarityConfig) (Provider, error) {
	lexical, err := newTitleJaccard(cfg)
	if err != nil {
		return nil, err
	}

	switch s {
	case types.StrategyTitleJaccard:
		return lexical, nil
	case types.StrategyEmbeddingCosine, "":
		return EmbeddingCosine{Fallback: lexical}, nil
	case types.StrategyHybrid:
		if cfg.HybridWeight < 0 || cfg.HybridWeight > 1 {
			return nil, fmt.Errorf("hybrid weight %v out of range [0,1]", cfg.HybridWeight)
		}
		return Hybrid{
			Weight:   cfg.HybridWeight,
			Lexical:  lexical,
			Semantic: EmbeddingCosine{Fallback: lexical},
		}, nil
	default:
		return nil, fmt.Errorf("unknown similarity strategy %q", s)
	}
}

func newTitleJaccard(cfg types.SimilarityConfig) (TitleJaccard, error) {
	switch cfg.EmptyTitle {
	case "", types.EmptyTitleZero:
		return TitleJaccard{EmptyTitle: types.EmptyTitleZero}, nil
	case types.EmptyTitleNeutral:
		if cfg.Neutral < 0 || cfg.Neutral > 1 {
			return TitleJaccard{}, fmt.Errorf("neutral similarity %v out of range [0,1]", cfg.Neutral)
		}
		return TitleJaccard{EmptyTitle: types.EmptyTitleNeutral, Neutral: cfg.Neutral}, nil
	default:
		return TitleJaccard{}, fmt.Errorf("unknown empty title policy %q: use zero or neutral", cfg.EmptyTitle)
	}
}

// sameItem reports whether a and b are the same corpus item. Candidates
// without an ID are the same item only when every field matches.
func sameItem(a, b types.Candidate) bool {
	if a.ID != b.ID {
		return false
	}
	return a.ID != "" || reflect.DeepEqual(a, b)
}

// --- title Jaccard ---

// TitleJaccard scores |A∩B| / |A∪B| over title tokens. It needs no
// embeddings but is coarse: topically identical items with disjoint
// vocabulary score 0.
type TitleJaccard struct {
	// EmptyTitle decides the score when either side has no title tokens.
	EmptyTitle types.EmptyTitlePolicy

	// Neutral is returned for empty titles under EmptyTitleNeutral.
	Neutral float64
}

// Name returns the strategy identifier.
func (TitleJaccard) Name() types.Strategy { return types.StrategyTitleJaccard }

// Similarity returns the Jaccard index of the two title token sets.
func (j TitleJaccard) Similarity(a, b types.Candidate) float64 {
	if sameItem(a, b) {
		return 1
	}
	if len(a.TitleTokens) == 0 || len(b.TitleTokens) == 0 {
		if j.EmptyTitle == types.EmptyTitleNeutral {
			return clamp01(j.Neutral)
		}
		return 0
	}
	return jaccard(a.TitleTokens, b.TitleTokens)
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// --- embedding cosine ---

// EmbeddingCosine scores the cosine of item vectors mapped to [0,1].
// Items carrying centroids compare by their best-matching centroid pair.
// When a pair has no usable vectors (missing, zero, or mismatched
// dimensions) the pair is scored by Fallback instead.
type EmbeddingCosine struct {
	Fallback Provider
}

// Name returns the strategy identifier.
func (EmbeddingCosine) Name() types.Strategy { return types.StrategyEmbeddingCosine }

// Similarity returns the mapped cosine of a and b.
func (c EmbeddingCosine) Similarity(a, b types.Candidate) float64 {
	if sameItem(a, b) {
		return 1
	}
	if s, ok := VectorSimilarity(a, b); ok {
		return s
	}
	if c.Fallback != nil {
		return c.Fallback.Similarity(a, b)
	}
	return 0
}

// VectorSimilarity returns the best mapped cosine over the vector
// representations of a and b. ok is false when no pair of vectors is
// comparable.
func VectorSimilarity(a, b types.Candidate) (sim float64, ok bool) {
	best := -1.0
	for _, va := range representations(a) {
		for _, vb := range representations(b) {
			cos, valid := Cosine(va, vb)
			if !valid {
				continue
			}
			if s := (cos + 1) / 2; s > best {
				best = s
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return clamp01(best), true
}

// representations returns the centroids of c, or its single embedding.
func representations(c types.Candidate) [][]float32 {
	if len(c.Centroids) > 0 {
		return c.Centroids
	}
	if len(c.Embedding) > 0 {
		return [][]float32{c.Embedding}
	}
	return nil
}

// Cosine returns the raw cosine of a and b in [-1,1]. valid is false for
// empty, zero-norm, or dimension-mismatched vectors.
func Cosine(a, b []float32) (cos float64, valid bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	cos = dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(cos) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, cos)), true
}

// --- hybrid ---

// Hybrid blends a semantic and a lexical provider:
// Weight*semantic + (1-Weight)*lexical.
type Hybrid struct {
	Weight   float64
	Lexical  Provider
	Semantic Provider
}

// Name returns the strategy identifier.
func (Hybrid) Name() types.Strategy { return types.StrategyHybrid }

// Similarity returns the weighted blend of the two providers.
func (h Hybrid) Similarity(a, b types.Candidate) float64 {
	if sameItem(a, b) {
		return 1
	}
	w := clamp01(h.Weight)
	return clamp01(w*h.Semantic.Similarity(a, b) + (1-w)*h.Lexical.Similarity(a, b))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
