// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the recall engine.
// Candidate, QuerySpec and the pool are request scoped; Selection and
// Diagnostics are returned to callers and never persisted here.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Strategy names a pairwise similarity strategy used by the diversity
// selector.
type Strategy string

const (
	StrategyTitleJaccard    Strategy = "title_jaccard"
	StrategyEmbeddingCosine Strategy = "embedding_cosine"
	StrategyHybrid          Strategy = "hybrid"
)

// ParseStrategy converts a configuration string into a Strategy. An empty
// string yields the empty Strategy, which callers treat as "use default".
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StrategyTitleJaccard, StrategyEmbeddingCosine, StrategyHybrid:
		return st, nil
	default:
		return "", fmt.Errorf("unknown similarity strategy %q: use title_jaccard, embedding_cosine, or hybrid", s)
	}
}

// Facet labels the informational facet a sub-query targets.
type Facet string

const (
	FacetFacts      Facet = "facts"
	FacetNarrative  Facet = "narrative"
	FacetProcedural Facet = "procedural"
)

// QuerySpec is one sub-query issued by the decomposer. It is immutable
// once issued.
type QuerySpec struct {
	Text  string `json:"text" yaml:"text"`
	Facet Facet  `json:"facet,omitempty" yaml:"facet,omitempty"`
}

// Hit is a single vector-search match as returned by a vector store.
// Score is already normalized into [0,1] by the store.
type Hit struct {
	ID          string      `json:"id" yaml:"id"`
	Score       float64     `json:"score" yaml:"score"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	TitleTokens []string    `json:"title_tokens,omitempty" yaml:"title_tokens,omitempty"`
	Embedding   []float32   `json:"-" yaml:"-"`
	Centroids   [][]float32 `json:"-" yaml:"-"`
	ContentRef  string      `json:"content_ref,omitempty" yaml:"content_ref,omitempty"`
}

// Candidate is one corpus item surfaced by retrieval for a recall request.
// A pool holds at most one Candidate per ID.
type Candidate struct {
	// ID uniquely identifies the corpus item.
	ID string

	// RelevanceScore is in [0,1]; after aggregation it is the maximum
	// observed across sub-queries.
	RelevanceScore float64

	// SourceQueries is the sorted set of sub-query indices that surfaced
	// this item.
	SourceQueries []int

	// Embedding is the item-level vector, if the store provided one.
	Embedding []float32

	// Centroids holds a multi-centroid representation for items whose
	// embedding was aggregated with k-means. Empty otherwise.
	Centroids [][]float32

	// TitleTokens is the sorted set of normalized title words.
	TitleTokens []string

	// Title is the raw title, kept for display.
	Title string

	// ContentRef points at the underlying stored item.
	ContentRef string
}

// Selection is one ranked entry of a recall result.
type Selection struct {
	ID             string  `json:"id" yaml:"id"`
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
	MMRScore       float64 `json:"mmr_score" yaml:"mmr_score"`
	Rank           int     `json:"rank" yaml:"rank"`
	Title          string  `json:"title,omitempty" yaml:"title,omitempty"`
	ContentRef     string  `json:"content_ref,omitempty" yaml:"content_ref,omitempty"`
}

// Diagnostics is non-functional metadata about one recall call.
type Diagnostics struct {
	QueriesGenerated  int `json:"queries_generated" yaml:"queries_generated"`
	RawCandidateCount int `json:"raw_candidate_count" yaml:"raw_candidate_count"`
	DedupedPoolSize   int `json:"deduped_pool_size" yaml:"deduped_pool_size"`

	// DecompositionFallback reports that the prompt itself was used as the
	// only query because decomposition failed or produced nothing usable.
	DecompositionFallback bool   `json:"decomposition_fallback,omitempty" yaml:"decomposition_fallback,omitempty"`
	DecompositionError    string `json:"decomposition_error,omitempty" yaml:"decomposition_error,omitempty"`

	// FailedQueries counts sub-queries whose retrieval failed or timed out.
	FailedQueries int `json:"failed_queries" yaml:"failed_queries"`

	// EmptyReason explains an empty result list.
	EmptyReason string `json:"empty_reason,omitempty" yaml:"empty_reason,omitempty"`

	Queries   []QuerySpec   `json:"queries,omitempty" yaml:"queries,omitempty"`
	Strategy  Strategy      `json:"strategy" yaml:"strategy"`
	RequestID string        `json:"request_id" yaml:"request_id"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// RecallRequest is the input to a recall call. Zero QueryCount and
// PerQueryLimit and an empty strategy fall back to the configured
// defaults. ResultLimit and Lambda are pointers because 0 is meaningful
// for both (no results, pure diversity); nil means the configured default.
type RecallRequest struct {
	Prompt             string   `json:"prompt" yaml:"prompt"`
	ResultLimit        *int     `json:"result_limit,omitempty" yaml:"result_limit,omitempty"`
	QueryCount         int      `json:"query_count" yaml:"query_count"`
	PerQueryLimit      int      `json:"per_query_limit" yaml:"per_query_limit"`
	Lambda             *float64 `json:"lambda,omitempty" yaml:"lambda,omitempty"`
	SimilarityStrategy Strategy `json:"similarity_strategy,omitempty" yaml:"similarity_strategy,omitempty"`
}

// RecallResponse is the output of a recall call.
type RecallResponse struct {
	Results     []Selection `json:"results" yaml:"results"`
	Diagnostics Diagnostics `json:"diagnostics" yaml:"diagnostics"`
}

// Float64 returns a pointer to v, for filling optional request fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for filling optional request fields.
func Int(v int) *int { return &v }
