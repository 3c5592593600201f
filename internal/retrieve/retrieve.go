// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve fetches scored candidates for one sub-query from a
// vector store. Failures are absorbed: a failed or timed-out search yields
// an empty candidate list and the error is reported alongside it, never
// raised.
package retrieve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pdiddy/recall-engine/internal/similarity"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// VectorStore searches the corpus by text. Hits are sorted by score,
// descending, with scores normalized into [0,1].
type VectorStore interface {
	Search(ctx context.Context, text string, limit int) ([]types.Hit, error)
}

// Gate bounds concurrent store calls. A slot is held for the whole store
// call, including after Retrieve has given up on it at the deadline.
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}

// Result is the outcome of one sub-query retrieval. Candidates is empty
// whenever Err is set.
type Result struct {
	Index      int
	Query      types.QuerySpec
	Candidates []types.Candidate
	Err        error
	Elapsed    time.Duration
}

// Failed reports whether the retrieval failed.
func (r Result) Failed() bool { return r.Err != nil }

// Retriever wraps a VectorStore for the recall fan-out.
type Retriever struct {
	store  VectorStore
	gate   Gate
	logger *slog.Logger
}

// New creates a Retriever with no concurrency gate. A nil logger discards
// log output.
func New(store VectorStore, logger *slog.Logger) *Retriever {
	return NewGated(store, nil, logger)
}

// NewGated creates a Retriever whose store calls each hold a gate slot.
func NewGated(store VectorStore, gate Gate, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Retriever{store: store, gate: gate, logger: logger}
}

// Retrieve runs one sub-query and returns up to limit candidates, each
// tagged with source query index. The call returns when the store answers
// or ctx is done, whichever comes first; a store that ignores ctx is left
// to finish in the background and keeps its gate slot until it does.
func (r *Retriever) Retrieve(ctx context.Context, index int, q types.QuerySpec, limit int) Result {
	start := time.Now()
	res := Result{Index: index, Query: q, Candidates: []types.Candidate{}}

	if limit <= 0 {
		return res
	}

	if r.gate != nil {
		if err := r.gate.Acquire(ctx); err != nil {
			res.Elapsed = time.Since(start)
			res.Err = fmt.Errorf("query %d %q: waiting for capacity: %w", index, q.Text, err)
			r.logger.Warn("retrieval failed", "index", index, "query", q.Text, "error", err)
			return res
		}
	}

	type searchOutcome struct {
		hits []types.Hit
		err  error
	}
	done := make(chan searchOutcome, 1)
	go func() {
		if r.gate != nil {
			defer r.gate.Release()
		}
		hits, err := r.store.Search(ctx, q.Text, limit)
		done <- searchOutcome{hits: hits, err: err}
	}()

	var out searchOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	res.Elapsed = time.Since(start)

	if out.err != nil {
		res.Err = fmt.Errorf("query %d %q: %w", index, q.Text, out.err)
		r.logger.Warn("retrieval failed", "index", index, "query", q.Text, "error", out.err)
		return res
	}

	res.Candidates = toCandidates(out.hits, index, limit)
	r.logger.Debug("retrieval done", "index", index, "query", q.Text,
		"candidates", len(res.Candidates), "elapsed", res.Elapsed)
	return res
}

// toCandidates converts store hits into candidates sorted by score.
func toCandidates(hits []types.Hit, index, limit int) []types.Candidate {
	cands := make([]types.Candidate, 0, len(hits))
	for _, h := range hits {
		if h.ID == "" {
			continue
		}
		tokens := h.TitleTokens
		if len(tokens) == 0 {
			tokens = similarity.Tokenize(h.Title)
		}
		cands = append(cands, types.Candidate{
			ID:             h.ID,
			RelevanceScore: normalizeScore(h.Score),
			SourceQueries:  []int{index},
			Embedding:      h.Embedding,
			Centroids:      h.Centroids,
			TitleTokens:    tokens,
			Title:          h.Title,
			ContentRef:     h.ContentRef,
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].RelevanceScore != cands[j].RelevanceScore {
			return cands[i].RelevanceScore > cands[j].RelevanceScore
		}
		return cands[i].ID < cands[j].ID
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

func normalizeScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
