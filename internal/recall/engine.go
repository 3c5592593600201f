// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recall orchestrates one recall request: decompose the prompt,
// retrieve candidates for every sub-query concurrently, merge them into a
// deduplicated pool, and select a relevant yet diverse top-k with MMR.
package recall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/recall-engine/internal/decompose"
	"github.com/pdiddy/recall-engine/internal/mmr"
	"github.com/pdiddy/recall-engine/internal/pool"
	"github.com/pdiddy/recall-engine/internal/retrieve"
	"github.com/pdiddy/recall-engine/internal/similarity"
	"github.com/pdiddy/recall-engine/pkg/types"
)

var (
	// ErrEmptyPrompt rejects a request with a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrInvalidLambda rejects a lambda outside [0,1].
	ErrInvalidLambda = errors.New("lambda must be within [0,1]")

	// ErrInvalidStrategy rejects an unknown similarity strategy.
	ErrInvalidStrategy = errors.New("unknown similarity strategy")

	// ErrCorpusUnreachable reports that every sub-query retrieval failed.
	ErrCorpusUnreachable = errors.New("corpus unreachable: every retrieval failed")
)

// Options configures an Engine.
type Options struct {
	Config     types.RecallConfig
	Similarity types.SimilarityConfig

	// Store is the vector store collaborator. Required.
	Store retrieve.VectorStore

	// Generator produces sub-queries. Nil disables decomposition.
	Generator decompose.TextGenerator

	// DecomposeTimeout bounds each generator call.
	DecomposeTimeout time.Duration

	// Limiter caps store calls across engines. Nil creates one sized by
	// Config.GlobalConcurrency.
	Limiter *Limiter

	Logger *slog.Logger
}

// Engine serves recall requests. It is safe for concurrent use.
type Engine struct {
	cfg        types.RecallConfig
	decomposer *decompose.Decomposer
	retriever  *retrieve.Retriever
	providers  map[types.Strategy]similarity.Provider
	logger     *slog.Logger
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("vector store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg := withDefaults(opts.Config)
	if cfg.Lambda < 0 || cfg.Lambda > 1 || math.IsNaN(cfg.Lambda) {
		return nil, fmt.Errorf("default %w", ErrInvalidLambda)
	}

	providers := make(map[types.Strategy]similarity.Provider)
	for _, s := range []types.Strategy{types.StrategyTitleJaccard, types.StrategyEmbeddingCosine, types.StrategyHybrid} {
		p, err := similarity.New(s, opts.Similarity)
		if err != nil {
			return nil, fmt.Errorf("building %s similarity: %w", s, err)
		}
		providers[s] = p
	}
	if _, ok := providers[cfg.Strategy]; !ok {
		return nil, fmt.Errorf("default strategy %q: %w", cfg.Strategy, ErrInvalidStrategy)
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLimiter(cfg.GlobalConcurrency)
	}

	return &Engine{
		cfg:        cfg,
		decomposer: decompose.New(opts.Generator, opts.DecomposeTimeout, logger),
		retriever:  retrieve.NewGated(opts.Store, limiter, logger),
		providers:  providers,
		logger:     logger,
	}, nil
}

// withDefaults fills unset fields from types.DefaultConfig.
func withDefaults(c types.RecallConfig) types.RecallConfig {
	d := types.DefaultConfig().Recall
	if c.ResultLimit == 0 {
		c.ResultLimit = d.ResultLimit
	}
	if c.QueryCount == 0 {
		c.QueryCount = d.QueryCount
	}
	if c.PerQueryLimit == 0 {
		c.PerQueryLimit = d.PerQueryLimit
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	return c
}

// params are the resolved settings of one request.
type params struct {
	k, n, m  int
	lambda   float64
	strategy types.Strategy
	provider similarity.Provider
}

func (e *Engine) resolve(req types.RecallRequest) (params, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return params{}, ErrEmptyPrompt
	}
	p := params{
		k:        e.cfg.ResultLimit,
		n:        req.QueryCount,
		m:        req.PerQueryLimit,
		lambda:   e.cfg.Lambda,
		strategy: req.SimilarityStrategy,
	}
	if req.ResultLimit != nil {
		p.k = *req.ResultLimit
	}
	if p.n <= 0 {
		p.n = e.cfg.QueryCount
	}
	if p.m == 0 {
		p.m = e.cfg.PerQueryLimit
	}
	if req.Lambda != nil {
		p.lambda = *req.Lambda
	}
	if p.lambda < 0 || p.lambda > 1 || math.IsNaN(p.lambda) {
		return params{}, fmt.Errorf("%w: got %v", ErrInvalidLambda, p.lambda)
	}
	if p.strategy == "" {
		p.strategy = e.cfg.Strategy
	}
	provider, ok := e.providers[p.strategy]
	if !ok {
		return params{}, fmt.Errorf("%w: %q", ErrInvalidStrategy, p.strategy)
	}
	p.provider = provider
	return p, nil
}

// Recall runs one recall request. A nil ResultLimit or Lambda and zero
// QueryCount or PerQueryLimit take the engine defaults; a ResultLimit of
// zero or less asks for no results.
//
// Retrieval failures degrade the result rather than fail it. Only when
// every sub-query retrieval failed does Recall return
// ErrCorpusUnreachable, together with the diagnostics.
func (e *Engine) Recall(ctx context.Context, req types.RecallRequest) (types.RecallResponse, error) {
	start := time.Now()
	p, err := e.resolve(req)
	if err != nil {
		return types.RecallResponse{}, err
	}

	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	diag := types.Diagnostics{Strategy: p.strategy, RequestID: uuid.NewString()}
	logger := e.logger.With("request_id", diag.RequestID)

	queries, outcome := e.decomposer.Decompose(ctx, req.Prompt, p.n)
	diag.Queries = queries
	diag.QueriesGenerated = len(queries)
	if outcome.Fallback {
		diag.DecompositionFallback = true
		if outcome.Err != nil {
			diag.DecompositionError = outcome.Err.Error()
		}
	}

	results := e.fanOut(ctx, queries, p.m)

	perQuery := make([][]types.Candidate, len(results))
	var firstErr error
	for i, r := range results {
		perQuery[i] = r.Candidates
		if r.Failed() {
			diag.FailedQueries++
			if firstErr == nil {
				firstErr = r.Err
			}
			logger.Warn("sub-query failed", "index", r.Index, "query", r.Query.Text, "error", r.Err)
		}
	}

	candidates, stats := pool.Aggregate(perQuery)
	diag.RawCandidateCount = stats.Raw
	diag.DedupedPoolSize = len(candidates)

	selections := mmr.Select(candidates, p.k, p.lambda, p.provider.Similarity)
	diag.Elapsed = time.Since(start)

	resp := types.RecallResponse{Results: selections, Diagnostics: diag}

	if len(results) > 0 && diag.FailedQueries == len(results) {
		resp.Diagnostics.EmptyReason = "every retrieval failed"
		logger.Error("recall failed", "queries", len(results), "error", firstErr)
		return resp, fmt.Errorf("%w: %w", ErrCorpusUnreachable, firstErr)
	}
	if len(selections) == 0 {
		resp.Diagnostics.EmptyReason = emptyReason(p.k, diag)
	}

	logger.Info("recall done",
		"queries", diag.QueriesGenerated,
		"failed", diag.FailedQueries,
		"raw", diag.RawCandidateCount,
		"pool", diag.DedupedPoolSize,
		"results", len(selections),
		"strategy", p.strategy,
		"elapsed", diag.Elapsed)
	return resp, nil
}

func emptyReason(k int, d types.Diagnostics) string {
	switch {
	case k <= 0:
		return "result limit is zero"
	case d.DedupedPoolSize == 0 && d.FailedQueries > 0:
		return fmt.Sprintf("no candidates found; %d of %d retrievals failed", d.FailedQueries, d.QueriesGenerated)
	default:
		return "no candidates matched any query"
	}
}

// fanOut retrieves every query concurrently and returns results in query
// order once all have finished. At most MaxConcurrency run at once for
// this request, and the shared Limiter caps calls across requests.
func (e *Engine) fanOut(ctx context.Context, queries []types.QuerySpec, limit int) []retrieve.Result {
	results := make([]retrieve.Result, len(queries))

	width := len(queries)
	if e.cfg.MaxConcurrency > 0 && e.cfg.MaxConcurrency < width {
		width = e.cfg.MaxConcurrency
	}

	var g errgroup.Group
	g.SetLimit(max(width, 1))
	for i, q := range queries {
		g.Go(func() error {
			results[i] = e.retriever.Retrieve(ctx, i, q, limit)
			return nil
		})
	}
	g.Wait()
	return results
}
