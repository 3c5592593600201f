// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decompose turns one recall prompt into several sub-queries that
// target distinct informational facets: facts the user stated, the user's
// own related experience, and procedural or strategy content.
//
// Decomposition fails soft. When the text generator errors, times out, or
// returns nothing usable, the prompt itself becomes the only query.
package decompose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// TextGenerator produces candidate sub-query strings for a prompt. It is
// the external text-generation collaborator; implementations may return
// more or fewer than n strings.
type TextGenerator interface {
	GenerateQueries(ctx context.Context, prompt string, n int) ([]string, error)
}

// ErrDegenerate reports generator output with no usable query.
var ErrDegenerate = errors.New("generator returned no usable queries")

// facetOrder is the round-robin facet assignment for generated queries,
// matching the order the generation prompt asks for.
var facetOrder = []types.Facet{types.FacetFacts, types.FacetNarrative, types.FacetProcedural}

// Outcome reports how a decomposition ended.
type Outcome struct {
	// Fallback is true when the prompt was used as the only query because
	// the generator failed.
	Fallback bool

	// Err is the generator failure behind a fallback.
	Err error
}

// Decomposer wraps a TextGenerator with cleanup and the fallback policy.
type Decomposer struct {
	gen     TextGenerator
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Decomposer. A nil generator disables decomposition: every
// prompt becomes a single query. timeout bounds each generator call; zero
// means only the caller's context applies.
func New(gen TextGenerator, timeout time.Duration, logger *slog.Logger) *Decomposer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decomposer{gen: gen, timeout: timeout, logger: logger}
}

// Decompose returns between 1 and max(n, 1) lexically distinct queries.
func (d *Decomposer) Decompose(ctx context.Context, prompt string, n int) ([]types.QuerySpec, Outcome) {
	single := []types.QuerySpec{{Text: prompt}}
	if n <= 1 || d.gen == nil {
		return single, Outcome{}
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	raw, err := d.generate(callCtx, prompt, n)
	if err != nil {
		d.logger.Warn("decomposition failed, using prompt as the only query", "error", err)
		return single, Outcome{Fallback: true, Err: err}
	}

	queries := Clean(raw, n)
	if len(queries) == 0 {
		d.logger.Warn("decomposition produced no usable queries, using prompt as the only query",
			"raw", len(raw))
		return single, Outcome{Fallback: true, Err: ErrDegenerate}
	}

	specs := make([]types.QuerySpec, len(queries))
	for i, q := range queries {
		specs[i] = types.QuerySpec{Text: q, Facet: facetOrder[i%len(facetOrder)]}
	}
	d.logger.Debug("decomposed prompt", "queries", len(specs))
	return specs, Outcome{}
}

// generate calls the generator, honoring ctx even if the generator does
// not.
func (d *Decomposer) generate(ctx context.Context, prompt string, n int) ([]string, error) {
	type genOutcome struct {
		queries []string
		err     error
	}
	done := make(chan genOutcome, 1)
	go func() {
		q, err := d.gen.GenerateQueries(ctx, prompt, n)
		done <- genOutcome{queries: q, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("generating queries: %w", out.err)
		}
		return out.queries, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("generating queries: %w", ctx.Err())
	}
}

// Clean strips list markers and quotes from raw generator lines, drops
// empty and lexically duplicate queries, and caps the result at n.
func Clean(raw []string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range raw {
		q := stripMarkers(line)
		if q == "" {
			continue
		}
		key := lexicalKey(q)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

// stripMarkers removes bullets, numbering, and surrounding quotes.
func stripMarkers(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*•> \t")

	// "1." / "2)" numbering
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')' || s[i] == ':') {
		s = s[i+1:]
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`“”")
	return strings.TrimSpace(s)
}

// lexicalKey folds case, punctuation, and whitespace so that queries
// differing only in those compare equal.
func lexicalKey(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
