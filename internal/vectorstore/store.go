// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorstore persists corpus items with their vector
// representations and answers text similarity searches over them.
//
// Two backends are provided: a local SQLite file with exact brute-force
// search, and PostgreSQL with the pgvector extension.
package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/pdiddy/recall-engine/internal/embedding"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// Item is one stored corpus item: a conversation or document reduced to
// an item-level representation.
type Item struct {
	ID          string
	Title       string
	TitleTokens []string
	ContentRef  string
	Embedding   []float32
	Centroids   [][]float32
}

// Store is a searchable, writable vector store.
type Store interface {
	// Search embeds text and returns up to limit hits, best first, with
	// scores in [0,1].
	Search(ctx context.Context, text string, limit int) ([]types.Hit, error)
	Upsert(ctx context.Context, items []Item) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg types.StoreConfig, emb embedding.Embedder, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case types.StoreSQLite, "":
		return OpenSQLite(cfg.Path, emb, logger)
	case types.StorePGVector:
		return OpenPGVector(ctx, cfg, emb, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// mapCosine maps a raw cosine in [-1,1] to a score in [0,1].
func mapCosine(cos float64) float64 {
	s := (cos + 1) / 2
	if s < 0 || math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// --- serialization helpers ---

func float32ToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToFloat32(b []byte, dims int) []float32 {
	if dims <= 0 {
		return nil
	}
	v := make([]float32, dims)
	for i := 0; i < dims && i*4+4 <= len(b); i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// centroidsToBlob concatenates equal-length centroids.
func centroidsToBlob(cs [][]float32) ([]byte, int, error) {
	if len(cs) == 0 {
		return nil, 0, nil
	}
	dim := len(cs[0])
	buf := make([]byte, 0, len(cs)*dim*4)
	for i, c := range cs {
		if len(c) != dim {
			return nil, 0, fmt.Errorf("centroid %d has %d dimensions, want %d", i, len(c), dim)
		}
		buf = append(buf, float32ToBlob(c)...)
	}
	return buf, dim, nil
}

func blobToCentroids(b []byte, dim int) [][]float32 {
	if dim <= 0 || len(b) < dim*4 {
		return nil
	}
	n := len(b) / (dim * 4)
	out := make([][]float32, n)
	for i := range out {
		out[i] = blobToFloat32(b[i*dim*4:(i+1)*dim*4], dim)
	}
	return out
}

// validate checks an item before it is written.
func validate(it Item) error {
	if it.ID == "" {
		return fmt.Errorf("item has no id")
	}
	for i, c := range it.Centroids {
		if len(it.Embedding) > 0 && len(c) != len(it.Embedding) {
			return fmt.Errorf("item %s: centroid %d has %d dimensions, embedding has %d",
				it.ID, i, len(c), len(it.Embedding))
		}
	}
	return nil
}
