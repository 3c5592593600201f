// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/pdiddy/recall-engine/internal/embedding"
	"github.com/pdiddy/recall-engine/internal/similarity"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// PGVectorStore keeps items in PostgreSQL and ranks them with the pgvector
// cosine distance operator.
type PGVectorStore struct {
	pool   *pgxpool.Pool
	emb    embedding.Embedder
	logger *slog.Logger
	table  string
}

// OpenPGVector connects to cfg.DSN and ensures the items table exists.
// cfg.Dimensions fixes the vector column width; zero leaves it
// unconstrained.
func OpenPGVector(ctx context.Context, cfg types.StoreConfig, emb embedding.Embedder, logger *slog.Logger) (*PGVectorStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	table, err := qualifiedTable(cfg.Schema, cfg.Table)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := &PGVectorStore{pool: pool, emb: emb, logger: logger, table: table}

	for _, stmt := range schemaSQL(table, cfg.Dimensions) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	logger.Debug("pgvector store opened", "table", table)
	return s, nil
}

// Close releases the connection pool.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// Upsert inserts or replaces items in one batch.
func (s *PGVectorStore) Upsert(ctx context.Context, items []Item) error {
	batch := &pgx.Batch{}
	stmt := upsertSQL(s.table)
	for _, it := range items {
		if err := validate(it); err != nil {
			return err
		}
		if len(it.Embedding) == 0 {
			return fmt.Errorf("item %s: embedding is required", it.ID)
		}
		tokens := it.TitleTokens
		if len(tokens) == 0 {
			tokens = similarity.Tokenize(it.Title)
		}
		if tokens == nil {
			tokens = []string{}
		}
		ref := it.ContentRef
		if ref == "" {
			ref = it.ID
		}
		cenBlob, _, err := centroidsToBlob(it.Centroids)
		if err != nil {
			return fmt.Errorf("item %s: %w", it.ID, err)
		}
		batch.Queue(stmt, it.ID, it.Title, tokens, ref, pgvector.NewVector(it.Embedding), cenBlob)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting item %s: %w", items[i].ID, err)
		}
	}
	return nil
}

// Count returns the number of stored items.
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Search implements Store.
func (s *PGVectorStore) Search(ctx context.Context, text string, limit int) ([]types.Hit, error) {
	if limit <= 0 {
		return []types.Hit{}, nil
	}
	if s.emb == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	vecs, err := s.emb.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedder returned no query vector")
	}

	rows, err := s.pool.Query(ctx, searchSQL(s.table), pgvector.NewVector(vecs[0]), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []types.Hit
	for rows.Next() {
		var (
			h       types.Hit
			cos     float64
			cenBlob []byte
		)
		if err := rows.Scan(&h.ID, &h.Title, &h.TitleTokens, &h.ContentRef, &h.Embedding, &cenBlob, &cos); err != nil {
			return nil, err
		}
		h.Centroids = blobToCentroids(cenBlob, len(h.Embedding))
		h.Score = mapCosine(cos)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// quoteIdent accepts plain SQL identifiers only.
func quoteIdent(ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return "", fmt.Errorf("empty identifier")
	}
	for _, r := range ident {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

func qualifiedTable(schema, table string) (string, error) {
	if strings.TrimSpace(schema) == "" {
		schema = "public"
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return "", fmt.Errorf("invalid schema: %w", err)
	}
	qt, err := quoteIdent(table)
	if err != nil {
		return "", fmt.Errorf("invalid table: %w", err)
	}
	return qs + "." + qt, nil
}

func schemaSQL(table string, dims int) []string {
	col := "vector"
	if dims > 0 {
		col = fmt.Sprintf("vector(%d)", dims)
	}
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           text PRIMARY KEY,
			title        text NOT NULL DEFAULT '',
			title_tokens text[] NOT NULL DEFAULT '{}',
			content_ref  text NOT NULL DEFAULT '',
			embedding    %s NOT NULL,
			centroids    bytea,
			updated_at   timestamptz NOT NULL DEFAULT now()
		)`, table, col),
	}
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, title, title_tokens, content_ref, embedding, centroids, updated_at)
		VALUES ($1, $2, $3, $4, $5::vector, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			title_tokens = EXCLUDED.title_tokens,
			content_ref = EXCLUDED.content_ref,
			embedding = EXCLUDED.embedding,
			centroids = EXCLUDED.centroids,
			updated_at = now()
	`, table)
}

// searchSQL ranks by cosine distance; similarity = 1 - distance.
func searchSQL(table string) string {
	return fmt.Sprintf(`
		SELECT
			id,
			title,
			title_tokens,
			content_ref,
			embedding::real[],
			centroids,
			(1 - (embedding <=> $1::vector))::float8 AS similarity
		FROM %s
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2
	`, table)
}
