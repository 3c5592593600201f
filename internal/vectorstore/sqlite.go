// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorstore

import (
	"container/heap"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/recall-engine/internal/embedding"
	"github.com/pdiddy/recall-engine/internal/similarity"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// SQLiteStore keeps items in a SQLite file and searches them exactly.
// All items are held in memory; the file is the durable copy. This fits
// personal corpora of up to tens of thousands of items.
type SQLiteStore struct {
	db     *sql.DB
	emb    embedding.Embedder
	logger *slog.Logger

	mu    sync.RWMutex
	items map[string]Item
}

// OpenSQLite opens or creates the store at path and loads its items.
func OpenSQLite(path string, emb embedding.Embedder, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, emb: emb, logger: logger, items: make(map[string]Item)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading items: %w", err)
	}
	logger.Debug("sqlite store opened", "path", path, "items", len(s.items))
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL DEFAULT '',
			title_tokens TEXT NOT NULL DEFAULT '',
			content_ref  TEXT NOT NULL DEFAULT '',
			embedding    BLOB,
			dimensions   INTEGER NOT NULL DEFAULT 0,
			centroids    BLOB,
			updated_at   TEXT NOT NULL
		)
	`)
	return err
}

func (s *SQLiteStore) loadAll() error {
	rows, err := s.db.Query(`SELECT id, title, title_tokens, content_ref, embedding, dimensions, centroids FROM items`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it               Item
			tokens           string
			embBlob, cenBlob []byte
			dims             int
		)
		if err := rows.Scan(&it.ID, &it.Title, &tokens, &it.ContentRef, &embBlob, &dims, &cenBlob); err != nil {
			return err
		}
		it.TitleTokens = strings.Fields(tokens)
		it.Embedding = blobToFloat32(embBlob, dims)
		it.Centroids = blobToCentroids(cenBlob, dims)
		s.items[it.ID] = it
	}
	return rows.Err()
}

// Upsert inserts or replaces items in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, items []Item) error {
	prepared := make([]Item, 0, len(items))
	for _, it := range items {
		if err := validate(it); err != nil {
			return err
		}
		if len(it.TitleTokens) == 0 {
			it.TitleTokens = similarity.Tokenize(it.Title)
		}
		if it.ContentRef == "" {
			it.ContentRef = it.ID
		}
		prepared = append(prepared, it)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, it := range prepared {
		cenBlob, _, err := centroidsToBlob(it.Centroids)
		if err != nil {
			return fmt.Errorf("item %s: %w", it.ID, err)
		}
		dims := len(it.Embedding)
		if dims == 0 && len(it.Centroids) > 0 {
			dims = len(it.Centroids[0])
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO items (id, title, title_tokens, content_ref, embedding, dimensions, centroids, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title=excluded.title, title_tokens=excluded.title_tokens,
				content_ref=excluded.content_ref, embedding=excluded.embedding,
				dimensions=excluded.dimensions, centroids=excluded.centroids,
				updated_at=excluded.updated_at
		`, it.ID, it.Title, strings.Join(it.TitleTokens, " "), it.ContentRef,
			float32ToBlob(it.Embedding), dims, cenBlob, now)
		if err != nil {
			return fmt.Errorf("upserting item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	for _, it := range prepared {
		s.items[it.ID] = it
	}
	return nil
}

// Count returns the number of stored items.
func (s *SQLiteStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Search implements Store. Items whose vectors cannot be compared with the
// query (missing or different dimensions) are skipped.
func (s *SQLiteStore) Search(ctx context.Context, text string, limit int) ([]types.Hit, error) {
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
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}
	return s.SearchVector(ctx, vecs[0], limit)
}

// SearchVector returns the top limit items for a query vector.
func (s *SQLiteStore) SearchVector(ctx context.Context, query []float32, limit int) ([]types.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := types.Candidate{Embedding: query}

	s.mu.RLock()
	h := &minHeap{}
	for _, it := range s.items {
		score, ok := similarity.VectorSimilarity(q, types.Candidate{Embedding: it.Embedding, Centroids: it.Centroids})
		if !ok {
			continue
		}
		sh := scored{item: it, score: score}
		if h.Len() < limit {
			heap.Push(h, sh)
		} else if worse((*h)[0], sh) {
			(*h)[0] = sh
			heap.Fix(h, 0)
		}
	}
	s.mu.RUnlock()

	hits := make([]types.Hit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		sh := heap.Pop(h).(scored)
		hits[i] = types.Hit{
			ID:          sh.item.ID,
			Score:       sh.score,
			Title:       sh.item.Title,
			TitleTokens: sh.item.TitleTokens,
			Embedding:   sh.item.Embedding,
			Centroids:   sh.item.Centroids,
			ContentRef:  sh.item.ContentRef,
		}
	}
	return hits, nil
}

type scored struct {
	item  Item
	score float64
}

// worse orders by score, then by ID descending, so results are
// deterministic under ties.
func worse(a, b scored) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.item.ID > b.item.ID
}

// minHeap keeps the worst retained result at the root.
type minHeap []scored

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
