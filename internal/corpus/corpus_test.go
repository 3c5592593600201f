// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recall-engine/internal/similarity"
	"github.com/pdiddy/recall-engine/internal/vectorstore"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// --- mocks ---

// axisEmbedder maps each text to a fixed vector; unknown texts fail.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, errors.New("unknown text " + t)
		}
		out[i] = v
	}
	return out, nil
}

type memoryWriter struct {
	items   []vectorstore.Item
	batches int
	err     error
}

func (m *memoryWriter) Upsert(_ context.Context, items []vectorstore.Item) error {
	if m.err != nil {
		return m.err
	}
	m.batches++
	m.items = append(m.items, items...)
	return nil
}

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCorpus(t, `
items:
  - id: c1
    title: CareFeed Interview Prep
    messages:
      - what should I know about CareFeed
      - practice questions
  - id: c5
    title: Engineering Transformation at Carefeed
    content: I led the platform migration.
    content_ref: conv://c5
`)
	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c1", docs[0].ID)
	assert.Len(t, docs[0].Messages, 2)
	assert.Equal(t, "conv://c5", docs[1].ContentRef)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{"missing id", "items:\n  - title: x\n", "no id"},
		{"duplicate id", "items:\n  - id: a\n  - id: a\n", "duplicate"},
		{"bad yaml", "items: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCorpus(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDocumentTexts(t *testing.T) {
	assert.Equal(t, []string{"m1"}, Document{Messages: []string{"m1", "  "}, Content: "c"}.texts())
	assert.Equal(t, []string{"c"}, Document{Content: "c", Title: "t"}.texts())
	assert.Equal(t, []string{"t"}, Document{Title: "t"}.texts())
	assert.Nil(t, Document{}.texts())
}

func TestIngestMeanAggregation(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{
		"m1": {1, 0}, "m2": {0, 1}, "body": {1, 1},
	}}
	agg, err := similarity.NewAggregator(types.AggregateMean, 0)
	require.NoError(t, err)
	store := &memoryWriter{}
	in := &Ingester{Embedder: emb, Aggregator: agg, Store: store, BatchSize: 1}

	var out bytes.Buffer
	summary, err := in.Ingest(context.Background(), []Document{
		{ID: "a", Title: "Interview Prep", Messages: []string{"m1", "m2"}},
		{ID: "b", Content: "body"},
		{ID: "empty"},
		{ID: "bad", Messages: []string{"unknown"}},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, Summary{Ingested: 2, Skipped: 1, Failed: 1}, summary)
	assert.Equal(t, 4, summary.Total())
	assert.Equal(t, 2, store.batches)
	require.Len(t, store.items, 2)

	a := store.items[0]
	assert.Equal(t, "a", a.ID)
	assert.InDeltaSlice(t, []float32{0.5, 0.5}, a.Embedding, 1e-6)
	assert.Nil(t, a.Centroids)
	assert.Equal(t, []string{"interview", "prep"}, a.TitleTokens)

	assert.Contains(t, out.String(), "ingested a (2 messages)")
	assert.Contains(t, out.String(), "skipped empty")
	assert.Contains(t, out.String(), "failed  bad")
}

func TestIngestMultiCentroid(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{
		"a1": {1, 0, 0}, "a2": {0.9, 0.1, 0}, "b1": {0, 0, 1}, "b2": {0, 0.1, 0.9},
	}}
	agg, err := similarity.NewAggregator(types.AggregateMultiCentroid, 2)
	require.NoError(t, err)
	store := &memoryWriter{}
	in := &Ingester{Embedder: emb, Aggregator: agg, Store: store}

	_, err = in.Ingest(context.Background(), []Document{
		{ID: "two-topics", Messages: []string{"a1", "a2", "b1", "b2"}},
	}, &bytes.Buffer{})
	require.NoError(t, err)

	require.Len(t, store.items, 1)
	assert.Len(t, store.items[0].Centroids, 2)
	assert.Len(t, store.items[0].Embedding, 3)
}

func TestIngestStoreFailureStops(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{"m": {1}}}
	agg, _ := similarity.NewAggregator(types.AggregateMean, 0)
	writeErr := errors.New("disk full")
	in := &Ingester{Embedder: emb, Aggregator: agg, Store: &memoryWriter{err: writeErr}}

	_, err := in.Ingest(context.Background(), []Document{{ID: "a", Messages: []string{"m"}}}, &bytes.Buffer{})
	assert.ErrorIs(t, err, writeErr)
}

func TestIngestIntoSQLiteIsSearchable(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{
		"prep notes": {1, 0}, "migration story": {0, 1}, "interview": {1, 0},
	}}
	store, err := vectorstore.OpenSQLite(filepath.Join(t.TempDir(), "recall.db"), emb, nil)
	require.NoError(t, err)
	defer store.Close()

	agg, _ := similarity.NewAggregator(types.AggregateMean, 0)
	in := &Ingester{Embedder: emb, Aggregator: agg, Store: store}
	summary, err := in.Ingest(context.Background(), []Document{
		{ID: "c1", Title: "CareFeed Interview Prep", Messages: []string{"prep notes"}},
		{ID: "c5", Title: "Engineering Transformation", Messages: []string{"migration story"}},
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Ingested)

	hits, err := store.Search(context.Background(), "interview", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ID)
	assert.Equal(t, []string{"carefeed", "interview", "prep"}, hits[0].TitleTokens)
}
