// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads conversation corpora from YAML and ingests them
// into a vector store: every message is embedded, the message vectors are
// aggregated into one item-level representation, and the item is stored
// with its title tokens.
package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/recall-engine/internal/embedding"
	"github.com/pdiddy/recall-engine/internal/similarity"
	"github.com/pdiddy/recall-engine/internal/vectorstore"
)

// Document is one corpus item as written in a corpus file.
type Document struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title,omitempty"`
	Content    string   `yaml:"content,omitempty"`
	ContentRef string   `yaml:"content_ref,omitempty"`
	Messages   []string `yaml:"messages,omitempty"`
}

// texts returns what gets embedded: the messages, else the content, else
// the title.
func (d Document) texts() []string {
	var out []string
	for _, m := range d.Messages {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	if len(out) > 0 {
		return out
	}
	if strings.TrimSpace(d.Content) != "" {
		return []string{d.Content}
	}
	if strings.TrimSpace(d.Title) != "" {
		return []string{d.Title}
	}
	return nil
}

// File is the on-disk corpus format.
type File struct {
	Items []Document `yaml:"items"`
}

// Load reads and validates a corpus file.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing corpus file: %w", err)
	}

	seen := make(map[string]bool, len(f.Items))
	for i, d := range f.Items {
		if strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("item %d has no id", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate item id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return f.Items, nil
}

// Writer receives ingested items.
type Writer interface {
	Upsert(ctx context.Context, items []vectorstore.Item) error
}

// Summary holds counts from an ingest run.
type Summary struct {
	Ingested int
	Skipped  int
	Failed   int
}

// Total returns the number of documents processed.
func (s Summary) Total() int {
	return s.Ingested + s.Skipped + s.Failed
}

const defaultBatchSize = 32

// Ingester embeds documents and writes them to a store.
type Ingester struct {
	Embedder   embedding.Embedder
	Aggregator similarity.Aggregator
	Store      Writer
	BatchSize  int
	Logger     *slog.Logger
}

// Ingest processes docs and reports per-document progress to w. A
// document that fails to embed is counted and skipped; a store write
// failure stops the run.
func (in *Ingester) Ingest(ctx context.Context, docs []Document, w io.Writer) (Summary, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var (
		summary Summary
		batch   []vectorstore.Item
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := in.Store.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("writing %d items: %w", len(batch), err)
		}
		summary.Ingested += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		texts := d.texts()
		if len(texts) == 0 {
			fmt.Fprintf(w, "skipped %s: nothing to embed\n", d.ID)
			summary.Skipped++
			continue
		}

		item, err := in.embed(ctx, d, texts)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", d.ID, err)
			logger.Warn("ingest failed", "id", d.ID, "error", err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "ingested %s (%d messages)\n", d.ID, len(texts))
		batch = append(batch, item)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (in *Ingester) embed(ctx context.Context, d Document, texts []string) (vectorstore.Item, error) {
	vecs, err := in.Embedder.Embed(ctx, texts)
	if err != nil {
		return vectorstore.Item{}, fmt.Errorf("embedding: %w", err)
	}
	if len(vecs) != len(texts) {
		return vectorstore.Item{}, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
	}
	emb, centroids, err := in.Aggregator.Aggregate(vecs)
	if err != nil {
		return vectorstore.Item{}, fmt.Errorf("aggregating: %w", err)
	}
	return vectorstore.Item{
		ID:          d.ID,
		Title:       d.Title,
		TitleTokens: similarity.Tokenize(d.Title),
		ContentRef:  d.ContentRef,
		Embedding:   emb,
		Centroids:   centroids,
	}, nil
}
