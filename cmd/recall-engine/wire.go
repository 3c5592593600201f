// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/recall-engine/internal/decompose"
	"github.com/pdiddy/recall-engine/internal/embedding"
	"github.com/pdiddy/recall-engine/internal/recall"
	"github.com/pdiddy/recall-engine/internal/secrets"
	"github.com/pdiddy/recall-engine/internal/vectorstore"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// openStore builds the embedder and vector store from cfg. Credentials
// missing from cfg are taken from the secrets directory.
func openStore(ctx context.Context, cfg types.Config, sec secrets.Secrets) (vectorstore.Store, embedding.Embedder, error) {
	embCfg := cfg.Embedding
	embCfg.APIKey = sec.Or(secrets.OpenAIAPIKey, embCfg.APIKey)
	emb, err := embedding.NewOpenAICompatible(embCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring embedder: %w", err)
	}

	storeCfg := cfg.Store
	if storeCfg.Backend == types.StorePGVector {
		storeCfg.DSN = sec.Or(secrets.DatabaseURL, storeCfg.DSN)
		if storeCfg.Dimensions == 0 {
			storeCfg.Dimensions = embCfg.Dimensions
		}
	}
	store, err := vectorstore.Open(ctx, storeCfg, emb, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", storeCfg.Backend, err)
	}
	return store, emb, nil
}

// newGenerator returns the configured sub-query generator, or nil when
// decomposition is disabled.
func newGenerator(cfg types.DecomposerConfig, sec secrets.Secrets) (decompose.TextGenerator, error) {
	switch cfg.Provider {
	case types.DecomposerClaude:
		return &decompose.ClaudeGenerator{
			APIKey:     sec.Or(secrets.AnthropicAPIKey, cfg.APIKey),
			Model:      cfg.Model,
			Client:     &http.Client{Timeout: cfg.Timeout},
			MaxRetries: cfg.MaxRetries,
		}, nil
	case types.DecomposerOpenAI:
		return decompose.NewOpenAIGenerator(decompose.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  sec.Or(secrets.OpenAIAPIKey, cfg.APIKey),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case types.DecomposerStatic, "":
		return decompose.NewStaticGenerator(cfg.Templates)
	case types.DecomposerNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown decomposer provider %q", cfg.Provider)
	}
}

// buildEngine wires a recall engine over an open store.
func buildEngine(cfg types.Config, store vectorstore.Store, sec secrets.Secrets) (*recall.Engine, error) {
	gen, err := newGenerator(cfg.Decomposer, sec)
	if err != nil {
		return nil, fmt.Errorf("configuring decomposer: %w", err)
	}
	return recall.New(recall.Options{
		Config:           cfg.Recall,
		Similarity:       cfg.Similarity,
		Store:            store,
		Generator:        gen,
		DecomposeTimeout: cfg.Decomposer.Timeout,
		Logger:           logger,
	})
}
