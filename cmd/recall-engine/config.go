// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// setDefaults registers every config key with its default so that
// environment variables and flags reach keys absent from the config file.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("recall.result_limit", d.Recall.ResultLimit)
	v.SetDefault("recall.query_count", d.Recall.QueryCount)
	v.SetDefault("recall.per_query_limit", d.Recall.PerQueryLimit)
	v.SetDefault("recall.lambda", d.Recall.Lambda)
	v.SetDefault("recall.strategy", string(d.Recall.Strategy))
	v.SetDefault("recall.max_concurrency", d.Recall.MaxConcurrency)
	v.SetDefault("recall.global_concurrency", d.Recall.GlobalConcurrency)
	v.SetDefault("recall.request_timeout", d.Recall.RequestTimeout)

	v.SetDefault("similarity.empty_title", string(d.Similarity.EmptyTitle))
	v.SetDefault("similarity.neutral", d.Similarity.Neutral)
	v.SetDefault("similarity.hybrid_weight", d.Similarity.HybridWeight)
	v.SetDefault("similarity.aggregation", string(d.Similarity.Aggregation))
	v.SetDefault("similarity.centroids", d.Similarity.Centroids)

	v.SetDefault("decomposer.provider", string(d.Decomposer.Provider))
	v.SetDefault("decomposer.model", d.Decomposer.Model)
	v.SetDefault("decomposer.api_key", "")
	v.SetDefault("decomposer.base_url", d.Decomposer.BaseURL)
	v.SetDefault("decomposer.timeout", d.Decomposer.Timeout)
	v.SetDefault("decomposer.max_retries", d.Decomposer.MaxRetries)

	v.SetDefault("store.backend", string(d.Store.Backend))
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.schema", d.Store.Schema)
	v.SetDefault("store.table", d.Store.Table)
	v.SetDefault("store.dimensions", d.Store.Dimensions)

	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	v.SetDefault("server.addr", d.Server.Addr)
}

// loadConfig decodes the merged viper state into types.Config, using the
// yaml struct tags as key names.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
