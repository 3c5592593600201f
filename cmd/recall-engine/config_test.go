// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recall-engine/internal/decompose"
	"github.com/pdiddy/recall-engine/internal/secrets"
	"github.com/pdiddy/recall-engine/pkg/types"
)

func newTestViper(t *testing.T, yamlText string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	if yamlText != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yamlText)))
	}
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t, ""))
	require.NoError(t, err)

	d := types.DefaultConfig()
	assert.Equal(t, d.Recall, cfg.Recall)
	assert.Equal(t, d.Similarity, cfg.Similarity)
	assert.Equal(t, d.Store.Backend, cfg.Store.Backend)
	assert.Equal(t, d.Decomposer.Provider, cfg.Decomposer.Provider)
	assert.Equal(t, d.Server.Addr, cfg.Server.Addr)
}

func TestLoadConfigFromYAML(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t, `
recall:
  result_limit: 8
  lambda: 0.3
  strategy: title_jaccard
  request_timeout: 3s
similarity:
  empty_title: neutral
  aggregation: multi_centroid
decomposer:
  provider: none
  templates:
    - "facts about {{.Prompt}}"
store:
  backend: pgvector
  table: memories
`))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Recall.ResultLimit)
	assert.Equal(t, 0.3, cfg.Recall.Lambda)
	assert.Equal(t, types.StrategyTitleJaccard, cfg.Recall.Strategy)
	assert.Equal(t, 3*time.Second, cfg.Recall.RequestTimeout)
	assert.Equal(t, 3, cfg.Recall.QueryCount, "unset keys keep defaults")
	assert.Equal(t, types.EmptyTitleNeutral, cfg.Similarity.EmptyTitle)
	assert.Equal(t, types.AggregateMultiCentroid, cfg.Similarity.Aggregation)
	assert.Equal(t, types.DecomposerNone, cfg.Decomposer.Provider)
	assert.Equal(t, []string{"facts about {{.Prompt}}"}, cfg.Decomposer.Templates)
	assert.Equal(t, types.StorePGVector, cfg.Store.Backend)
	assert.Equal(t, "memories", cfg.Store.Table)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RECALL_ENGINE_RECALL_LAMBDA", "0.9")
	t.Setenv("RECALL_ENGINE_STORE_PATH", "/tmp/other.db")

	v := newTestViper(t, "")
	v.SetEnvPrefix("RECALL_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Recall.Lambda)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
}

func TestNewGenerator(t *testing.T) {
	sec := secrets.Secrets{secrets.AnthropicAPIKey: "from-file"}

	t.Run("static by default", func(t *testing.T) {
		gen, err := newGenerator(types.DecomposerConfig{}, sec)
		require.NoError(t, err)
		assert.IsType(t, &decompose.StaticGenerator{}, gen)
	})

	t.Run("none disables decomposition", func(t *testing.T) {
		gen, err := newGenerator(types.DecomposerConfig{Provider: types.DecomposerNone}, sec)
		require.NoError(t, err)
		assert.Nil(t, gen)
	})

	t.Run("claude key from secrets", func(t *testing.T) {
		gen, err := newGenerator(types.DecomposerConfig{Provider: types.DecomposerClaude, Model: "m"}, sec)
		require.NoError(t, err)
		claude, ok := gen.(*decompose.ClaudeGenerator)
		require.True(t, ok)
		assert.Equal(t, "from-file", claude.APIKey)
	})

	t.Run("configured key wins", func(t *testing.T) {
		gen, err := newGenerator(types.DecomposerConfig{Provider: types.DecomposerClaude, APIKey: "inline"}, sec)
		require.NoError(t, err)
		assert.Equal(t, "inline", gen.(*decompose.ClaudeGenerator).APIKey)
	})

	t.Run("openai", func(t *testing.T) {
		gen, err := newGenerator(types.DecomposerConfig{Provider: types.DecomposerOpenAI, Model: "gpt-4o-mini"}, sec)
		require.NoError(t, err)
		assert.IsType(t, &decompose.OpenAIGenerator{}, gen)
	})

	t.Run("bad template", func(t *testing.T) {
		_, err := newGenerator(types.DecomposerConfig{Templates: []string{"{{.Prompt"}}, sec)
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := newGenerator(types.DecomposerConfig{Provider: "gpt2"}, sec)
		assert.ErrorContains(t, err, "unknown decomposer provider")
	})
}
