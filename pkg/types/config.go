package types

import "time"

// RecallConfig holds defaults and limits for recall requests.
type RecallConfig struct {
	// ResultLimit is the default number of results (k).
	ResultLimit int `json:"result_limit" yaml:"result_limit"`

	// QueryCount is the default number of sub-queries (n).
	QueryCount int `json:"query_count" yaml:"query_count"`

	// PerQueryLimit is the default number of candidates per sub-query (m).
	PerQueryLimit int `json:"per_query_limit" yaml:"per_query_limit"`

	// Lambda is the default MMR relevance/diversity tradeoff in [0,1].
	Lambda float64 `json:"lambda" yaml:"lambda"`

	// Strategy is the default similarity strategy.
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// MaxConcurrency caps concurrent retrievals within one request. The
	// effective bound is min(QueryCount, MaxConcurrency).
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// GlobalConcurrency caps concurrent retrievals across all requests
	// sharing one engine, protecting the vector store from overload.
	GlobalConcurrency int `json:"global_concurrency" yaml:"global_concurrency"`

	// RequestTimeout is the deadline for one whole recall request.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// EmptyTitlePolicy decides how title Jaccard treats items with no title
// tokens.
type EmptyTitlePolicy string

const (
	// EmptyTitleZero scores an empty title 0 against everything, which
	// exempts the item from the diversity penalty.
	EmptyTitleZero EmptyTitlePolicy = "zero"

	// EmptyTitleNeutral treats an empty title as unknown similarity and
	// scores it with SimilarityConfig.Neutral.
	EmptyTitleNeutral EmptyTitlePolicy = "neutral"
)

// AggregationPolicy selects how message-level embeddings collapse into an
// item-level representation at ingest time.
type AggregationPolicy string

const (
	AggregateMean          AggregationPolicy = "mean"
	AggregateMax           AggregationPolicy = "max"
	AggregateMultiCentroid AggregationPolicy = "multi_centroid"
)

// SimilarityConfig holds settings for the similarity providers.
type SimilarityConfig struct {
	// EmptyTitle selects the empty-title policy for title Jaccard.
	EmptyTitle EmptyTitlePolicy `json:"empty_title" yaml:"empty_title"`

	// Neutral is the similarity reported for empty titles under the
	// neutral policy.
	Neutral float64 `json:"neutral" yaml:"neutral"`

	// HybridWeight is the weight of the embedding term in the hybrid
	// strategy; the title term gets 1-HybridWeight.
	HybridWeight float64 `json:"hybrid_weight" yaml:"hybrid_weight"`

	// Aggregation is the ingest-time embedding aggregation policy.
	Aggregation AggregationPolicy `json:"aggregation" yaml:"aggregation"`

	// Centroids is k for the multi-centroid aggregation policy.
	Centroids int `json:"centroids" yaml:"centroids"`
}

// DecomposerProvider selects the text-generation collaborator.
type DecomposerProvider string

const (
	DecomposerClaude DecomposerProvider = "claude"
	DecomposerOpenAI DecomposerProvider = "openai"
	DecomposerStatic DecomposerProvider = "static"
	DecomposerNone   DecomposerProvider = "none"
)

// DecomposerConfig holds settings for query decomposition.
type DecomposerConfig struct {
	// Provider selects the text generator: claude, openai, static, or none.
	Provider DecomposerProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint (OpenAI-compatible providers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Timeout bounds one decomposition call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retries on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Templates are the sub-query templates used by the static provider.
	// "{{.Prompt}}" is replaced by the user prompt.
	Templates []string `json:"templates,omitempty" yaml:"templates,omitempty"`
}

// StoreBackend identifies the vector-search backend.
type StoreBackend string

const (
	StoreSQLite   StoreBackend = "sqlite"
	StorePGVector StoreBackend = "pgvector"
)

// StoreConfig holds settings for the vector store collaborator.
type StoreConfig struct {
	// Backend selects sqlite (local brute force) or pgvector.
	Backend StoreBackend `json:"backend" yaml:"backend"`

	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path"`

	// DSN is the Postgres connection string for pgvector.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// Schema and Table locate the memory table in Postgres.
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`

	// Dimensions fixes the pgvector column width. Zero leaves it
	// unconstrained.
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// EmbeddingConfig holds settings for the embedding collaborator.
type EmbeddingConfig struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	APIKey     string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model      string        `json:"model" yaml:"model"`
	Dimensions int           `json:"dimensions" yaml:"dimensions"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Config groups all configuration sections.
type Config struct {
	Recall     RecallConfig     `json:"recall" yaml:"recall"`
	Similarity SimilarityConfig `json:"similarity" yaml:"similarity"`
	Decomposer DecomposerConfig `json:"decomposer" yaml:"decomposer"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Recall: RecallConfig{
			ResultLimit:       5,
			QueryCount:        3,
			PerQueryLimit:     20,
			Lambda:            0.5,
			Strategy:          StrategyEmbeddingCosine,
			MaxConcurrency:    4,
			GlobalConcurrency: 16,
			RequestTimeout:    10 * time.Second,
		},
		Similarity: SimilarityConfig{
			EmptyTitle:   EmptyTitleZero,
			Neutral:      0.5,
			HybridWeight: 0.7,
			Aggregation:  AggregateMean,
			Centroids:    3,
		},
		Decomposer: DecomposerConfig{
			Provider:   DecomposerStatic,
			Model:      "claude-sonnet-4-5-20250929",
			Timeout:    15 * time.Second,
			MaxRetries: 3,
		},
		Store: StoreConfig{
			Backend: StoreSQLite,
			Path:    "recall.db",
			Schema:  "public",
			Table:   "memory_items",
		},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
