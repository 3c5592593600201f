// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/recall-engine/internal/corpus"
	"github.com/pdiddy/recall-engine/internal/similarity"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <corpus.yaml>",
	Short: "Embed a corpus file and store it in the vector store",
	Long: `Ingest reads a YAML corpus of items (id, title, content, messages),
embeds every message, aggregates the message vectors into one item-level
representation with the configured aggregation policy (mean, max, or
multi_centroid), and upserts the items into the vector store.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	docs, err := corpus.Load(args[0])
	if err != nil {
		return err
	}

	agg, err := similarity.NewAggregator(cfg.Similarity.Aggregation, cfg.Similarity.Centroids)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, emb, err := openStore(ctx, cfg, loadedSecrets)
	if err != nil {
		return err
	}
	defer store.Close()

	batch, _ := cmd.Flags().GetInt("batch")
	in := &corpus.Ingester{
		Embedder:   emb,
		Aggregator: agg,
		Store:      store,
		BatchSize:  batch,
		Logger:     logger,
	}
	summary, err := in.Ingest(ctx, docs, os.Stdout)
	if err != nil {
		return err
	}

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n%d ingested, %d skipped, %d failed (%d items in store)\n",
		summary.Ingested, summary.Skipped, summary.Failed, total)
	if summary.Failed > 0 {
		return fmt.Errorf("%d item(s) failed ingestion", summary.Failed)
	}
	return nil
}

func init() {
	ingestCmd.Flags().Int("batch", 32, "items written per store batch")
	ingestCmd.Flags().String("aggregation", "", "message aggregation: mean, max, or multi_centroid")
	viper.BindPFlag("similarity.aggregation", ingestCmd.Flags().Lookup("aggregation"))
	rootCmd.AddCommand(ingestCmd)
}
