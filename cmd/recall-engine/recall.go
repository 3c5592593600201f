// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/recall-engine/internal/recall"
	"github.com/pdiddy/recall-engine/pkg/types"
)

var recallCmd = &cobra.Command{
	Use:   "recall [prompt]",
	Short: "Recall stored items relevant to a prompt",
	Long: `Recall decomposes the prompt into sub-queries (facts, personal
narrative, procedures), searches the corpus for each concurrently, merges
the candidates, and selects a relevant yet diverse top-k with MMR.

Use --lambda to trade relevance (1.0) against diversity (0.0), and
--strategy to choose how item similarity is measured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecall,
}

func runRecall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, _, err := openStore(ctx, cfg, loadedSecrets)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := buildEngine(cfg, store, loadedSecrets)
	if err != nil {
		return err
	}

	req := types.RecallRequest{Prompt: strings.Join(args, " ")}
	resp, recallErr := engine.Recall(ctx, req)
	if recallErr != nil && !errors.Is(recallErr, recall.ErrCorpusUnreachable) {
		return recallErr
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := recall.WriteRecallFile(savePath, req, resp); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved recall to %s\n", savePath)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := recall.FormatJSON(resp, os.Stdout); err != nil {
			return err
		}
	} else {
		recall.FormatTable(resp, os.Stdout)
	}
	return recallErr
}

func init() {
	f := recallCmd.Flags()
	f.IntP("limit", "k", 0, "number of results (default from config)")
	f.IntP("queries", "n", 0, "number of sub-queries (default from config)")
	f.IntP("per-query", "m", 0, "candidates fetched per sub-query (default from config)")
	f.Float64("lambda", 0, "relevance/diversity trade-off in [0,1] (default from config)")
	f.String("strategy", "", "similarity strategy: title_jaccard, embedding_cosine, or hybrid")
	f.Duration("timeout", 0, "request deadline (default from config)")
	f.Bool("json", false, "output results as JSON")
	f.String("save", "", "save request, results, and diagnostics to a YAML file")

	viper.BindPFlag("recall.result_limit", f.Lookup("limit"))
	viper.BindPFlag("recall.query_count", f.Lookup("queries"))
	viper.BindPFlag("recall.per_query_limit", f.Lookup("per-query"))
	viper.BindPFlag("recall.lambda", f.Lookup("lambda"))
	viper.BindPFlag("recall.strategy", f.Lookup("strategy"))
	viper.BindPFlag("recall.request_timeout", f.Lookup("timeout"))

	rootCmd.AddCommand(recallCmd)
}
