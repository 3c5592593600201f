// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/recall-engine/internal/recall"
	"github.com/pdiddy/recall-engine/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <recall.yaml>",
	Short: "Display a recall saved with recall --save",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := recall.ReadRecallFile(args[0])
		if err != nil {
			return err
		}
		resp := types.RecallResponse{Results: rf.Results, Diagnostics: rf.Diagnostics}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return recall.FormatJSON(resp, os.Stdout)
		}
		fmt.Fprintf(os.Stdout, "Prompt: %s\nRecalled: %s\n\n", rf.Request.Prompt, rf.Timestamp.Format("2006-01-02 15:04:05 MST"))
		recall.FormatTable(resp, os.Stdout)
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(showCmd)
}
