// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recall

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// FormatTable writes results as an aligned table followed by a one-line
// summary of the diagnostics.
func FormatTable(resp types.RecallResponse, w io.Writer) {
	d := resp.Diagnostics
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		if d.EmptyReason != "" {
			fmt.Fprintf(w, "(%s)\n", d.EmptyReason)
		}
	} else {
		fmt.Fprintf(w, "%-4s  %-50s  %-9s  %-6s  %s\n", "Rank", "Title", "Relevance", "MMR", "ID")
		fmt.Fprintln(w, strings.Repeat("-", 90))
		for _, r := range resp.Results {
			title := r.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(w, "%-4d  %-50s  %-9.3f  %-6.3f  %s\n",
				r.Rank, truncate(title, 50), r.RelevanceScore, r.MMRScore, r.ID)
		}
	}

	fmt.Fprintf(w, "\n%d results from %d queries, %d candidates (%d unique)",
		len(resp.Results), d.QueriesGenerated, d.RawCandidateCount, d.DedupedPoolSize)
	if d.FailedQueries > 0 {
		fmt.Fprintf(w, ", %d failed", d.FailedQueries)
	}
	if d.DecompositionFallback {
		fmt.Fprint(w, ", decomposition fell back to the prompt")
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the full response as indented JSON to w.
func FormatJSON(resp types.RecallResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
