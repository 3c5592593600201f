// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decompose

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

// decompositionPromptTmpl asks the model for facet-diverse sub-queries.
var decompositionPromptTmpl = template.Must(template.New("decomposition").Parse(`You help a memory system recall what a user has stored before. Rewrite the user's request into {{.N}} search queries for a semantic memory index.

The queries must be lexically distinct and each must target a different kind of stored content, in this order:
1. facts the user has stated about the subject (names, companies, dates, details)
2. the user's own related experience and achievements (personal narrative)
3. procedural or strategic content about the subject (plans, strategies, coaching, how-to)
If more than 3 queries are requested, continue cycling through these facets with new angles.

Respond with a JSON object {"queries": ["...", "..."]}. Do not include any text outside the JSON object.

User request:
{{.Prompt}}
`))

// renderPrompt executes the decomposition prompt template.
func renderPrompt(prompt string, n int) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Prompt string
		N      int
	}{Prompt: prompt, N: n}
	if err := decompositionPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseQueries extracts queries from model output. It accepts the
// requested JSON object, a bare JSON array, or one query per line.
func parseQueries(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var obj struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && len(obj.Queries) > 0 {
		return obj.Queries
	}

	var arr []string
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return arr
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return nil
	}
	return strings.Split(text, "\n")
}
