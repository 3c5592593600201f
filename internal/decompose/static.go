// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decompose

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// DefaultTemplates rephrase a prompt once per facet.
var DefaultTemplates = []string{
	"facts I have stated about {{.Prompt}}",
	"my own experience and achievements related to {{.Prompt}}",
	"strategy, plans, and preparation for {{.Prompt}}",
}

// StaticGenerator expands a prompt through fixed text templates. It needs
// no model and never fails once constructed.
type StaticGenerator struct {
	templates []*template.Template
}

// NewStaticGenerator parses the given templates. Each may reference
// {{.Prompt}}. No templates means DefaultTemplates.
func NewStaticGenerator(templates []string) (*StaticGenerator, error) {
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	g := &StaticGenerator{}
	for i, text := range templates {
		tmpl, err := template.New(fmt.Sprintf("static-%d", i)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing template %d: %w", i, err)
		}
		g.templates = append(g.templates, tmpl)
	}
	return g, nil
}

// GenerateQueries implements TextGenerator. It renders up to n templates.
func (g *StaticGenerator) GenerateQueries(ctx context.Context, prompt string, n int) ([]string, error) {
	var out []string
	for _, tmpl := range g.templates {
		if len(out) == n {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, struct{ Prompt string }{Prompt: prompt}); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", tmpl.Name(), err)
		}
		out = append(out, buf.String())
	}
	return out, nil
}
