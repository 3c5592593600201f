// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decompose

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeGenerator(t *testing.T) {
	var got claudeRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"queries\":[\"CareFeed facts\",\"my scheduling work\"]}"}]}`))
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	g := &ClaudeGenerator{APIKey: "test-key", Model: "claude-test", Client: ts.Client()}
	queries, err := g.GenerateQueries(context.Background(), prompt, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"CareFeed facts", "my scheduling work"}, queries)

	assert.Equal(t, "claude-test", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, prompt)
}

func TestClaudeGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errSub string
	}{
		{"http error", http.StatusBadRequest, `{"error":"bad"}`, "returned 400"},
		{"no text block", http.StatusOK, `{"content":[{"type":"tool_use"}]}`, "no text content"},
		{"bad json", http.StatusOK, `{`, "decoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			old := claudeAPIURL
			claudeAPIURL = ts.URL
			defer func() { claudeAPIURL = old }()

			g := &ClaudeGenerator{APIKey: "k", Model: "m", Client: ts.Client()}
			_, err := g.GenerateQueries(context.Background(), prompt, 3)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestClaudeGeneratorRequiresKey(t *testing.T) {
	_, err := (&ClaudeGenerator{Model: "m"}).GenerateQueries(context.Background(), prompt, 3)
	assert.Error(t, err)
}

func TestOpenAIGenerator(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[\"q one\",\"q two\"]"},"finish_reason":"stop"}]}`))
	}))
	defer ts.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: ts.URL, APIKey: "sk-test", Model: "gpt-test"})
	require.NoError(t, err)

	queries, err := g.GenerateQueries(context.Background(), prompt, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"q one", "q two"}, queries)
}

func TestOpenAIGeneratorRequiresModel(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestStaticGenerator(t *testing.T) {
	g, err := NewStaticGenerator(nil)
	require.NoError(t, err)

	queries, err := g.GenerateQueries(context.Background(), "CareFeed", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"facts I have stated about CareFeed",
		"my own experience and achievements related to CareFeed",
	}, queries)

	all, err := g.GenerateQueries(context.Background(), "CareFeed", 10)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultTemplates))
}

func TestStaticGeneratorBadTemplate(t *testing.T) {
	_, err := NewStaticGenerator([]string{"{{.Prompt"})
	assert.Error(t, err)
}

func TestStaticGeneratorThroughDecomposer(t *testing.T) {
	g, err := NewStaticGenerator(nil)
	require.NoError(t, err)

	specs, outcome := New(g, 0, nil).Decompose(context.Background(), "CareFeed", 3)
	assert.False(t, outcome.Fallback)
	require.Len(t, specs, 3)
	assert.Equal(t, "strategy, plans, and preparation for CareFeed", specs[2].Text)
}
