// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recall-engine/internal/recall"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// MockRecaller implements Recaller for testing.
type MockRecaller struct {
	RecallFunc func(ctx context.Context, req types.RecallRequest) (types.RecallResponse, error)
	got        types.RecallRequest
}

func (m *MockRecaller) Recall(ctx context.Context, req types.RecallRequest) (types.RecallResponse, error) {
	m.got = req
	if m.RecallFunc != nil {
		return m.RecallFunc(ctx, req)
	}
	return types.RecallResponse{Results: []types.Selection{}}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/recall", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := New(&MockRecaller{}, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRecallOK(t *testing.T) {
	mock := &MockRecaller{RecallFunc: func(_ context.Context, req types.RecallRequest) (types.RecallResponse, error) {
		return types.RecallResponse{
			Results:     []types.Selection{{ID: "c1", Rank: 1, RelevanceScore: 0.754}},
			Diagnostics: types.Diagnostics{QueriesGenerated: 3, DedupedPoolSize: 5, RequestID: "r1"},
		}, nil
	}}
	s := New(mock, nil)

	w := post(t, s.Handler(), `{"prompt":"I have an interview with CareFeed","result_limit":4,"lambda":0}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "I have an interview with CareFeed", mock.got.Prompt)
	require.NotNil(t, mock.got.ResultLimit)
	assert.Equal(t, 4, *mock.got.ResultLimit)
	require.NotNil(t, mock.got.Lambda, "explicit zero lambda must reach the engine")
	assert.Equal(t, 0.0, *mock.got.Lambda)

	var resp types.RecallResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].ID)
	assert.Equal(t, 5, resp.Diagnostics.DedupedPoolSize)
}

func TestRecallErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty prompt", recall.ErrEmptyPrompt, http.StatusBadRequest},
		{"bad lambda", fmt.Errorf("%w: got 2", recall.ErrInvalidLambda), http.StatusBadRequest},
		{"bad strategy", recall.ErrInvalidStrategy, http.StatusBadRequest},
		{"unreachable", fmt.Errorf("%w: %w", recall.ErrCorpusUnreachable, errors.New("refused")), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockRecaller{RecallFunc: func(context.Context, types.RecallRequest) (types.RecallResponse, error) {
				return types.RecallResponse{Diagnostics: types.Diagnostics{FailedQueries: 3}}, tt.err
			}}
			w := post(t, New(mock, nil).Handler(), `{"prompt":"x"}`)
			assert.Equal(t, tt.want, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.want == http.StatusServiceUnavailable {
				assert.Contains(t, body, "diagnostics")
			}
		})
	}
}

func TestRecallBadBody(t *testing.T) {
	w := post(t, New(&MockRecaller{}, nil).Handler(), `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecallMethodNotRouted(t *testing.T) {
	s := New(&MockRecaller{}, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recall", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
