// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// --- mock store ---

type mockStore struct {
	hits  []types.Hit
	err   error
	block bool

	gotText  string
	gotLimit int
}

func (m *mockStore) Search(ctx context.Context, text string, limit int) ([]types.Hit, error) {
	m.gotText, m.gotLimit = text, limit
	if m.block {
		time.Sleep(time.Second)
	}
	return m.hits, m.err
}

func TestRetrieveConvertsHits(t *testing.T) {
	store := &mockStore{hits: []types.Hit{
		{ID: "b", Score: 0.5, Title: "Interview Prep"},
		{ID: "a", Score: 0.9, TitleTokens: []string{"given"}},
		{ID: "c", Score: 0.5},
	}}
	r := New(store, nil)

	res := r.Retrieve(context.Background(), 2, types.QuerySpec{Text: "carefeed"}, 10)
	require.NoError(t, res.Err)
	assert.False(t, res.Failed())
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, "carefeed", store.gotText)
	assert.Equal(t, 10, store.gotLimit)

	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "a", res.Candidates[0].ID)
	assert.Equal(t, "b", res.Candidates[1].ID, "equal scores sort by id")
	assert.Equal(t, "c", res.Candidates[2].ID)

	for _, c := range res.Candidates {
		assert.Equal(t, []int{2}, c.SourceQueries)
	}
	assert.Equal(t, []string{"given"}, res.Candidates[0].TitleTokens, "store tokens are kept")
	assert.Equal(t, []string{"interview", "prep"}, res.Candidates[1].TitleTokens, "tokens derived from title")
}

func TestRetrieveNormalizesScoresAndDropsBadHits(t *testing.T) {
	store := &mockStore{hits: []types.Hit{
		{ID: "hi", Score: 1.7},
		{ID: "neg", Score: -0.2},
		{ID: "nan", Score: math.NaN()},
		{ID: "", Score: 0.8},
	}}
	res := New(store, nil).Retrieve(context.Background(), 0, types.QuerySpec{Text: "q"}, 10)
	require.Len(t, res.Candidates, 3)
	for _, c := range res.Candidates {
		assert.True(t, c.RelevanceScore >= 0 && c.RelevanceScore <= 1, "%s: %v", c.ID, c.RelevanceScore)
	}
	assert.Equal(t, 1.0, res.Candidates[0].RelevanceScore)
}

func TestRetrieveTruncatesToLimit(t *testing.T) {
	store := &mockStore{hits: []types.Hit{{ID: "a", Score: 0.1}, {ID: "b", Score: 0.9}, {ID: "c", Score: 0.5}}}
	res := New(store, nil).Retrieve(context.Background(), 0, types.QuerySpec{Text: "q"}, 2)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "b", res.Candidates[0].ID)
	assert.Equal(t, "c", res.Candidates[1].ID)
}

func TestRetrieveAbsorbsStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	res := New(&mockStore{err: storeErr}, nil).Retrieve(context.Background(), 1, types.QuerySpec{Text: "q"}, 5)

	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, storeErr)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
}

func TestRetrieveTreatsDeadlineAsFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := New(&mockStore{block: true, hits: []types.Hit{{ID: "late", Score: 1}}}, nil).
		Retrieve(ctx, 0, types.QuerySpec{Text: "slow"}, 5)

	assert.Less(t, time.Since(start), 500*time.Millisecond, "must not wait for a store that ignores ctx")
	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Empty(t, res.Candidates)
}

func TestRetrieveZeroLimitSkipsStore(t *testing.T) {
	store := &mockStore{hits: []types.Hit{{ID: "a", Score: 1}}}
	res := New(store, nil).Retrieve(context.Background(), 0, types.QuerySpec{Text: "q"}, 0)
	assert.False(t, res.Failed())
	assert.Empty(t, res.Candidates)
	assert.Empty(t, store.gotText)
}

// --- gate ---

type countingGate struct {
	mu       sync.Mutex
	held     int
	acquired int
	err      error
	released chan struct{}
}

func (g *countingGate) Acquire(ctx context.Context) error {
	if g.err != nil {
		return g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held++
	g.acquired++
	return nil
}

func (g *countingGate) Release() {
	g.mu.Lock()
	g.held--
	g.mu.Unlock()
	if g.released != nil {
		close(g.released)
	}
}

func (g *countingGate) snapshot() (held, acquired int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held, g.acquired
}

func TestRetrieveGateReleasedAfterSearch(t *testing.T) {
	gate := &countingGate{}
	store := &mockStore{hits: []types.Hit{{ID: "a", Score: 0.5}}}
	res := NewGated(store, gate, nil).Retrieve(context.Background(), 0, types.QuerySpec{Text: "q"}, 5)

	require.NoError(t, res.Err)
	held, acquired := gate.snapshot()
	assert.Equal(t, 1, acquired)
	assert.Zero(t, held)
}

func TestRetrieveGateHeldUntilAbandonedSearchReturns(t *testing.T) {
	gate := &countingGate{released: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := NewGated(&mockStore{block: true}, gate, nil).Retrieve(ctx, 0, types.QuerySpec{Text: "slow"}, 5)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)

	held, _ := gate.snapshot()
	assert.Equal(t, 1, held, "slot stays taken while the store call is still running")

	select {
	case <-gate.released:
	case <-time.After(3 * time.Second):
		t.Fatal("gate slot was never released")
	}
	held, _ = gate.snapshot()
	assert.Zero(t, held)
}

func TestRetrieveGateAcquireFailure(t *testing.T) {
	gate := &countingGate{err: context.DeadlineExceeded}
	store := &mockStore{hits: []types.Hit{{ID: "a", Score: 0.5}}}
	res := NewGated(store, gate, nil).Retrieve(context.Background(), 4, types.QuerySpec{Text: "q"}, 5)

	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, res.Err.Error(), "waiting for capacity")
	assert.Empty(t, res.Candidates)
	assert.Empty(t, store.gotText, "store not called without a slot")
}
