// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"fmt"
	"math"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// Aggregator collapses the message-level embeddings of one corpus item
// into its item-level representation. It runs at ingest time, inside the
// embedding collaborator; the recall path only consumes whatever vector it
// is given.
type Aggregator interface {
	Policy() types.AggregationPolicy

	// Aggregate returns the item embedding and, for multi-centroid
	// policies, the centroids. All input vectors must share a dimension.
	Aggregate(vectors [][]float32) (embedding []float32, centroids [][]float32, err error)
}

// NewAggregator returns the aggregator for policy. k is the centroid count
// for multi_centroid and is ignored otherwise.
func NewAggregator(policy types.AggregationPolicy, k int) (Aggregator, error) {
	switch policy {
	case types.AggregateMean, "":
		return MeanPool{}, nil
	case types.AggregateMax:
		return MaxPool{}, nil
	case types.AggregateMultiCentroid:
		if k < 1 {
			return nil, fmt.Errorf("multi_centroid needs k >= 1, got %d", k)
		}
		return MultiCentroid{K: k}, nil
	default:
		return nil, fmt.Errorf("unknown aggregation policy %q: use mean, max, or multi_centroid", policy)
	}
}

// MeanPool averages vectors per dimension.
type MeanPool struct{}

// Policy returns the aggregation identifier.
func (MeanPool) Policy() types.AggregationPolicy { return types.AggregateMean }

// Aggregate returns the per-dimension mean.
func (MeanPool) Aggregate(vectors [][]float32) ([]float32, [][]float32, error) {
	dim, err := commonDim(vectors)
	if err != nil {
		return nil, nil, err
	}
	return mean(vectors, dim), nil, nil
}

// MaxPool takes the per-dimension maximum, which keeps a locally strong
// signal from being averaged away in long items.
type MaxPool struct{}

// Policy returns the aggregation identifier.
func (MaxPool) Policy() types.AggregationPolicy { return types.AggregateMax }

// Aggregate returns the per-dimension maximum.
func (MaxPool) Aggregate(vectors [][]float32) ([]float32, [][]float32, error) {
	dim, err := commonDim(vectors)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float32, dim)
	copy(out, vectors[0])
	for _, v := range vectors[1:] {
		for i, x := range v {
			if x > out[i] {
				out[i] = x
			}
		}
	}
	return out, nil, nil
}

// defaultIterations bounds k-means refinement.
const defaultIterations = 10

// MultiCentroid clusters message vectors with k-means and keeps the k
// centroids, so multi-topic items are compared topic by topic. The item
// embedding is still the mean, for stores that index a single vector.
//
// Seeding is deterministic: the first vector, then repeatedly the vector
// farthest from all chosen seeds (lowest index wins ties).
type MultiCentroid struct {
	K          int
	Iterations int
}

// Policy returns the aggregation identifier.
func (MultiCentroid) Policy() types.AggregationPolicy { return types.AggregateMultiCentroid }

// Aggregate returns the mean embedding and up to K centroids.
func (m MultiCentroid) Aggregate(vectors [][]float32) ([]float32, [][]float32, error) {
	dim, err := commonDim(vectors)
	if err != nil {
		return nil, nil, err
	}
	embedding := mean(vectors, dim)

	k := m.K
	if k > len(vectors) {
		k = len(vectors)
	}
	if k <= 1 {
		return embedding, nil, nil
	}
	iterations := m.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}

	centroids := seedCentroids(vectors, k)
	assign := make([]int, len(vectors))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearest(v, centroids)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		for c := range centroids {
			var members [][]float32
			for i, a := range assign {
				if a == c {
					members = append(members, vectors[i])
				}
			}
			// An empty cluster keeps its previous centroid.
			if len(members) > 0 {
				centroids[c] = mean(members, dim)
			}
		}
	}

	return embedding, centroids, nil
}

func seedCentroids(vectors [][]float32, k int) [][]float32 {
	chosen := []int{0}
	for len(chosen) < k {
		farthest, farthestDist := -1, -1.0
		for i, v := range vectors {
			d := math.Inf(1)
			for _, c := range chosen {
				if dist := cosineDistance(v, vectors[c]); dist < d {
					d = dist
				}
			}
			if d > farthestDist {
				farthest, farthestDist = i, d
			}
		}
		chosen = append(chosen, farthest)
	}

	centroids := make([][]float32, k)
	for i, idx := range chosen {
		centroids[i] = append([]float32(nil), vectors[idx]...)
	}
	return centroids
}

func nearest(v []float32, centroids [][]float32) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := cosineDistance(v, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// cosineDistance is 1 - cos; zero vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	cos, ok := Cosine(a, b)
	if !ok {
		return 2
	}
	return 1 - cos
}

func commonDim(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, fmt.Errorf("no vectors to aggregate")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("empty vector at index 0")
	}
	for i, v := range vectors[1:] {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, want %d", i+1, len(v), dim)
		}
	}
	return dim, nil
}

func mean(vectors [][]float32, dim int) []float32 {
	sums := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			sums[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		out[i] = float32(s / n)
	}
	return out
}
