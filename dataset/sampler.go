package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Sampler produces the visit order for one epoch. Every implementation
// returns a full permutation of [0, n): each example appears exactly once
// per pass regardless of strategy.
type Sampler interface {
	Indices(rng *rand.Rand) []int
}

// Sequential visits examples in corpus order. Evaluation and inference
// phases always use it so outputs stay aligned with inputs.
type Sequential struct {
	N int
}

// Indices returns the identity order.
func (s Sequential) Indices(_ *rand.Rand) []int {
	indices := make([]int, s.N)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Shuffled visits examples in a fresh uniform permutation each epoch.
type Shuffled struct {
	N int
}

// Indices returns a uniform random permutation.
func (s Shuffled) Indices(rng *rand.Rand) []int {
	return rng.Perm(s.N)
}

// Weighted visits examples in a weighted random order without replacement:
// higher-weight examples tend to come earlier, but every example still
// appears exactly once. The order is drawn with the exponential-keys trick
// (key_i = Exp(1)/w_i, ascending), which realizes successive
// weighted-without-replacement draws in a single sort.
type Weighted struct {
	Weights []float64
}

// InverseFrequencyWeights derives per-sample weights proportional to the
// reciprocal of each sample's class frequency, so minority classes surface
// as often as majority ones.
func InverseFrequencyWeights(labels []int) []float64 {
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	weights := make([]float64, len(labels))
	for i, label := range labels {
		weights[i] = 1 / float64(counts[label])
	}
	return weights
}

// ClassWeights maps each sample to the weight configured for its class.
// A label with no configured weight is an error.
func ClassWeights(labels []int, perClass []float64) ([]float64, error) {
	weights := make([]float64, len(labels))
	for i, label := range labels {
		if label >= len(perClass) {
			return nil, fmt.Errorf("label %d has no configured weight (%d classes configured)", label, len(perClass))
		}
		w := perClass[label]
		if w <= 0 {
			return nil, fmt.Errorf("class %d has non-positive weight %v", label, w)
		}
		weights[i] = w
	}
	return weights, nil
}

// Indices returns a weighted permutation.
func (s Weighted) Indices(rng *rand.Rand) []int {
	type keyed struct {
		index int
		key   float64
	}
	keys := make([]keyed, len(s.Weights))
	for i, w := range s.Weights {
		if w <= 0 {
			// Zero-weight samples still have to appear once; push them
			// to the end of the order.
			keys[i] = keyed{index: i, key: math.Inf(1)}
			continue
		}
		keys[i] = keyed{index: i, key: rng.ExpFloat64() / w}
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].key < keys[b].key })

	indices := make([]int, len(keys))
	for i, k := range keys {
		indices[i] = k.index
	}
	return indices
}
