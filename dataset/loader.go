package dataset

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// prefetchDepth bounds how many assembled batches can sit ahead of the
// consumer.
const prefetchDepth = 4

// Batch is one training or evaluation step's worth of examples. The three
// slices are co-indexed.
type Batch struct {
	Reviews   [][][]int
	Summaries [][]int
	Targets   []int
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int { return len(b.Targets) }

// Loader turns a dataset and a sampling strategy into a stream of batches.
// Each call to Batches draws a fresh order from the sampler, so successive
// epochs see different permutations for the shuffled and weighted
// strategies.
type Loader struct {
	data      *Dataset
	sampler   Sampler
	batchSize int
	rng       *rand.Rand
}

// NewLoader validates and wires a loader.
func NewLoader(data *Dataset, sampler Sampler, batchSize int, rng *rand.Rand) (*Loader, error) {
	if data == nil {
		return nil, fmt.Errorf("nil dataset")
	}
	if sampler == nil {
		return nil, fmt.Errorf("nil sampler")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	return &Loader{data: data, sampler: sampler, batchSize: batchSize, rng: rng}, nil
}

// Len returns the number of examples one pass covers.
func (l *Loader) Len() int { return l.data.Len() }

// NumBatches returns how many batches one pass yields.
func (l *Loader) NumBatches() int {
	return (l.data.Len() + l.batchSize - 1) / l.batchSize
}

// Batches starts a background producer that assembles batches ahead of the
// consumer and yields them in sampler order. The final batch may be short;
// it is never dropped. The returned wait function reports the producer's
// outcome and must be called after the channel drains (or the context is
// canceled).
func (l *Loader) Batches(ctx context.Context) (<-chan Batch, func() error) {
	out := make(chan Batch, prefetchDepth)
	g, ctx := errgroup.WithContext(ctx)

	order := l.sampler.Indices(l.rng)
	g.Go(func() error {
		defer close(out)
		for start := 0; start < len(order); start += l.batchSize {
			end := min(start+l.batchSize, len(order))
			select {
			case out <- l.assemble(order[start:end]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, g.Wait
}

func (l *Loader) assemble(order []int) Batch {
	b := Batch{
		Reviews:   make([][][]int, len(order)),
		Summaries: make([][]int, len(order)),
		Targets:   make([]int, len(order)),
	}
	for i, idx := range order {
		b.Reviews[i] = l.data.Reviews[idx]
		b.Summaries[i] = l.data.Summaries[idx]
		b.Targets[i] = l.data.Labels[idx]
	}
	return b
}
