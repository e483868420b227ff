package dataset

import (
	"context"
	"errors"
	"testing"
)

func loaderDataset(n int) *Dataset {
	ds := &Dataset{}
	for i := 0; i < n; i++ {
		ds.Reviews = append(ds.Reviews, [][]int{{i}})
		ds.Summaries = append(ds.Summaries, []int{i})
		ds.Labels = append(ds.Labels, i)
	}
	return ds
}

func TestLoader_BatchesPartitionOnePass(t *testing.T) {
	ds := loaderDataset(7)
	l, err := NewLoader(ds, Sequential{N: ds.Len()}, 3, nil)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	if l.NumBatches() != 3 {
		t.Errorf("NumBatches() = %d, want 3", l.NumBatches())
	}

	batches, wait := l.Batches(context.Background())

	var sizes []int
	var targets []int
	for b := range batches {
		sizes = append(sizes, b.Size())
		targets = append(targets, b.Targets...)
		if len(b.Reviews) != b.Size() || len(b.Summaries) != b.Size() {
			t.Fatalf("batch slices not co-indexed: %d reviews, %d summaries, %d targets",
				len(b.Reviews), len(b.Summaries), len(b.Targets))
		}
	}
	if err := wait(); err != nil {
		t.Fatalf("wait returned %v", err)
	}

	wantSizes := []int{3, 3, 1}
	if len(sizes) != len(wantSizes) {
		t.Fatalf("got %d batches, want %d", len(sizes), len(wantSizes))
	}
	for i, want := range wantSizes {
		if sizes[i] != want {
			t.Errorf("batch %d size = %d, want %d", i, sizes[i], want)
		}
	}

	// Sequential order: targets stream back in corpus order.
	for i, target := range targets {
		if target != i {
			t.Errorf("targets[%d] = %d, want %d", i, target, i)
		}
	}
}

func TestLoader_BatchCarriesMatchingExample(t *testing.T) {
	ds := loaderDataset(4)
	l, err := NewLoader(ds, Sequential{N: ds.Len()}, 2, nil)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	batches, wait := l.Batches(context.Background())
	for b := range batches {
		for i := range b.Targets {
			if b.Reviews[i][0][0] != b.Targets[i] || b.Summaries[i][0] != b.Targets[i] {
				t.Errorf("batch row %d mixes examples: review %d, summary %d, target %d",
					i, b.Reviews[i][0][0], b.Summaries[i][0], b.Targets[i])
			}
		}
	}
	if err := wait(); err != nil {
		t.Fatalf("wait returned %v", err)
	}
}

func TestLoader_CancelStopsProducer(t *testing.T) {
	// More examples than the prefetch buffer holds, so the producer is
	// still mid-pass when we cancel.
	ds := loaderDataset(100)
	l, err := NewLoader(ds, Sequential{N: ds.Len()}, 1, nil)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	batches, wait := l.Batches(ctx)

	<-batches
	cancel()

	if err := wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("wait returned %v, want context.Canceled", err)
	}
}

func TestNewLoader_Invalid(t *testing.T) {
	ds := loaderDataset(2)

	if _, err := NewLoader(nil, Sequential{N: 2}, 1, nil); err == nil {
		t.Error("expected error for nil dataset")
	}
	if _, err := NewLoader(ds, nil, 1, nil); err == nil {
		t.Error("expected error for nil sampler")
	}
	if _, err := NewLoader(ds, Sequential{N: 2}, 0, nil); err == nil {
		t.Error("expected error for zero batch size")
	}
}
