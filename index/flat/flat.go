// Package flat provides an exact brute-force vector index.
//
// Every search scans all indexed vectors, so results are always exact. It is
// the right choice for small stores and for queries that demand exactness.
package flat

import (
	"context"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/internal/queue"
)

// Compile-time check to ensure Flat satisfies the index.Index interface.
var _ index.Index = (*Flat)(nil)

// ctxCheckInterval is the number of vectors scanned between context checks.
const ctxCheckInterval = 1024

// Options contains configuration options for the flat index.
type Options struct {
	// Metric is the distance metric used for searches.
	Metric distance.Metric
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Metric: distance.MetricCosine,
}

// Flat is an exact brute-force index.
type Flat struct {
	opts      Options
	dimension int
	vectors   [][]float32
	distFn    distance.Func
}

// New creates a new flat index for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, &index.ErrDimensionMismatch{Expected: 1, Actual: dimension}
	}

	distFn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Flat{
		opts:      opts,
		dimension: dimension,
		distFn:    distFn,
	}, nil
}

// Build creates a flat index over vectors. The vector at position i is
// assigned ordinal i.
func Build(dimension int, vectors [][]float32, optFns ...func(o *Options)) (*Flat, error) {
	f, err := New(dimension, optFns...)
	if err != nil {
		return nil, err
	}

	for _, v := range vectors {
		if err := f.Add(v); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Add appends a vector to the index. Ordinals are assigned in insertion
// order, starting at 0.
func (f *Flat) Add(v []float32) error {
	if len(v) != f.dimension {
		return &index.ErrDimensionMismatch{Expected: f.dimension, Actual: len(v)}
	}

	vec := make([]float32, len(v))
	copy(vec, v)

	f.vectors = append(f.vectors, vec)

	return nil
}

// Kind reports the index implementation.
func (f *Flat) Kind() index.Kind { return index.KindFlat }

// Dimension reports the vector dimension the index was built for.
func (f *Flat) Dimension() int { return f.dimension }

// Len reports the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Metric reports the distance metric the index was built with.
func (f *Flat) Metric() distance.Metric { return f.opts.Metric }

// Search performs an exact k-nearest-neighbor scan.
func (f *Flat) Search(ctx context.Context, query []float32, k int, filter index.Filter) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, &index.ErrInvalidK{K: k}
	}

	if len(query) != f.dimension {
		return nil, &index.ErrDimensionMismatch{Expected: f.dimension, Actual: len(query)}
	}

	if len(f.vectors) == 0 {
		return nil, nil
	}

	actualK := k
	if actualK > len(f.vectors) {
		actualK = len(f.vectors)
	}

	topCandidates := queue.NewMax(actualK)

	for i, vec := range f.vectors {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		ordinal := uint32(i)
		if filter != nil && !filter(ordinal) {
			continue
		}

		dist := f.distFn(query, vec)

		if topCandidates.Len() < actualK {
			topCandidates.Push(queue.Item{Ordinal: ordinal, Distance: dist})
			continue
		}

		if largest, ok := topCandidates.Top(); ok && dist < largest.Distance {
			topCandidates.Pop()
			topCandidates.Push(queue.Item{Ordinal: ordinal, Distance: dist})
		}
	}

	results := make([]index.SearchResult, topCandidates.Len())
	for i := topCandidates.Len() - 1; i >= 0; i-- {
		item, _ := topCandidates.Pop()
		results[i] = index.SearchResult{Ordinal: item.Ordinal, Distance: item.Distance}
	}

	index.SortResults(results)

	return results, nil
}
