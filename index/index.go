// Package index provides interfaces and types for vector search indexes.
//
// Indexes are built once over the sealed embedding store and are read-only
// afterwards. Ordinals returned by searches refer to store ordinals.
package index

import (
	"context"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/hyperdim/hdql/distance"
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidK is a named error type for invalid neighbor counts.
type ErrInvalidK struct {
	K int
}

func (e *ErrInvalidK) Error() string {
	return fmt.Sprintf("invalid k: %d, must be positive", e.K)
}

// Kind identifies an index implementation.
type Kind uint8

const (
	// KindFlat is an exact brute-force scan.
	KindFlat Kind = iota
	// KindIVF is an inverted-file index with k-means clustering.
	KindIVF
	// KindHNSW is a hierarchical navigable small world graph.
	KindHNSW
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindIVF:
		return "ivf"
	case KindHNSW:
		return "hnsw"
	default:
		return "unknown"
	}
}

// SearchResult represents a single nearest-neighbor hit.
type SearchResult struct {
	// Ordinal is the store ordinal of the matched vector.
	Ordinal uint32

	// Distance is the distance between the query vector and the match.
	Distance float32
}

// Filter restricts a search to ordinals it returns true for. A nil Filter
// admits every ordinal.
type Filter func(ordinal uint32) bool

// Index represents a read-only vector search index.
type Index interface {
	gob.GobEncoder
	gob.GobDecoder

	// Kind reports the index implementation.
	Kind() Kind

	// Dimension reports the vector dimension the index was built for.
	Dimension() int

	// Len reports the number of indexed vectors.
	Len() int

	// Metric reports the distance metric the index was built with.
	Metric() distance.Metric

	// Search performs a k-nearest-neighbor search. Results are sorted by
	// ascending distance, ties broken by ascending ordinal.
	Search(ctx context.Context, query []float32, k int, filter Filter) ([]SearchResult, error)
}

// Size thresholds for automatic index selection.
const (
	// FlatMaxSize is the largest store a brute-force scan serves well.
	FlatMaxSize = 10_000

	// IVFMaxSize is the largest store the inverted-file index serves well.
	IVFMaxSize = 100_000
)

// Select picks an index kind for a store of the given size. Queries that
// demand exact results always scan, regardless of size.
func Select(size int, exact bool) Kind {
	switch {
	case exact || size < FlatMaxSize:
		return KindFlat
	case size <= IVFMaxSize:
		return KindIVF
	default:
		return KindHNSW
	}
}

// SortResults orders results by ascending distance, ties broken by ascending
// ordinal. All index implementations return results in this order; callers
// that merge result sets use it to restore the invariant.
func SortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}

		return results[i].Ordinal < results[j].Ordinal
	})
}
