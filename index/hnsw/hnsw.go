// Package hnsw provides a hierarchical navigable small world graph index.
//
// The graph is built once over a fixed vector set. Search descends from the
// top layer to layer 0 following greedy shortest paths, then runs a bounded
// best-first expansion on the bottom layer.
package hnsw

import (
	"context"
	"math"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/internal/queue"
)

// Compile-time check to ensure HNSW satisfies the index.Index interface.
var _ index.Index = (*HNSW)(nil)

// Options contains configuration options for the HNSW index.
type Options struct {
	// Metric is the distance metric used for searches.
	Metric distance.Metric

	// M is the number of established connections per node and layer.
	// The range 12-48 works for most embedding datasets.
	M int

	// EFConstruction is the size of the dynamic candidate list during
	// graph construction. Larger values build a better graph more slowly.
	EFConstruction int

	// EFSearch is the size of the dynamic candidate list during search.
	// Larger values improve recall at the cost of search time.
	EFSearch int

	// Seed feeds layer assignment. Builds with the same seed and input
	// produce identical graphs.
	Seed int64
}

// DefaultOptions contains the default configuration options for the HNSW index.
var DefaultOptions = Options{
	Metric:         distance.MetricCosine,
	M:              16,
	EFConstruction: 200,
	EFSearch:       100,
	Seed:           1,
}

type node struct {
	Vector      []float32
	Connections [][]uint32
	Layer       int
}

// HNSW is a hierarchical navigable small world graph over a fixed vector set.
type HNSW struct {
	opts      Options
	dimension int
	mmax      int     // max connections per node per layer
	mmax0     int     // max connections on layer 0
	ml        float64 // normalization factor for layer assignment
	ep        uint32  // entry point
	maxLayer  int
	nodes     []*node
	distFn    distance.Func
	rng       *rand.Rand
}

// New creates an empty HNSW index for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, &index.ErrDimensionMismatch{Expected: 1, Actual: dimension}
	}

	if opts.M < 2 {
		// M == 1 would make the layer normalization factor divide by zero.
		opts.M = 2
	}

	distFn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &HNSW{
		opts:      opts,
		dimension: dimension,
		mmax:      opts.M,
		mmax0:     2 * opts.M,
		ml:        1 / math.Log(float64(opts.M)),
		distFn:    distFn,
		rng:       rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// Build creates an HNSW index over vectors. The vector at position i is
// assigned ordinal i.
func Build(dimension int, vectors [][]float32, optFns ...func(o *Options)) (*HNSW, error) {
	h, err := New(dimension, optFns...)
	if err != nil {
		return nil, err
	}

	for _, v := range vectors {
		if err := h.Add(v); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Add inserts a vector into the graph. Ordinals are assigned in insertion
// order, starting at 0.
func (h *HNSW) Add(v []float32) error {
	if len(v) != h.dimension {
		return &index.ErrDimensionMismatch{Expected: h.dimension, Actual: len(v)}
	}

	vec := make([]float32, len(v))
	copy(vec, v)

	id := uint32(len(h.nodes))
	layer := int(math.Floor(-math.Log(h.rng.Float64()) * h.ml))

	n := &node{
		Vector:      vec,
		Layer:       layer,
		Connections: make([][]uint32, layer+1),
	}

	if len(h.nodes) == 0 {
		h.nodes = append(h.nodes, n)
		h.ep = 0
		h.maxLayer = layer

		return nil
	}

	// Greedy descent through the layers above the new node's layer.
	currID, currDist := h.greedyDescend(vec, h.ep, h.maxLayer, layer)

	for level := min(layer, h.maxLayer); level >= 0; level-- {
		topCandidates := h.searchLayer(vec, currID, currDist, h.opts.EFConstruction, level, nil)

		neighbours := h.selectNeighboursHeuristic(topCandidates, h.opts.M)
		n.Connections[level] = neighbours

		if len(neighbours) > 0 {
			currID = neighbours[0]
			currDist = h.distFn(vec, h.nodes[currID].Vector)
		}
	}

	h.nodes = append(h.nodes, n)

	// Link neighbours back to the new node, making it reachable.
	for level := min(layer, h.maxLayer); level >= 0; level-- {
		for _, neighbour := range n.Connections[level] {
			h.link(neighbour, id, level)
		}
	}

	if layer > h.maxLayer {
		h.ep = id
		h.maxLayer = layer
	}

	return nil
}

// greedyDescend follows the single shortest path from the entry point down
// to targetLayer+1 and returns the closest node found.
func (h *HNSW) greedyDescend(q []float32, epID uint32, fromLayer, targetLayer int) (uint32, float32) {
	currID := epID
	currDist := h.distFn(q, h.nodes[currID].Vector)

	for level := fromLayer; level > targetLayer; level-- {
		changed := true
		for changed {
			changed = false

			curr := h.nodes[currID]
			if level >= len(curr.Connections) {
				continue
			}

			for _, nodeID := range curr.Connections[level] {
				if dist := h.distFn(q, h.nodes[nodeID].Vector); dist < currDist {
					currID = nodeID
					currDist = dist
					changed = true
				}
			}
		}
	}

	return currID, currDist
}

// searchLayer runs a bounded best-first expansion on one layer and returns a
// max-heap of up to ef candidates.
func (h *HNSW) searchLayer(q []float32, epID uint32, epDist float32, ef, level int, filter index.Filter) *queue.PriorityQueue {
	var visited bitset.BitSet

	visited.Set(uint(epID))

	candidates := queue.NewMin(ef)
	candidates.Push(queue.Item{Ordinal: epID, Distance: epDist})

	topCandidates := queue.NewMax(ef)
	if filter == nil || filter(epID) {
		topCandidates.Push(queue.Item{Ordinal: epID, Distance: epDist})
	}

	for candidates.Len() > 0 {
		candidate, _ := candidates.Pop()

		if top, ok := topCandidates.Top(); ok && topCandidates.Len() >= ef && candidate.Distance > top.Distance {
			break
		}

		n := h.nodes[candidate.Ordinal]
		if level >= len(n.Connections) {
			continue
		}

		for _, neighbour := range n.Connections[level] {
			if visited.Test(uint(neighbour)) {
				continue
			}

			visited.Set(uint(neighbour))

			dist := h.distFn(q, h.nodes[neighbour].Vector)

			if top, ok := topCandidates.Top(); !ok || topCandidates.Len() < ef || dist < top.Distance {
				candidates.Push(queue.Item{Ordinal: neighbour, Distance: dist})

				if filter == nil || filter(neighbour) {
					topCandidates.Push(queue.Item{Ordinal: neighbour, Distance: dist})
					if topCandidates.Len() > ef {
						topCandidates.Pop()
					}
				}
			}
		}
	}

	return topCandidates
}

// selectNeighboursHeuristic prunes a candidate max-heap down to at most M
// diverse neighbours, preferring candidates closer to the query than to any
// already selected neighbour. Returned ordinals are sorted nearest first.
func (h *HNSW) selectNeighboursHeuristic(topCandidates *queue.PriorityQueue, m int) []uint32 {
	// Drain the max-heap into ascending order.
	ordered := make([]queue.Item, topCandidates.Len())
	for i := topCandidates.Len() - 1; i >= 0; i-- {
		ordered[i], _ = topCandidates.Pop()
	}

	if len(ordered) <= m {
		out := make([]uint32, len(ordered))
		for i, item := range ordered {
			out[i] = item.Ordinal
		}

		return out
	}

	selected := make([]queue.Item, 0, m)
	discarded := make([]queue.Item, 0, len(ordered)-m)

	for _, item := range ordered {
		if len(selected) >= m {
			break
		}

		keep := true

		for _, s := range selected {
			if h.distFn(h.nodes[s.Ordinal].Vector, h.nodes[item.Ordinal].Vector) < item.Distance {
				keep = false
				break
			}
		}

		if keep {
			selected = append(selected, item)
		} else {
			discarded = append(discarded, item)
		}
	}

	// Backfill from discarded candidates when diversity pruned too much.
	for _, item := range discarded {
		if len(selected) >= m {
			break
		}

		selected = append(selected, item)
	}

	out := make([]uint32, len(selected))
	for i, item := range selected {
		out[i] = item.Ordinal
	}

	return out
}

// link adds an edge from first to second on the given level, pruning back to
// the connection budget when the node is over-linked.
func (h *HNSW) link(first, second uint32, level int) {
	maxConnections := h.mmax
	if level == 0 {
		maxConnections = h.mmax0
	}

	n := h.nodes[first]

	for level >= len(n.Connections) {
		n.Connections = append(n.Connections, nil)
	}

	n.Connections[level] = append(n.Connections[level], second)

	if len(n.Connections[level]) <= maxConnections {
		return
	}

	topCandidates := queue.NewMax(len(n.Connections[level]))
	for _, id := range n.Connections[level] {
		topCandidates.Push(queue.Item{Ordinal: id, Distance: h.distFn(n.Vector, h.nodes[id].Vector)})
	}

	n.Connections[level] = h.selectNeighboursHeuristic(topCandidates, maxConnections)
}

// Kind reports the index implementation.
func (h *HNSW) Kind() index.Kind { return index.KindHNSW }

// Dimension reports the vector dimension the index was built for.
func (h *HNSW) Dimension() int { return h.dimension }

// Len reports the number of indexed vectors.
func (h *HNSW) Len() int { return len(h.nodes) }

// Metric reports the distance metric the index was built with.
func (h *HNSW) Metric() distance.Metric { return h.opts.Metric }

// Search performs an approximate k-nearest-neighbor search.
func (h *HNSW) Search(ctx context.Context, query []float32, k int, filter index.Filter) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, &index.ErrInvalidK{K: k}
	}

	if len(query) != h.dimension {
		return nil, &index.ErrDimensionMismatch{Expected: h.dimension, Actual: len(query)}
	}

	if len(h.nodes) == 0 {
		return nil, nil
	}

	ef := h.opts.EFSearch
	if ef < k {
		ef = k
	}

	epID, epDist := h.greedyDescend(query, h.ep, h.maxLayer, 0)

	topCandidates := h.searchLayer(query, epID, epDist, ef, 0, filter)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for topCandidates.Len() > k {
		topCandidates.Pop()
	}

	results := make([]index.SearchResult, topCandidates.Len())
	for i := topCandidates.Len() - 1; i >= 0; i-- {
		item, _ := topCandidates.Pop()
		results[i] = index.SearchResult{Ordinal: item.Ordinal, Distance: item.Distance}
	}

	index.SortResults(results)

	return results, nil
}
