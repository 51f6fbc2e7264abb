// Package ivf provides an inverted-file vector index.
//
// Vectors are partitioned into clusters by k-means at build time. A search
// ranks cluster centroids against the query and scans only the nprobe
// closest clusters, trading a small amount of recall for sublinear scan
// cost.
package ivf

import (
	"context"
	"math"
	"math/rand"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/internal/queue"
)

// Compile-time check to ensure IVF satisfies the index.Index interface.
var _ index.Index = (*IVF)(nil)

const ctxCheckInterval = 1024

// Options contains configuration options for the IVF index.
type Options struct {
	// Metric is the distance metric used for searches.
	Metric distance.Metric

	// NumLists is the number of k-means clusters. Zero selects
	// sqrt(n) automatically at build time.
	NumLists int

	// NProbe is the number of clusters scanned per search. Zero selects
	// sqrt(NumLists) automatically.
	NProbe int

	// TrainIterations bounds the number of k-means refinement passes.
	TrainIterations int

	// Seed feeds centroid initialization. Builds with the same seed and
	// input produce identical indexes.
	Seed int64
}

// DefaultOptions contains the default configuration options for the IVF index.
var DefaultOptions = Options{
	Metric:          distance.MetricCosine,
	NumLists:        0,
	NProbe:          0,
	TrainIterations: 20,
	Seed:            1,
}

// IVF is an inverted-file index over a fixed vector set.
type IVF struct {
	opts      Options
	dimension int
	centroids [][]float32
	lists     [][]uint32
	vectors   [][]float32
	nprobe    int
	distFn    distance.Func
}

// Build trains an IVF index over vectors. The vector at position i is
// assigned ordinal i.
func Build(dimension int, vectors [][]float32, optFns ...func(o *Options)) (*IVF, error) {
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

	ivf := &IVF{
		opts:      opts,
		dimension: dimension,
		distFn:    distFn,
	}

	ivf.vectors = make([][]float32, 0, len(vectors))

	for _, v := range vectors {
		if len(v) != dimension {
			return nil, &index.ErrDimensionMismatch{Expected: dimension, Actual: len(v)}
		}

		vec := make([]float32, len(v))
		copy(vec, v)

		ivf.vectors = append(ivf.vectors, vec)
	}

	ivf.train()

	return ivf, nil
}

// train runs k-means over the stored vectors and fills the inverted lists.
func (ivf *IVF) train() {
	n := len(ivf.vectors)
	if n == 0 {
		ivf.centroids = nil
		ivf.lists = nil
		ivf.nprobe = 1

		return
	}

	numLists := ivf.opts.NumLists
	if numLists <= 0 {
		numLists = int(math.Sqrt(float64(n)))
	}

	if numLists < 1 {
		numLists = 1
	}

	if numLists > n {
		numLists = n
	}

	ivf.centroids = kMeans(ivf.vectors, numLists, ivf.opts.TrainIterations, ivf.opts.Seed)

	ivf.lists = make([][]uint32, len(ivf.centroids))
	for i, v := range ivf.vectors {
		c := ivf.nearestCentroid(v)
		ivf.lists[c] = append(ivf.lists[c], uint32(i))
	}

	ivf.nprobe = ivf.opts.NProbe
	if ivf.nprobe <= 0 {
		ivf.nprobe = int(math.Sqrt(float64(len(ivf.centroids))))
	}

	if ivf.nprobe < 1 {
		ivf.nprobe = 1
	}

	if ivf.nprobe > len(ivf.centroids) {
		ivf.nprobe = len(ivf.centroids)
	}
}

func (ivf *IVF) nearestCentroid(v []float32) int {
	minDist := float32(math.MaxFloat32)
	minIdx := 0

	for i, centroid := range ivf.centroids {
		if dist := distance.SquaredL2(v, centroid); dist < minDist {
			minDist = dist
			minIdx = i
		}
	}

	return minIdx
}

// Kind reports the index implementation.
func (ivf *IVF) Kind() index.Kind { return index.KindIVF }

// Dimension reports the vector dimension the index was built for.
func (ivf *IVF) Dimension() int { return ivf.dimension }

// Len reports the number of indexed vectors.
func (ivf *IVF) Len() int { return len(ivf.vectors) }

// Metric reports the distance metric the index was built with.
func (ivf *IVF) Metric() distance.Metric { return ivf.opts.Metric }

// NProbe reports the number of clusters scanned per search.
func (ivf *IVF) NProbe() int { return ivf.nprobe }

// Search performs an approximate k-nearest-neighbor search over the nprobe
// closest clusters.
func (ivf *IVF) Search(ctx context.Context, query []float32, k int, filter index.Filter) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, &index.ErrInvalidK{K: k}
	}

	if len(query) != ivf.dimension {
		return nil, &index.ErrDimensionMismatch{Expected: ivf.dimension, Actual: len(query)}
	}

	if len(ivf.vectors) == 0 {
		return nil, nil
	}

	// Rank centroids by distance to the query.
	centroidQueue := queue.NewMin(len(ivf.centroids))
	for i, centroid := range ivf.centroids {
		centroidQueue.Push(queue.Item{Ordinal: uint32(i), Distance: distance.SquaredL2(query, centroid)})
	}

	actualK := k
	if actualK > len(ivf.vectors) {
		actualK = len(ivf.vectors)
	}

	topCandidates := queue.NewMax(actualK)
	scanned := 0

	for probe := 0; probe < ivf.nprobe; probe++ {
		item, ok := centroidQueue.Pop()
		if !ok {
			break
		}

		for _, ordinal := range ivf.lists[item.Ordinal] {
			if scanned%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			scanned++

			if filter != nil && !filter(ordinal) {
				continue
			}

			dist := ivf.distFn(query, ivf.vectors[ordinal])

			if topCandidates.Len() < actualK {
				topCandidates.Push(queue.Item{Ordinal: ordinal, Distance: dist})
				continue
			}

			if largest, ok := topCandidates.Top(); ok && dist < largest.Distance {
				topCandidates.Pop()
				topCandidates.Push(queue.Item{Ordinal: ordinal, Distance: dist})
			}
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

// kMeans clusters vectors into k centroids using k-means++ initialization
// followed by Lloyd iterations.
func kMeans(vectors [][]float32, k, maxIters int, seed int64) [][]float32 {
	dim := len(vectors[0])
	rng := rand.New(rand.NewSource(seed))

	centroids := make([][]float32, k)

	// First centroid is picked uniformly, the rest with probability
	// proportional to squared distance from the nearest chosen centroid.
	centroids[0] = cloneVector(vectors[rng.Intn(len(vectors))], dim)

	distances := make([]float32, len(vectors))

	for i := 1; i < k; i++ {
		var totalDist float32

		for j, vec := range vectors {
			minDist := float32(math.MaxFloat32)

			for c := 0; c < i; c++ {
				if dist := distance.SquaredL2(vec, centroids[c]); dist < minDist {
					minDist = dist
				}
			}

			distances[j] = minDist
			totalDist += minDist
		}

		if totalDist == 0 {
			// All remaining vectors coincide with chosen centroids.
			centroids[i] = cloneVector(vectors[rng.Intn(len(vectors))], dim)
			continue
		}

		r := rng.Float32() * totalDist

		var cumSum float32

		picked := len(vectors) - 1

		for j, dist := range distances {
			cumSum += dist
			if cumSum >= r {
				picked = j
				break
			}
		}

		centroids[i] = cloneVector(vectors[picked], dim)
	}

	assignments := make([]int, len(vectors))

	for iter := 0; iter < maxIters; iter++ {
		changed := false

		for i, vec := range vectors {
			minDist := float32(math.MaxFloat32)
			minIdx := 0

			for j, centroid := range centroids {
				if dist := distance.SquaredL2(vec, centroid); dist < minDist {
					minDist = dist
					minIdx = j
				}
			}

			if assignments[i] != minIdx {
				changed = true
				assignments[i] = minIdx
			}
		}

		if iter > 0 && !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float32, k)

		for i := range sums {
			sums[i] = make([]float32, dim)
		}

		for i, vec := range vectors {
			cluster := assignments[i]
			counts[cluster]++

			for j, x := range vec {
				sums[cluster][j] += x
			}
		}

		for i := range centroids {
			if counts[i] == 0 {
				continue // keep empty cluster's previous centroid
			}

			for j := range sums[i] {
				sums[i][j] /= float32(counts[i])
			}

			centroids[i] = sums[i]
		}
	}

	return centroids
}

func cloneVector(v []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, v)

	return out
}
