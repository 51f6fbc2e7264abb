package ivf

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/stretchr/testify/require"
)

func randomVectors(t *testing.T, n, dim int, seed int64) [][]float32 {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))

	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}

		vectors[i] = v
	}

	return vectors
}

func TestBuild(t *testing.T) {
	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := Build(0, nil)
		require.Error(t, err)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := Build(4, [][]float32{{1, 2}})

		var dimErr *index.ErrDimensionMismatch

		require.ErrorAs(t, err, &dimErr)
	})

	t.Run("Empty", func(t *testing.T) {
		ivf, err := Build(4, nil)
		require.NoError(t, err)
		require.Equal(t, 0, ivf.Len())

		results, err := ivf.Search(context.Background(), []float32{1, 2, 3, 4}, 3, nil)
		require.NoError(t, err)
		require.Empty(t, results)
	})

	t.Run("AutoParameters", func(t *testing.T) {
		ivf, err := Build(8, randomVectors(t, 400, 8, 1))
		require.NoError(t, err)
		require.Equal(t, 20, len(ivf.centroids))
		require.Equal(t, 4, ivf.NProbe())
	})

	t.Run("Deterministic", func(t *testing.T) {
		vectors := randomVectors(t, 200, 8, 2)

		a, err := Build(8, vectors)
		require.NoError(t, err)

		b, err := Build(8, vectors)
		require.NoError(t, err)
		require.Equal(t, a.centroids, b.centroids)
		require.Equal(t, a.lists, b.lists)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	vectors := randomVectors(t, 500, 16, 3)

	ivf, err := Build(16, vectors, func(o *Options) {
		o.Metric = distance.MetricL2
	})
	require.NoError(t, err)

	t.Run("SelfIsNearest", func(t *testing.T) {
		// A query equal to a stored vector lands in that vector's own
		// cluster, so the exact match is always scanned.
		for _, i := range []int{0, 123, 499} {
			results, err := ivf.Search(ctx, vectors[i], 1, nil)
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Equal(t, uint32(i), results[0].Ordinal)
			require.InDelta(t, 0, results[0].Distance, 1e-6)
		}
	})

	t.Run("SortedByDistance", func(t *testing.T) {
		results, err := ivf.Search(ctx, vectors[42], 10, nil)
		require.NoError(t, err)

		for i := 1; i < len(results); i++ {
			require.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
	})

	t.Run("Filter", func(t *testing.T) {
		results, err := ivf.Search(ctx, vectors[42], 10, func(ordinal uint32) bool {
			return ordinal != 42
		})
		require.NoError(t, err)

		for _, r := range results {
			require.NotEqual(t, uint32(42), r.Ordinal)
		}
	})

	t.Run("Recall", func(t *testing.T) {
		// With all clusters probed, IVF degenerates to an exact scan.
		exact, err := Build(16, vectors, func(o *Options) {
			o.Metric = distance.MetricL2
			o.NProbe = 1 << 20
		})
		require.NoError(t, err)

		query := randomVectors(t, 1, 16, 99)[0]

		want, err := exact.Search(ctx, query, 10, nil)
		require.NoError(t, err)

		got, err := ivf.Search(ctx, query, 10, nil)
		require.NoError(t, err)

		overlap := 0

		wantSet := make(map[uint32]struct{}, len(want))
		for _, r := range want {
			wantSet[r.Ordinal] = struct{}{}
		}

		for _, r := range got {
			if _, ok := wantSet[r.Ordinal]; ok {
				overlap++
			}
		}

		require.GreaterOrEqual(t, overlap, 5)
	})

	t.Run("InvalidK", func(t *testing.T) {
		var kErr *index.ErrInvalidK

		_, err := ivf.Search(ctx, vectors[0], -1, nil)
		require.ErrorAs(t, err, &kErr)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := ivf.Search(cancelled, vectors[0], 1, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestGobRoundTrip(t *testing.T) {
	vectors := randomVectors(t, 300, 8, 5)

	ivf, err := Build(8, vectors)
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, index.Save(&buf, ivf, index.CompressionLZ4))

	loaded, err := index.Load(&buf)
	require.NoError(t, err)
	require.Equal(t, index.KindIVF, loaded.Kind())
	require.Equal(t, ivf.Len(), loaded.Len())

	query := vectors[7]

	want, err := ivf.Search(context.Background(), query, 5, nil)
	require.NoError(t, err)

	got, err := loaded.Search(context.Background(), query, 5, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
