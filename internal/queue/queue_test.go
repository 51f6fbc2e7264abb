package queue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	t.Run("MinHeapOrder", func(t *testing.T) {
		pq := NewMin(4)
		for _, d := range []float32{3, 1, 4, 1.5, 0.5} {
			pq.Push(Item{Ordinal: uint32(d * 10), Distance: d})
		}

		var prev float32 = -1
		for pq.Len() > 0 {
			item, ok := pq.Pop()
			require.True(t, ok)
			assert.GreaterOrEqual(t, item.Distance, prev)
			prev = item.Distance
		}
	})

	t.Run("MaxHeapTop", func(t *testing.T) {
		pq := NewMax(4)
		pq.Push(Item{Ordinal: 1, Distance: 1.0})
		pq.Push(Item{Ordinal: 2, Distance: 5.0})
		pq.Push(Item{Ordinal: 3, Distance: 3.0})

		top, ok := pq.Top()
		require.True(t, ok)
		assert.Equal(t, uint32(2), top.Ordinal)
	})

	t.Run("Empty", func(t *testing.T) {
		pq := NewMin(0)
		_, ok := pq.Pop()
		assert.False(t, ok)
		_, ok = pq.Top()
		assert.False(t, ok)
	})

	t.Run("Reset", func(t *testing.T) {
		pq := NewMax(2)
		pq.Push(Item{Ordinal: 1, Distance: 1.0})
		pq.Reset()
		assert.Equal(t, 0, pq.Len())
	})

	t.Run("RandomizedHeapInvariant", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		pq := NewMin(128)
		for i := 0; i < 1000; i++ {
			pq.Push(Item{Ordinal: uint32(i), Distance: rng.Float32()})
		}
		var prev float32 = -1
		for pq.Len() > 0 {
			item, _ := pq.Pop()
			require.GreaterOrEqual(t, item.Distance, prev)
			prev = item.Distance
		}
	})
}
