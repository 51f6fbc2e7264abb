package cache

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperdim/hdql/result"
)

func key(q string) Key { return Key{Query: q, Variant: "top_k=10"} }

func value(name string) result.QueryResult {
	return &result.AggregateResult{Name: name, Value: 1}
}

func TestGetSet(t *testing.T) {
	c := New(4)

	_, ok := c.Get(key("count(command(*))"))
	require.False(t, ok)

	c.Set(key("count(command(*))"), value("count"))

	got, ok := c.Get(key("count(command(*))"))
	require.True(t, ok)
	require.Equal(t, "count", got.(*result.AggregateResult).Name)

	// Same query under different options is a different entry.
	_, ok = c.Get(Key{Query: "count(command(*))", Variant: "top_k=5"})
	require.False(t, ok)

	hits, misses := c.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(2), misses)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)

	c.Set(key("a"), value("a"))
	c.Set(key("b"), value("b"))

	// Touch a so b becomes the eviction candidate.
	_, ok := c.Get(key("a"))
	require.True(t, ok)

	c.Set(key("c"), value("c"))

	_, ok = c.Get(key("a"))
	require.True(t, ok)
	_, ok = c.Get(key("b"))
	require.False(t, ok)
	_, ok = c.Get(key("c"))
	require.True(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestSetUpdatesExisting(t *testing.T) {
	c := New(2)

	c.Set(key("a"), value("old"))
	c.Set(key("a"), value("new"))

	got, ok := c.Get(key("a"))
	require.True(t, ok)
	require.Equal(t, "new", got.(*result.AggregateResult).Name)
	require.Equal(t, 1, c.Len())
}

func TestInvalidatePredicate(t *testing.T) {
	c := New(8)
	for i := 0; i < 4; i++ {
		c.Set(key(fmt.Sprintf("command(\"q%d\")", i)), value("v"))
	}
	c.Set(key(`job("build")`), value("v"))

	c.Invalidate(func(k Key) bool {
		return strings.HasPrefix(k.Query, "command")
	})
	require.Equal(t, 1, c.Len())

	c.Invalidate(nil)
	require.Equal(t, 0, c.Len())
}

func TestZeroCapacityDisables(t *testing.T) {
	c := New(0)
	c.Set(key("a"), value("a"))

	_, ok := c.Get(key("a"))
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}
