package executor

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hyperdim/hdql/index"
)

// matchSet is a set of entity ordinals with a distance and an optional
// explanation per member. Logical operators combine sets keeping the
// minimum distance per entity.
type matchSet struct {
	bits *roaring.Bitmap
	dist map[uint32]float32
	expl map[uint32]string
}

func newMatchSet() *matchSet {
	return &matchSet{
		bits: roaring.New(),
		dist: make(map[uint32]float32),
		expl: make(map[uint32]string),
	}
}

func (s *matchSet) add(ordinal uint32, distance float32, explanation string) {
	if s.bits.Contains(ordinal) {
		if distance < s.dist[ordinal] {
			s.dist[ordinal] = distance
			s.expl[ordinal] = explanation
		}

		return
	}

	s.bits.Add(ordinal)
	s.dist[ordinal] = distance
	s.expl[ordinal] = explanation
}

func (s *matchSet) len() int {
	return int(s.bits.GetCardinality())
}

func (s *matchSet) contains(ordinal uint32) bool {
	return s.bits.Contains(ordinal)
}

// intersect returns the entities present in both sets, each at its minimum
// distance.
func (s *matchSet) intersect(o *matchSet) *matchSet {
	out := newMatchSet()
	common := roaring.And(s.bits, o.bits)

	it := common.Iterator()
	for it.HasNext() {
		ord := it.Next()

		d, e := s.dist[ord], s.expl[ord]
		if od := o.dist[ord]; od < d {
			d, e = od, o.expl[ord]
		}

		out.add(ord, d, e)
	}

	return out
}

// union returns the entities present in either set, each at its minimum
// distance.
func (s *matchSet) union(o *matchSet) *matchSet {
	out := newMatchSet()

	for _, src := range []*matchSet{s, o} {
		it := src.bits.Iterator()
		for it.HasNext() {
			ord := it.Next()
			out.add(ord, src.dist[ord], src.expl[ord])
		}
	}

	return out
}

// complementWithin returns the members of the universe absent from this set.
func (s *matchSet) complementWithin(universe []uint32, explanation string) *matchSet {
	all := roaring.New()
	all.AddMany(universe)

	out := newMatchSet()

	it := roaring.AndNot(all, s.bits).Iterator()
	for it.HasNext() {
		out.add(it.Next(), 0, explanation)
	}

	return out
}

// ordered returns the members ascending by (distance, ordinal). Ordinals are
// assigned in identifier order, so equal distances break ties by identifier.
func (s *matchSet) ordered() []index.SearchResult {
	out := make([]index.SearchResult, 0, s.len())

	it := s.bits.Iterator()
	for it.HasNext() {
		ord := it.Next()
		out = append(out, index.SearchResult{Ordinal: ord, Distance: s.dist[ord]})
	}

	index.SortResults(out)

	return out
}
