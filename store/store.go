package store

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gobwas/glob"

	"github.com/hyperdim/hdql/vsa"
)

// FuzzyMaxDistance is the edit-distance bound for trailing-`~` patterns.
const FuzzyMaxDistance = 2

// Options contains configuration options for building a store.
type Options struct {
	// Relations registered between entity kinds. Defaults to the built-in
	// knowledge-base relations; override to change shifts or weights.
	Relations []TypedRelation
}

// TypedRelation attaches a vsa.Relation to the entity kinds it connects.
type TypedRelation struct {
	From     EntityType
	To       EntityType
	Relation vsa.Relation
}

// DefaultRelations are the relations of the knowledge base. Shifts are
// distinct so composed relations stay distinguishable; weights reflect the
// strength of the semantic link.
var DefaultRelations = []TypedRelation{
	{EntityCommand, EntityJob, vsa.Relation{Name: "command→job", Shift: 7, Weight: 0.9}},
	{EntityJob, EntityOutcome, vsa.Relation{Name: "job→outcome", Shift: 11, Weight: 0.85}},
	{EntityFeature, EntityOutcome, vsa.Relation{Name: "feature→outcome", Shift: 13, Weight: 0.9}},
	{EntityFeature, EntityJob, vsa.Relation{Name: "feature→job", Shift: 17, Weight: 0.8}},
	{EntityCommand, EntityFeature, vsa.Relation{Name: "command→feature", Shift: 19, Weight: 0.75}},
	{EntityConstraint, EntityFeature, vsa.Relation{Name: "constraint→feature", Shift: 23, Weight: 0.7}},
}

// DefaultOptions contains the default configuration options for a store.
var DefaultOptions = Options{
	Relations: DefaultRelations,
}

// Builder accumulates entities before sealing them into an immutable Store.
// The external loader owns the Builder; everything downstream only ever sees
// the sealed Store.
type Builder struct {
	dimension int
	entities  map[Key]*EntityVector
	opts      Options
}

// NewBuilder creates a store builder for the given fixed dimension.
func NewBuilder(dimension int, optFns ...func(o *Options)) (*Builder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	for _, tr := range opts.Relations {
		if err := tr.Relation.Validate(); err != nil {
			return nil, err
		}
	}

	return &Builder{
		dimension: dimension,
		entities:  make(map[Key]*EntityVector),
		opts:      opts,
	}, nil
}

// Add ingests one entity. Vectors of mismatched dimension and duplicate
// (type, identifier) pairs are rejected.
func (b *Builder) Add(e EntityVector) error {
	if len(e.Embedding) != b.dimension {
		return &ErrDimensionMismatch{Expected: b.dimension, Actual: len(e.Embedding), Key: e.Key()}
	}

	key := e.Key()
	if _, exists := b.entities[key]; exists {
		return &ErrDuplicateEntity{Key: key}
	}

	copied := e
	copied.Embedding = append([]float32(nil), e.Embedding...)
	if e.Attributes != nil {
		copied.Attributes = make(map[string]float64, len(e.Attributes))
		for k, v := range e.Attributes {
			copied.Attributes[k] = v
		}
	}
	b.entities[key] = &copied
	return nil
}

// Build seals the builder into an immutable Store. Entities are ordered by
// (type, identifier) so ordinals are stable regardless of ingestion order.
func (b *Builder) Build() (*Store, error) {
	ordered := make([]*EntityVector, 0, len(b.entities))
	for _, e := range b.entities {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].EntityType != ordered[j].EntityType {
			return ordered[i].EntityType < ordered[j].EntityType
		}
		return ordered[i].Identifier < ordered[j].Identifier
	})

	byKey := make(map[Key]uint32, len(ordered))
	byType := make(map[EntityType][]uint32)
	metrics := make(map[string]struct{})
	for i, e := range ordered {
		byKey[e.Key()] = uint32(i)
		byType[e.EntityType] = append(byType[e.EntityType], uint32(i))
		for name := range e.Attributes {
			metrics[name] = struct{}{}
		}
	}

	relations := make(map[[2]EntityType]vsa.Relation, len(b.opts.Relations))
	for _, tr := range b.opts.Relations {
		relations[[2]EntityType{tr.From, tr.To}] = tr.Relation
	}

	return &Store{
		dimension: b.dimension,
		entities:  ordered,
		byKey:     byKey,
		byType:    byType,
		relations: relations,
		metrics:   metrics,
	}, nil
}

// Store is the sealed, read-only embedding store. It is safe for concurrent
// use by any number of queries; nothing mutates it after Build.
type Store struct {
	dimension int
	entities  []*EntityVector // ordinal -> entity, sorted by (type, id)
	byKey     map[Key]uint32
	byType    map[EntityType][]uint32
	relations map[[2]EntityType]vsa.Relation
	metrics   map[string]struct{}
}

// Dimension returns the fixed embedding dimension.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the total number of entities.
func (s *Store) Len() int { return len(s.entities) }

// Stats summarizes the store for cost estimation.
func (s *Store) Stats() Statistics {
	counts := make(map[EntityType]int, len(s.byType))
	for t, ords := range s.byType {
		counts[t] = len(ords)
	}
	return Statistics{
		Dimension:   s.dimension,
		Size:        len(s.entities),
		CountByType: counts,
	}
}

// LookupExact returns the entity with the given type and identifier.
func (s *Store) LookupExact(t EntityType, id string) (*EntityVector, error) {
	ord, ok := s.byKey[Key{Type: t, ID: id}]
	if !ok {
		return nil, &ErrNotFound{Type: t, ID: id}
	}
	return s.entities[ord], nil
}

// IsPattern reports whether an identifier uses glob or fuzzy syntax.
func IsPattern(id string) bool {
	return strings.ContainsAny(id, "*?") || strings.HasSuffix(id, "~")
}

// LookupPattern returns entities of the given type whose identifiers match
// the pattern. `*` and `?` glob; a trailing `~` matches identifiers within
// edit distance FuzzyMaxDistance of the rest of the pattern. Results are
// ordered by identifier.
func (s *Store) LookupPattern(t EntityType, pattern string) ([]*EntityVector, error) {
	if fuzzy, ok := strings.CutSuffix(pattern, "~"); ok {
		var out []*EntityVector
		for _, ord := range s.byType[t] {
			e := s.entities[ord]
			if levenshtein.ComputeDistance(e.Identifier, fuzzy) <= FuzzyMaxDistance {
				out = append(out, e)
			}
		}
		return out, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var out []*EntityVector
	for _, ord := range s.byType[t] {
		e := s.entities[ord]
		if g.Match(e.Identifier) {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a lazy, restartable iterator over all entities of a type,
// in identifier order.
func (s *Store) All(t EntityType) iter.Seq[*EntityVector] {
	ords := s.byType[t]
	return func(yield func(*EntityVector) bool) {
		for _, ord := range ords {
			if !yield(s.entities[ord]) {
				return
			}
		}
	}
}

// ByOrdinal returns the entity at a store ordinal.
func (s *Store) ByOrdinal(ord uint32) (*EntityVector, bool) {
	if int(ord) >= len(s.entities) {
		return nil, false
	}
	return s.entities[ord], true
}

// OrdinalOf returns the store ordinal for a key.
func (s *Store) OrdinalOf(k Key) (uint32, bool) {
	ord, ok := s.byKey[k]
	return ord, ok
}

// OrdinalsOfType returns the ordinals of all entities of a type, ascending.
// The returned slice is shared and must not be modified.
func (s *Store) OrdinalsOfType(t EntityType) []uint32 {
	return s.byType[t]
}

// RelationFor returns the registered relation from one entity kind to
// another.
func (s *Store) RelationFor(from, to EntityType) (vsa.Relation, error) {
	r, ok := s.relations[[2]EntityType{from, to}]
	if !ok {
		return vsa.Relation{}, &ErrUnknownRelation{From: from, To: to}
	}
	return r, nil
}

// HasMetric reports whether any entity carries the named attribute. The
// parser's semantic pre-check uses this to validate optimization objectives.
func (s *Store) HasMetric(name string) bool {
	_, ok := s.metrics[name]
	return ok
}

// Metrics returns the sorted set of attribute names present in the store.
func (s *Store) Metrics() []string {
	out := make([]string, 0, len(s.metrics))
	for name := range s.metrics {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
