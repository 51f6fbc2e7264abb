// Package executor runs compiled execution plans against the embedding
// store, the built similarity indexes, and the vector algebra layer.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/planner"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
	"github.com/hyperdim/hdql/vsa"
)

// ctxCheckInterval is how many candidates a scan visits between context
// checks.
const ctxCheckInterval = 1024

// Options contains configuration options for the executor.
type Options struct {
	// Strict aborts on missing entity identifiers. When false the executor
	// skips them and records the skip in the trace.
	Strict bool

	// Parallel dispatches independent operations to a bounded worker
	// group. Results are identical either way.
	Parallel bool

	// MaxConcurrency bounds the worker group when Parallel is set.
	MaxConcurrency int
}

// DefaultOptions contains the default configuration options for the
// executor.
var DefaultOptions = Options{
	Strict:         true,
	MaxConcurrency: runtime.GOMAXPROCS(0),
}

// Executor runs plans. It holds only immutable shared state and is safe for
// concurrent use.
type Executor struct {
	store   *store.Store
	indexes map[index.Kind]index.Index
	opts    Options
}

// New creates an executor over a sealed store and its built indexes. The
// indexes map may be nil or sparse; missing backends fall back to a direct
// scan.
func New(s *store.Store, indexes map[index.Kind]index.Index, optFns ...func(o *Options)) *Executor {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}

	return &Executor{store: s, indexes: indexes, opts: opts}
}

// Match is one ranked entity in an outcome.
type Match struct {
	Ordinal     uint32
	Key         store.Key
	Distance    float32
	Explanation string
}

// Recommendation is one scored candidate from an optimization query.
type Recommendation struct {
	Key         store.Key
	Score       float64
	Metrics     map[string]float64
	Explanation string
}

// OutcomeKind tags the shape of an execution outcome.
type OutcomeKind uint8

const (
	// OutcomeMatches is a ranked entity set.
	OutcomeMatches OutcomeKind = iota
	// OutcomeScalar is an aggregate value.
	OutcomeScalar
	// OutcomeRecommendations is a scored candidate ranking.
	OutcomeRecommendations
)

// Outcome is the raw product of plan execution, before the result builder
// shapes it for the caller.
type Outcome struct {
	Kind            OutcomeKind
	Matches         []Match
	Values          []float64
	Scalar          float64
	Aggregate       string
	Recommendations []Recommendation
	// Warning flags a best-effort answer, such as optimization
	// non-convergence. Never set together with a returned error.
	Warning string
	// Trace records one reasoning line per executed operation.
	Trace []string
}

// value is one named intermediate in the execution context.
type value struct {
	set      *matchSet
	vectors  map[uint32][]float32
	relation *vsa.Relation
	vector   []float32
	exclude  []uint32
	values   []float64
	scalar   float64
	isScalar bool
	recs     []Recommendation
	warning  string
}

// Execute runs the plan to completion. On timeout or cancellation no
// partial results are returned.
func (e *Executor) Execute(ctx context.Context, plan *planner.ExecutionPlan) (*Outcome, error) {
	values := make(map[string]value, len(plan.Ops))
	trace := make([]string, 0, len(plan.Ops))

	remaining := append([]planner.VectorOperation(nil), plan.Ops...)

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, ctxError(err, "")
		}

		ready, rest := splitReady(remaining, values)
		if len(ready) == 0 {
			return nil, &ExecutionError{
				Kind:  KindVectorOpFailed,
				Cause: errors.New("plan has an unresolvable operation input"),
			}
		}

		results := make([]value, len(ready))
		traces := make([]string, len(ready))

		if e.opts.Parallel && len(ready) > 1 {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(e.opts.MaxConcurrency)

			for i, op := range ready {
				g.Go(func() error {
					v, line, err := e.runOp(gctx, op, values, plan)
					if err != nil {
						return err
					}

					results[i], traces[i] = v, line

					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return nil, err
			}
		} else {
			for i, op := range ready {
				v, line, err := e.runOp(ctx, op, values, plan)
				if err != nil {
					return nil, err
				}

				results[i], traces[i] = v, line
			}
		}

		for i, op := range ready {
			values[op.Output] = results[i]
			trace = append(trace, traces[i])
		}

		remaining = rest
	}

	final, ok := values[plan.Output]
	if !ok {
		return nil, &ExecutionError{
			Kind:  KindVectorOpFailed,
			Cause: fmt.Errorf("plan output %q was never produced", plan.Output),
		}
	}

	return e.buildOutcome(plan, final, trace)
}

// splitReady partitions the remaining operations into those whose inputs are
// all available and the rest, preserving plan order.
func splitReady(ops []planner.VectorOperation, values map[string]value) (ready, rest []planner.VectorOperation) {
	produced := make(map[string]bool, len(ops))
	for _, op := range ops {
		produced[op.Output] = true
	}

	for _, op := range ops {
		available := true

		for _, in := range op.Inputs {
			if _, ok := values[in]; !ok {
				available = false

				break
			}
		}

		if available {
			ready = append(ready, op)
		} else {
			rest = append(rest, op)
		}
	}

	return ready, rest
}

func (e *Executor) buildOutcome(plan *planner.ExecutionPlan, final value, trace []string) (*Outcome, error) {
	out := &Outcome{Warning: final.warning, Trace: trace}

	switch {
	case final.isScalar:
		out.Kind = OutcomeScalar
		out.Scalar = final.scalar

		if i, ok := producerIndex(plan, plan.Output); ok {
			out.Aggregate = plan.Ops[i].Params.Aggregate
		}

	case final.recs != nil:
		out.Kind = OutcomeRecommendations
		out.Recommendations = final.recs

	case final.set != nil:
		out.Kind = OutcomeMatches
		out.Values = final.values

		for _, r := range final.set.ordered() {
			ev, ok := e.store.ByOrdinal(r.Ordinal)
			if !ok {
				continue
			}

			out.Matches = append(out.Matches, Match{
				Ordinal:     r.Ordinal,
				Key:         ev.Key(),
				Distance:    r.Distance,
				Explanation: final.set.expl[r.Ordinal],
			})
		}

	default:
		return nil, &ExecutionError{
			Kind:  KindVectorOpFailed,
			Cause: errors.New("plan produced no usable result"),
		}
	}

	return out, nil
}

func producerIndex(plan *planner.ExecutionPlan, output string) (int, bool) {
	for i, op := range plan.Ops {
		if op.Output == output {
			return i, true
		}
	}

	return 0, false
}

func (e *Executor) runOp(ctx context.Context, op planner.VectorOperation, values map[string]value, plan *planner.ExecutionPlan) (value, string, error) {
	get := func(name string) value { return values[name] }

	switch op.Type {
	case planner.OpLookup:
		return e.execLookup(op)
	case planner.OpBind:
		return e.execBind(op, get)
	case planner.OpBundle:
		return e.execSetOp(op, get, "AND")
	case planner.OpVectorSum:
		return e.execSetOp(op, get, "OR")
	case planner.OpNegate:
		return e.execNegate(op, get)
	case planner.OpFilter:
		return e.execFilter(op, get)
	case planner.OpSimilaritySearch:
		return e.execSimilarity(ctx, op, get, plan)
	case planner.OpVectorArithmetic:
		return e.execVectorArithmetic(op, get)
	case planner.OpNearest:
		return e.execNearest(ctx, op, get, plan)
	case planner.OpIterativeSearch:
		return e.execIterativeSearch(ctx, op)
	case planner.OpAttribute:
		return e.execAttribute(op, get)
	case planner.OpAggregate:
		return e.execAggregate(op, get)
	default:
		return value{}, "", &ExecutionError{
			Kind:  KindVectorOpFailed,
			Op:    op.Output,
			Cause: fmt.Errorf("unknown operation type %s", op.Type),
		}
	}
}

func (e *Executor) execLookup(op planner.VectorOperation) (value, string, error) {
	set := newMatchSet()
	p := op.Params

	if p.Exact {
		ev, err := e.store.LookupExact(p.EntityType, p.Pattern)
		if err != nil {
			if e.opts.Strict {
				return value{}, "", err
			}

			line := fmt.Sprintf("%s: skipped missing %s(%q)", op.Output, p.EntityType, p.Pattern)

			return value{set: set}, line, nil
		}

		ord, _ := e.store.OrdinalOf(ev.Key())
		set.add(ord, 0, fmt.Sprintf("exact match for %s", ev.Key()))
	} else {
		matches, err := e.store.LookupPattern(p.EntityType, p.Pattern)
		if err != nil {
			return value{}, "", &ExecutionError{Kind: KindVectorOpFailed, Op: op.Output, Cause: err}
		}

		for _, ev := range matches {
			ord, _ := e.store.OrdinalOf(ev.Key())
			set.add(ord, 0, fmt.Sprintf("matched pattern %q", p.Pattern))
		}
	}

	line := fmt.Sprintf("%s: lookup %s(%q) -> %d entities", op.Output, p.EntityType, p.Pattern, set.len())

	return value{set: set}, line, nil
}

func (e *Executor) execBind(op planner.VectorOperation, get func(string) value) (value, string, error) {
	in := get(op.Inputs[0])
	if in.set == nil {
		return value{}, "", opFailed(op, errors.New("bind operand is not a match set"))
	}

	var composed vsa.Relation

	for i, hop := range op.Params.Hops {
		rel, err := e.store.RelationFor(hop.From, hop.To)
		if err != nil {
			return value{}, "", opFailed(op, err)
		}

		if i == 0 {
			composed = rel
		} else {
			composed = vsa.Compose(composed, rel)
		}
	}

	vectors := make(map[uint32][]float32, in.set.len())

	it := in.set.bits.Iterator()
	for it.HasNext() {
		ord := it.Next()

		ev, ok := e.store.ByOrdinal(ord)
		if !ok {
			continue
		}

		vectors[ord] = composed.Apply(ev.Embedding)
	}

	line := fmt.Sprintf("%s: bind %d entities through %s (weight %.2f)", op.Output, len(vectors), composed.Name, composed.Weight)

	return value{set: in.set, vectors: vectors, relation: &composed}, line, nil
}

func (e *Executor) execSetOp(op planner.VectorOperation, get func(string) value, connective string) (value, string, error) {
	sets := make([]*matchSet, len(op.Inputs))

	for i, name := range op.Inputs {
		v := get(name)
		if v.set == nil {
			return value{}, "", opFailed(op, fmt.Errorf("%s operand %s is not a match set", connective, name))
		}

		sets[i] = v.set
	}

	out := sets[0]

	for _, s := range sets[1:] {
		if connective == "AND" {
			out = out.intersect(s)
		} else {
			out = out.union(s)
		}
	}

	line := fmt.Sprintf("%s: %s over %d sets -> %d entities", op.Output, connective, len(sets), out.len())

	return value{set: out}, line, nil
}

func (e *Executor) execNegate(op planner.VectorOperation, get func(string) value) (value, string, error) {
	in := get(op.Inputs[0])
	if in.set == nil {
		return value{}, "", opFailed(op, errors.New("NOT operand is not a match set"))
	}

	universe := e.store.OrdinalsOfType(op.Params.EntityType)
	out := in.set.complementWithin(universe, fmt.Sprintf("complement within %s universe", op.Params.EntityType))

	line := fmt.Sprintf("%s: NOT -> %d of %d %s entities", op.Output, out.len(), len(universe), op.Params.EntityType)

	return value{set: out}, line, nil
}

func (e *Executor) execFilter(op planner.VectorOperation, get func(string) value) (value, string, error) {
	in := get(op.Inputs[0])
	if in.set == nil {
		return value{}, "", opFailed(op, errors.New("filter operand is not a match set"))
	}

	out := newMatchSet()

	it := in.set.bits.Iterator()
	for it.HasNext() {
		ord := it.Next()

		ev, ok := e.store.ByOrdinal(ord)
		if !ok {
			continue
		}

		if satisfiesAll(ev, op.Params.Conditions) {
			out.add(ord, in.set.dist[ord], in.set.expl[ord])
		}
	}

	line := fmt.Sprintf("%s: filter %d conditions -> %d of %d entities", op.Output, len(op.Params.Conditions), out.len(), in.set.len())

	return value{set: out, vectors: in.vectors, relation: in.relation}, line, nil
}

func satisfiesAll(ev *store.EntityVector, conditions []planner.FilterCondition) bool {
	for _, c := range conditions {
		v, ok := ev.Attributes[c.Attribute]
		if !ok || !compareValues(v, c.Op, c.Value) {
			return false
		}
	}

	return true
}

func compareValues(v float64, op query.CompareOp, bound float64) bool {
	switch op {
	case query.CmpEq:
		return v == bound
	case query.CmpNe:
		return v != bound
	case query.CmpGt:
		return v > bound
	case query.CmpGe:
		return v >= bound
	case query.CmpLt:
		return v < bound
	case query.CmpLe:
		return v <= bound
	default:
		return false
	}
}

// referenceVector resolves a match set to a single query vector: the lone
// member's embedding, or the bundle of all members.
func (e *Executor) referenceVector(s *matchSet) ([]float32, []uint32, error) {
	ords := make([]uint32, 0, s.len())
	embeddings := make([][]float32, 0, s.len())

	it := s.bits.Iterator()
	for it.HasNext() {
		ord := it.Next()

		ev, ok := e.store.ByOrdinal(ord)
		if !ok {
			continue
		}

		ords = append(ords, ord)
		embeddings = append(embeddings, ev.Embedding)
	}

	switch len(embeddings) {
	case 0:
		return nil, nil, nil
	case 1:
		return embeddings[0], ords, nil
	default:
		bundled, err := vsa.Bundle(embeddings...)
		if err != nil {
			return nil, nil, err
		}

		return bundled, ords, nil
	}
}

func (e *Executor) execSimilarity(ctx context.Context, op planner.VectorOperation, get func(string) value, plan *planner.ExecutionPlan) (value, string, error) {
	if len(op.Inputs) >= 2 {
		return e.execCandidateSimilarity(ctx, op, get)
	}

	return e.execIndexSimilarity(ctx, op, get, plan)
}

// execCandidateSimilarity ranks an explicit candidate vector set against a
// reference, as produced by relational traversal.
func (e *Executor) execCandidateSimilarity(ctx context.Context, op planner.VectorOperation, get func(string) value) (value, string, error) {
	cand := get(op.Inputs[0])
	ref := get(op.Inputs[1])

	if cand.set == nil || ref.set == nil {
		return value{}, "", opFailed(op, errors.New("similarity operands are not match sets"))
	}

	refVec, _, err := e.referenceVector(ref.set)
	if err != nil {
		return value{}, "", opFailed(op, err)
	}

	out := newMatchSet()

	if refVec == nil {
		line := fmt.Sprintf("%s: similarity against empty reference -> 0 entities", op.Output)

		return value{set: out}, line, nil
	}

	var visited int

	it := cand.set.bits.Iterator()
	for it.HasNext() {
		ord := it.Next()

		if visited++; visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return value{}, "", ctxError(err, op.Output)
			}
		}

		vec := cand.vectors[ord]
		if vec == nil {
			ev, ok := e.store.ByOrdinal(ord)
			if !ok {
				continue
			}

			vec = ev.Embedding
		}

		sim := float64(distance.CosineSimilarity(vec, refVec))
		if op.Params.HasMinSim && sim <= op.Params.MinSimilarity {
			continue
		}

		expl := fmt.Sprintf("similarity %.2f", sim)
		if cand.relation != nil {
			expl = fmt.Sprintf("matched via relation %s with composed weight %.2f (similarity %.2f)", cand.relation.Name, cand.relation.Weight, sim)
		}

		out.add(ord, float32(1-sim), expl)
	}

	line := fmt.Sprintf("%s: similarity over %d candidates -> %d above floor %.2f", op.Output, cand.set.len(), out.len(), op.Params.MinSimilarity)

	return value{set: out}, line, nil
}

// execIndexSimilarity searches the chosen backend for neighbours of the
// reference set.
func (e *Executor) execIndexSimilarity(ctx context.Context, op planner.VectorOperation, get func(string) value, plan *planner.ExecutionPlan) (value, string, error) {
	ref := get(op.Inputs[0])
	if ref.set == nil {
		return value{}, "", opFailed(op, errors.New("similarity reference is not a match set"))
	}

	refVec, refOrds, err := e.referenceVector(ref.set)
	if err != nil {
		return value{}, "", opFailed(op, err)
	}

	out := newMatchSet()

	if refVec == nil {
		line := fmt.Sprintf("%s: similarity against empty reference -> 0 entities", op.Output)

		return value{set: out}, line, nil
	}

	excluded := make(map[uint32]bool, len(refOrds))

	if op.Params.ExcludeInputs {
		for _, ord := range refOrds {
			excluded[ord] = true
		}
	}

	// Similar-to stays within the reference's entity domain.
	var domain store.EntityType

	hasDomain := false
	if len(refOrds) > 0 {
		if ev, ok := e.store.ByOrdinal(refOrds[0]); ok {
			domain, hasDomain = ev.EntityType, true
		}
	}

	filter := func(ord uint32) bool {
		if excluded[ord] {
			return false
		}

		if !hasDomain {
			return true
		}

		ev, ok := e.store.ByOrdinal(ord)

		return ok && ev.EntityType == domain
	}

	k := op.Params.TopK
	if k <= 0 {
		k = e.store.Len()
	}

	results, err := e.searchVector(ctx, plan, op.Params.Metric, refVec, k, filter)
	if err != nil {
		return value{}, "", translateSearchErr(err, op.Output)
	}

	for _, r := range results {
		if op.Params.HasMaxDist && float64(r.Distance) > op.Params.MaxDistance {
			continue
		}

		out.add(r.Ordinal, r.Distance, fmt.Sprintf("distance %.3f from reference", r.Distance))
	}

	line := fmt.Sprintf("%s: index similarity -> %d entities", op.Output, out.len())

	return value{set: out}, line, nil
}

// searchVector runs a nearest-neighbour query on the plan's backend, or a
// direct scan when the backend is unavailable or the metric differs from
// the one the index was built with.
func (e *Executor) searchVector(ctx context.Context, plan *planner.ExecutionPlan, metric distance.Metric, queryVec []float32, k int, filter index.Filter) ([]index.SearchResult, error) {
	idx := e.indexes[plan.Index]
	if idx != nil && idx.Metric() == metric {
		return idx.Search(ctx, queryVec, min(k, max(idx.Len(), 1)), filter)
	}

	distFn, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	results := make([]index.SearchResult, 0, e.store.Len())

	for ord := uint32(0); int(ord) < e.store.Len(); ord++ {
		if ord%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if filter != nil && !filter(ord) {
			continue
		}

		ev, ok := e.store.ByOrdinal(ord)
		if !ok {
			continue
		}

		results = append(results, index.SearchResult{Ordinal: ord, Distance: distFn(queryVec, ev.Embedding)})
	}

	index.SortResults(results)

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

func (e *Executor) execVectorArithmetic(op planner.VectorOperation, get func(string) value) (value, string, error) {
	entities := make([]*store.EntityVector, 3)
	ords := make([]uint32, 3)

	for i, name := range op.Inputs {
		v := get(name)

		ev, ord, err := e.singleEntity(v, op)
		if err != nil {
			return value{}, "", err
		}

		entities[i], ords[i] = ev, ord
	}

	a, b, c := entities[0], entities[1], entities[2]

	target, err := vsa.AnalogyTarget(a.Embedding, b.Embedding, c.Embedding)
	if err != nil {
		return value{}, "", opFailed(op, err)
	}

	line := fmt.Sprintf("%s: analogy target %s + (%s - %s)", op.Output, c.Key(), b.Key(), a.Key())

	return value{vector: target, exclude: ords}, line, nil
}

func (e *Executor) singleEntity(v value, op planner.VectorOperation) (*store.EntityVector, uint32, error) {
	if v.set == nil || v.set.len() == 0 {
		return nil, 0, opFailed(op, errors.New("operand resolved to no entity"))
	}

	ord := v.set.ordered()[0].Ordinal

	ev, ok := e.store.ByOrdinal(ord)
	if !ok {
		return nil, 0, opFailed(op, fmt.Errorf("ordinal %d not in store", ord))
	}

	return ev, ord, nil
}

func (e *Executor) execNearest(ctx context.Context, op planner.VectorOperation, get func(string) value, plan *planner.ExecutionPlan) (value, string, error) {
	tv := get(op.Inputs[0])
	if tv.vector == nil {
		return value{}, "", opFailed(op, errors.New("nearest operand is not a vector"))
	}

	out := newMatchSet()

	// Verification form: score a proposed completion against the target.
	if len(op.Inputs) == 2 {
		ev, ord, err := e.singleEntity(get(op.Inputs[1]), op)
		if err != nil {
			return value{}, "", err
		}

		sim := float64(distance.CosineSimilarity(tv.vector, ev.Embedding))
		out.add(ord, float32(1-sim), fmt.Sprintf("analogy verification: similarity %.2f to arithmetic target", sim))

		line := fmt.Sprintf("%s: verify %s against analogy target (similarity %.2f)", op.Output, ev.Key(), sim)

		return value{set: out}, line, nil
	}

	excluded := make(map[uint32]bool, len(tv.exclude))

	if op.Params.ExcludeInputs {
		for _, ord := range tv.exclude {
			excluded[ord] = true
		}
	}

	filter := func(ord uint32) bool {
		if excluded[ord] {
			return false
		}

		ev, ok := e.store.ByOrdinal(ord)

		return ok && ev.EntityType == op.Params.EntityType
	}

	results, err := e.searchVector(ctx, plan, distance.MetricCosine, tv.vector, op.Params.TopK, filter)
	if err != nil {
		return value{}, "", translateSearchErr(err, op.Output)
	}

	for _, r := range results {
		out.add(r.Ordinal, r.Distance, fmt.Sprintf("analogy candidate at distance %.3f", r.Distance))
	}

	line := fmt.Sprintf("%s: nearest %s entities to analogy target -> %d", op.Output, op.Params.EntityType, out.len())

	return value{set: out}, line, nil
}

func (e *Executor) execAttribute(op planner.VectorOperation, get func(string) value) (value, string, error) {
	in := get(op.Inputs[0])
	if in.set == nil {
		return value{}, "", opFailed(op, errors.New("attribute operand is not a match set"))
	}

	out := newMatchSet()

	var vals []float64

	for _, r := range in.set.ordered() {
		ev, ok := e.store.ByOrdinal(r.Ordinal)
		if !ok {
			continue
		}

		v, ok := ev.Attributes[op.Params.Attribute]
		if !ok {
			continue
		}

		out.add(r.Ordinal, r.Distance, fmt.Sprintf("%s = %g", op.Params.Attribute, v))
		vals = append(vals, v)
	}

	line := fmt.Sprintf("%s: project %s over %d entities -> %d values", op.Output, op.Params.Attribute, in.set.len(), len(vals))

	return value{set: out, values: vals}, line, nil
}

func (e *Executor) execAggregate(op planner.VectorOperation, get func(string) value) (value, string, error) {
	in := get(op.Inputs[0])
	if in.set == nil {
		return value{}, "", opFailed(op, errors.New("aggregate operand is not a match set"))
	}

	name := op.Params.Aggregate

	if name == "count" {
		line := fmt.Sprintf("%s: count -> %d", op.Output, in.set.len())

		return value{scalar: float64(in.set.len()), isScalar: true}, line, nil
	}

	vals := in.values

	if vals == nil {
		it := in.set.bits.Iterator()
		for it.HasNext() {
			ev, ok := e.store.ByOrdinal(it.Next())
			if !ok {
				continue
			}

			if v, ok := ev.Attributes[op.Params.Attribute]; ok {
				vals = append(vals, v)
			}
		}
	}

	out := value{isScalar: true}

	if len(vals) == 0 {
		out.warning = fmt.Sprintf("no entities carry attribute %q", op.Params.Attribute)
		line := fmt.Sprintf("%s: %s over empty value set", op.Output, name)

		return out, line, nil
	}

	switch name {
	case "sum", "avg":
		for _, v := range vals {
			out.scalar += v
		}

		if name == "avg" {
			out.scalar /= float64(len(vals))
		}
	case "max":
		out.scalar = vals[0]
		for _, v := range vals[1:] {
			if v > out.scalar {
				out.scalar = v
			}
		}
	case "min":
		out.scalar = vals[0]
		for _, v := range vals[1:] {
			if v < out.scalar {
				out.scalar = v
			}
		}
	default:
		return value{}, "", opFailed(op, fmt.Errorf("unknown aggregate %q", name))
	}

	line := fmt.Sprintf("%s: %s over %d values -> %g", op.Output, name, len(vals), out.scalar)

	return out, line, nil
}

func opFailed(op planner.VectorOperation, cause error) error {
	return &ExecutionError{Kind: KindVectorOpFailed, Op: op.Output, Cause: cause}
}

// ctxError maps a context error to the execution taxonomy.
func ctxError(err error, opName string) error {
	kind := KindCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}

	return &ExecutionError{Kind: kind, Op: opName, Cause: err}
}

func translateSearchErr(err error, opName string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ctxError(err, opName)
	}

	return &ExecutionError{Kind: KindVectorOpFailed, Op: opName, Cause: err}
}
