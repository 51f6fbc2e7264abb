// Package planner lowers query ASTs into execution plans: ordered lists of
// vector operations with rewrite-rule optimization, a cost model, and
// index backend selection.
package planner

import (
	"fmt"
	"strings"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
)

// OpType identifies a vector operation.
type OpType uint8

const (
	// OpLookup resolves an atomic entity reference, exact or pattern,
	// into a match set.
	OpLookup OpType = iota
	// OpBind applies a composed relation embedding to every vector in a
	// match set.
	OpBind
	// OpBundle intersects two match sets (logical AND), keeping the
	// minimum distance per entity.
	OpBundle
	// OpVectorSum unions two match sets (logical OR), keeping the minimum
	// distance per entity.
	OpVectorSum
	// OpNegate complements a match set within its entity-type universe
	// (logical NOT).
	OpNegate
	// OpFilter drops entities failing attribute conditions.
	OpFilter
	// OpSimilaritySearch ranks candidates by distance to a reference,
	// bounded by top-k, a maximum distance, or a similarity floor.
	OpSimilaritySearch
	// OpVectorArithmetic computes the analogy target vector c + (b - a).
	OpVectorArithmetic
	// OpNearest finds the entities nearest a computed vector.
	OpNearest
	// OpIterativeSearch scores candidates against a weighted objective
	// under constraints, iterating with early stop on convergence.
	OpIterativeSearch
	// OpAttribute projects an attribute value per entity in a match set.
	OpAttribute
	// OpAggregate reduces a match set to a scalar (count, avg, sum, max,
	// min).
	OpAggregate
)

var opTypeNames = map[OpType]string{
	OpLookup:           "lookup",
	OpBind:             "bind",
	OpBundle:           "bundle",
	OpVectorSum:        "vector_sum",
	OpNegate:           "negate",
	OpFilter:           "filter",
	OpSimilaritySearch: "similarity_search",
	OpVectorArithmetic: "vector_arithmetic",
	OpNearest:          "nearest",
	OpIterativeSearch:  "iterative_search",
	OpAttribute:        "attribute",
	OpAggregate:        "aggregate",
}

func (t OpType) String() string {
	if name, ok := opTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("OpType(%d)", uint8(t))
}

// RelationHop names one edge of a relational chain. The executor resolves
// each hop against the store's relation registry and composes them.
type RelationHop struct {
	From store.EntityType
	To   store.EntityType
}

// FilterCondition is one attribute comparison inside a filter operation.
type FilterCondition struct {
	Attribute string
	Op        query.CompareOp
	Value     float64
}

// Params carries the operation parameters. Only the fields relevant to the
// operation type are set.
type Params struct {
	// Lookup.
	EntityType store.EntityType
	Pattern    string
	Exact      bool

	// Bind.
	Hops []RelationHop

	// Similarity search and nearest.
	TopK          int
	MaxDistance   float64
	HasMaxDist    bool
	MinSimilarity float64
	HasMinSim     bool
	Metric        distance.Metric
	ExcludeInputs bool

	// Filter.
	Conditions []FilterCondition

	// Iterative search.
	Direction     query.OptimizeDirection
	Objective     query.Node
	Constraints   []query.Node
	MaxIterations int

	// Attribute projection and aggregation.
	Attribute string
	Aggregate string
}

// VectorOperation is one step of an execution plan. Inputs name the outputs
// of earlier operations; Output names this operation's result in the
// execution context.
type VectorOperation struct {
	Type   OpType
	Inputs []string
	Output string
	Params Params
}

func (op VectorOperation) describe() string {
	var sb strings.Builder

	sb.WriteString(op.Type.String())

	switch op.Type {
	case OpLookup:
		fmt.Fprintf(&sb, " %s(%q)", op.Params.EntityType, op.Params.Pattern)
		if op.Params.Exact {
			sb.WriteString(" exact")
		}
	case OpBind:
		for i, hop := range op.Params.Hops {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(" . ")
			}

			fmt.Fprintf(&sb, "%s→%s", hop.From, hop.To)
		}
	case OpFilter:
		for i, c := range op.Params.Conditions {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(" AND ")
			}

			fmt.Fprintf(&sb, "%s %s %g", c.Attribute, c.Op, c.Value)
		}
	case OpSimilaritySearch, OpNearest:
		if op.Params.TopK > 0 {
			fmt.Fprintf(&sb, " top_k=%d", op.Params.TopK)
		}

		if op.Params.HasMaxDist {
			fmt.Fprintf(&sb, " max_distance=%g", op.Params.MaxDistance)
		}

		if op.Params.HasMinSim {
			fmt.Fprintf(&sb, " min_similarity=%g", op.Params.MinSimilarity)
		}
	case OpIterativeSearch:
		fmt.Fprintf(&sb, " %s(%s)", op.Params.Direction, query.Unparse(op.Params.Objective))
		if len(op.Params.Constraints) > 0 {
			fmt.Fprintf(&sb, " with %d constraints", len(op.Params.Constraints))
		}
	case OpAggregate:
		fmt.Fprintf(&sb, " %s", op.Params.Aggregate)
		if op.Params.Attribute != "" {
			fmt.Fprintf(&sb, "(%s)", op.Params.Attribute)
		}
	case OpAttribute:
		fmt.Fprintf(&sb, " .%s", op.Params.Attribute)
	}

	if len(op.Inputs) > 0 {
		fmt.Fprintf(&sb, " <- %s", strings.Join(op.Inputs, ", "))
	}

	return sb.String()
}

// ExecutionPlan is an immutable compiled query. It is created by Compile,
// consumed once by the executor, and never modified afterwards.
type ExecutionPlan struct {
	// Ops in execution order. Each output name is unique; inputs always
	// reference earlier outputs.
	Ops []VectorOperation
	// Output names the final result in the execution context.
	Output string
	// Index is the chosen search backend.
	Index index.Kind
	// Exact reports whether the plan requires exact search results.
	Exact bool
	// EstimatedCost is the cost model's estimate in abstract scan units.
	EstimatedCost float64
}

// Explain renders a human-readable step listing with per-step cost and the
// chosen index backend.
func (p *ExecutionPlan) Explain() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "plan: %d ops, index=%s, estimated cost %.1f\n", len(p.Ops), p.Index, p.EstimatedCost)

	for i, op := range p.Ops {
		fmt.Fprintf(&sb, "  %d. %s -> %s [%s]\n", i+1, op.describe(), op.Output, costNotation(op.Type, p.Index))
	}

	return sb.String()
}
