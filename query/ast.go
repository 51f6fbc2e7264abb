package query

import (
	"github.com/hyperdim/hdql/store"
)

// Span is a half-open byte range [Start, End) into the query text.
type Span struct {
	Start int
	End   int
}

// Node is the sealed interface implemented by all AST nodes. Every node
// carries its source span for error reporting.
type Node interface {
	Span() Span
	node()
}

// LogicalOp is a boolean connective.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
	OpNot LogicalOp = "NOT"
)

// CompareOp is a comparison operator.
type CompareOp string

const (
	CmpEq CompareOp = "=="
	CmpNe CompareOp = "!="
	CmpGt CompareOp = ">"
	CmpGe CompareOp = ">="
	CmpLt CompareOp = "<"
	CmpLe CompareOp = "<="
)

// ArithOp is an arithmetic operator inside objectives.
type ArithOp string

const (
	ArithAdd ArithOp = "+"
	ArithSub ArithOp = "-"
	ArithMul ArithOp = "*"
	ArithDiv ArithOp = "/"
)

// OptimizeDirection is the goal of an optimization query.
type OptimizeDirection string

const (
	Maximize OptimizeDirection = "maximize"
	Minimize OptimizeDirection = "minimize"
)

// AtomicNode selects entities of one type by identifier or pattern,
// e.g. `command("deps")` or `command("dep*")`.
type AtomicNode struct {
	EntityType store.EntityType
	// Pattern is an exact identifier, a glob pattern, or a fuzzy pattern
	// with a trailing `~`.
	Pattern string
	Loc     Span
}

// RelationalNode traverses a typed relation, e.g. `command("x") -> job("y")`.
// Chains right-associate and compose relations.
type RelationalNode struct {
	Left  Node
	Right Node
	Loc   Span
}

// LogicalNode combines operands with AND, OR, or NOT (single operand).
type LogicalNode struct {
	Op       LogicalOp
	Operands []Node
	Loc      Span
}

// ComparisonNode compares a left expression against a value,
// e.g. `implementation_effort <= 100`.
type ComparisonNode struct {
	Left  Node
	Op    CompareOp
	Right Node
	Loc   Span
}

// SimilarityNode searches for entities near a reference,
// e.g. `similar_to(command("deps"), top_k=3)`.
type SimilarityNode struct {
	Reference Node
	// Params holds the literal keyword parameters as written
	// (top_k, threshold, metric).
	Params map[string]LiteralValue
	Loc    Span
}

// DefaultSimilarityThreshold applies when a similarity query names neither
// top_k nor threshold.
const DefaultSimilarityThreshold = 0.3

// TopK returns the top_k parameter, or 0 when absent.
func (n *SimilarityNode) TopK() int {
	if v, ok := n.Params["top_k"]; ok && v.Kind == LiteralInt {
		return int(v.Int)
	}

	return 0
}

// Threshold returns the distance threshold parameter and whether it was set.
func (n *SimilarityNode) Threshold() (float64, bool) {
	for _, key := range []string{"threshold", "distance", "within_distance"} {
		if v, ok := n.Params[key]; ok {
			switch v.Kind {
			case LiteralFloat:
				return v.Float, true
			case LiteralInt:
				return float64(v.Int), true
			}
		}
	}

	return DefaultSimilarityThreshold, false
}

// Metric returns the metric parameter, defaulting to cosine.
func (n *SimilarityNode) Metric() string {
	if v, ok := n.Params["metric"]; ok && v.Kind == LiteralString {
		return v.Str
	}

	return "cosine"
}

// AnalogyNode solves `a is_to b as c is_to ?`. Target is nil when the query
// asks the engine to solve for the missing entity; when present the query
// verifies a proposed completion.
type AnalogyNode struct {
	A      Node
	B      Node
	C      Node
	Target Node
	Loc    Span
}

// OptimizationNode ranks candidates by an objective under constraints,
// e.g. `maximize(outcome_coverage) subject_to(implementation_effort <= 100)`.
type OptimizationNode struct {
	Direction   OptimizeDirection
	Objective   Node
	Constraints []Node
	Loc         Span
}

// AttributeNode accesses a named attribute of an entity expression,
// e.g. `feature("auth").implementation_effort`.
type AttributeNode struct {
	Base Node
	Name string
	Loc  Span
}

// AggregateNode applies an aggregate function over a match set,
// e.g. `count(command("dep*"))` or `avg(feature("*").effort)`.
type AggregateNode struct {
	Name string
	Args []Node
	Loc  Span
}

// BinaryOpNode is arithmetic between objective terms,
// e.g. `outcome_coverage - implementation_effort`.
type BinaryOpNode struct {
	Op    ArithOp
	Left  Node
	Right Node
	Loc   Span
}

// IdentifierNode is a bare identifier, typically a metric name inside an
// objective or constraint.
type IdentifierNode struct {
	Name string
	Loc  Span
}

// LiteralKind tags a literal value.
type LiteralKind uint8

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralBool
)

// LiteralValue is a literal constant.
type LiteralValue struct {
	Kind  LiteralKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// AsFloat converts numeric literals to float64.
func (v LiteralValue) AsFloat() (float64, bool) {
	switch v.Kind {
	case LiteralInt:
		return float64(v.Int), true
	case LiteralFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// LiteralNode is a literal constant in the query text.
type LiteralNode struct {
	Value LiteralValue
	Loc   Span
}

func (n *AtomicNode) Span() Span       { return n.Loc }
func (n *RelationalNode) Span() Span   { return n.Loc }
func (n *LogicalNode) Span() Span      { return n.Loc }
func (n *ComparisonNode) Span() Span   { return n.Loc }
func (n *SimilarityNode) Span() Span   { return n.Loc }
func (n *AnalogyNode) Span() Span      { return n.Loc }
func (n *OptimizationNode) Span() Span { return n.Loc }
func (n *AttributeNode) Span() Span    { return n.Loc }
func (n *AggregateNode) Span() Span    { return n.Loc }
func (n *BinaryOpNode) Span() Span     { return n.Loc }
func (n *IdentifierNode) Span() Span   { return n.Loc }
func (n *LiteralNode) Span() Span      { return n.Loc }

func (*AtomicNode) node()       {}
func (*RelationalNode) node()   {}
func (*LogicalNode) node()      {}
func (*ComparisonNode) node()   {}
func (*SimilarityNode) node()   {}
func (*AnalogyNode) node()      {}
func (*OptimizationNode) node() {}
func (*AttributeNode) node()    {}
func (*AggregateNode) node()    {}
func (*BinaryOpNode) node()     {}
func (*IdentifierNode) node()   {}
func (*LiteralNode) node()      {}
