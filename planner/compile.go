package planner

import (
	"fmt"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
)

const (
	// DefaultRelationalMinSimilarity is the similarity floor applied to
	// relational traversal results.
	DefaultRelationalMinSimilarity = 0.5

	// DefaultMaxIterations bounds the optimization search loop.
	DefaultMaxIterations = 10

	// DefaultAnalogyTopK is the number of candidates returned when solving
	// an analogy.
	DefaultAnalogyTopK = 3

	// DefaultTopK caps result sets when the query does not say otherwise.
	DefaultTopK = 10
)

// Options contains configuration options for compilation.
type Options struct {
	// TopK caps result set sizes for operations without an explicit bound.
	TopK int

	// AllowedIndexes restricts backend selection. Empty permits all.
	AllowedIndexes []index.Kind

	// RequireExact forces the flat backend regardless of store size.
	RequireExact bool
}

// DefaultOptions contains the default configuration options for compilation.
var DefaultOptions = Options{
	TopK: DefaultTopK,
}

// Compile lowers a parsed query into an execution plan: the AST becomes an
// ordered operation list, rewrite rules run to a fixed point, and the cost
// model picks an index backend.
func Compile(root query.Node, stats store.Statistics, optFns ...func(o *Options)) (*ExecutionPlan, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &compiler{stats: stats, opts: opts}

	output, err := c.lower(root)
	if err != nil {
		return nil, err
	}

	ops, output := rewrite(c.ops, output)

	exact := opts.RequireExact || isExact(ops)

	kind, err := chooseIndex(stats.Size, exact, opts.AllowedIndexes)
	if err != nil {
		return nil, err
	}

	return &ExecutionPlan{
		Ops:           ops,
		Output:        output,
		Index:         kind,
		Exact:         exact,
		EstimatedCost: estimateCost(ops, kind, stats.Size),
	}, nil
}

type compiler struct {
	stats store.Statistics
	opts  Options
	ops   []VectorOperation
	next  int
}

func (c *compiler) emit(t OpType, inputs []string, params Params) string {
	output := fmt.Sprintf("op%d", c.next)
	c.next++

	c.ops = append(c.ops, VectorOperation{
		Type:   t,
		Inputs: inputs,
		Output: output,
		Params: params,
	})

	return output
}

func (c *compiler) fail(span query.Span, format string, args ...any) error {
	return &ErrPlanningFailed{
		Reason: fmt.Sprintf(format, args...),
		Span:   span,
	}
}

func (c *compiler) lower(node query.Node) (string, error) {
	switch n := node.(type) {
	case *query.AtomicNode:
		return c.lowerAtomic(n), nil

	case *query.RelationalNode:
		return c.lowerRelational(n)

	case *query.LogicalNode:
		return c.lowerLogical(n)

	case *query.ComparisonNode:
		return c.lowerComparison(n)

	case *query.SimilarityNode:
		return c.lowerSimilarity(n)

	case *query.AnalogyNode:
		return c.lowerAnalogy(n)

	case *query.OptimizationNode:
		return c.emit(OpIterativeSearch, nil, Params{
			Direction:     n.Direction,
			Objective:     n.Objective,
			Constraints:   n.Constraints,
			MaxIterations: DefaultMaxIterations,
			TopK:          c.opts.TopK,
		}), nil

	case *query.AggregateNode:
		return c.lowerAggregate(n)

	case *query.AttributeNode:
		base, err := c.lower(n.Base)
		if err != nil {
			return "", err
		}

		return c.emit(OpAttribute, []string{base}, Params{Attribute: n.Name}), nil

	default:
		return "", c.fail(node.Span(), "%T is not executable on its own", node)
	}
}

func (c *compiler) lowerAtomic(n *query.AtomicNode) string {
	return c.emit(OpLookup, nil, Params{
		EntityType: n.EntityType,
		Pattern:    n.Pattern,
		Exact:      !store.IsPattern(n.Pattern),
	})
}

// lowerRelational flattens an arrow chain into a single traversal: the
// source entities are bound through the composed relations of the chain and
// ranked by similarity to the target.
func (c *compiler) lowerRelational(n *query.RelationalNode) (string, error) {
	chain, err := flattenChain(n)
	if err != nil {
		return "", err
	}

	hops := make([]RelationHop, len(chain)-1)
	for i := 0; i < len(chain)-1; i++ {
		hops[i] = RelationHop{From: chain[i].EntityType, To: chain[i+1].EntityType}
	}

	source := c.lowerAtomic(chain[0])
	target := c.lowerAtomic(chain[len(chain)-1])
	bound := c.emit(OpBind, []string{source}, Params{Hops: hops})

	return c.emit(OpSimilaritySearch, []string{bound, target}, Params{
		MinSimilarity: DefaultRelationalMinSimilarity,
		HasMinSim:     true,
		Metric:        distance.MetricCosine,
	}), nil
}

func flattenChain(n *query.RelationalNode) ([]*query.AtomicNode, error) {
	left, ok := n.Left.(*query.AtomicNode)
	if !ok {
		return nil, &ErrPlanningFailed{
			Reason: "relational traversal requires entity operands",
			Span:   n.Left.Span(),
		}
	}

	switch right := n.Right.(type) {
	case *query.AtomicNode:
		return []*query.AtomicNode{left, right}, nil
	case *query.RelationalNode:
		rest, err := flattenChain(right)
		if err != nil {
			return nil, err
		}

		return append([]*query.AtomicNode{left}, rest...), nil
	default:
		return nil, &ErrPlanningFailed{
			Reason: "relational traversal requires entity operands",
			Span:   n.Right.Span(),
		}
	}
}

func (c *compiler) lowerLogical(n *query.LogicalNode) (string, error) {
	inputs := make([]string, len(n.Operands))

	for i, operand := range n.Operands {
		name, err := c.lower(operand)
		if err != nil {
			return "", err
		}

		inputs[i] = name
	}

	switch n.Op {
	case query.OpAnd:
		return c.emit(OpBundle, inputs, Params{}), nil
	case query.OpOr:
		return c.emit(OpVectorSum, inputs, Params{}), nil
	case query.OpNot:
		t, ok := entityTypeOf(n.Operands[0])
		if !ok {
			return "", c.fail(n.Span(), "cannot determine the entity universe for NOT")
		}

		return c.emit(OpNegate, inputs, Params{EntityType: t}), nil
	default:
		return "", c.fail(n.Span(), "unknown logical operator %q", n.Op)
	}
}

func (c *compiler) lowerComparison(n *query.ComparisonNode) (string, error) {
	attr, ok := n.Left.(*query.AttributeNode)
	if !ok {
		return "", c.fail(n.Left.Span(), "comparison requires an attribute access on the left")
	}

	lit, ok := n.Right.(*query.LiteralNode)
	if !ok {
		return "", c.fail(n.Right.Span(), "comparison requires a literal bound on the right")
	}

	value, ok := lit.Value.AsFloat()
	if !ok {
		return "", c.fail(n.Right.Span(), "comparison bound must be numeric")
	}

	base, err := c.lower(attr.Base)
	if err != nil {
		return "", err
	}

	return c.emit(OpFilter, []string{base}, Params{
		Conditions: []FilterCondition{{Attribute: attr.Name, Op: n.Op, Value: value}},
	}), nil
}

func (c *compiler) lowerSimilarity(n *query.SimilarityNode) (string, error) {
	reference, err := c.lower(n.Reference)
	if err != nil {
		return "", err
	}

	metric, err := distance.ParseMetric(n.Metric())
	if err != nil {
		return "", c.fail(n.Span(), "unknown metric %q", n.Metric())
	}

	topK := n.TopK()
	threshold, thresholdSet := n.Threshold()

	return c.emit(OpSimilaritySearch, []string{reference}, Params{
		TopK:          topK,
		MaxDistance:   threshold,
		HasMaxDist:    thresholdSet || topK == 0,
		Metric:        metric,
		ExcludeInputs: true,
	}), nil
}

func (c *compiler) lowerAnalogy(n *query.AnalogyNode) (string, error) {
	a, err := c.lower(n.A)
	if err != nil {
		return "", err
	}

	b, err := c.lower(n.B)
	if err != nil {
		return "", err
	}

	cName, err := c.lower(n.C)
	if err != nil {
		return "", err
	}

	target := c.emit(OpVectorArithmetic, []string{a, b, cName}, Params{})

	inputs := []string{target}

	if n.Target != nil {
		proposed, err := c.lower(n.Target)
		if err != nil {
			return "", err
		}

		inputs = append(inputs, proposed)
	}

	// The answer lives in the same entity domain as b.
	params := Params{TopK: DefaultAnalogyTopK, ExcludeInputs: true}
	if t, ok := entityTypeOf(n.B); ok {
		params.EntityType = t
	}

	return c.emit(OpNearest, inputs, params), nil
}

func (c *compiler) lowerAggregate(n *query.AggregateNode) (string, error) {
	if len(n.Args) != 1 {
		return "", c.fail(n.Span(), "%s takes exactly one argument", n.Name)
	}

	params := Params{Aggregate: n.Name}

	arg := n.Args[0]
	if attr, ok := arg.(*query.AttributeNode); ok {
		params.Attribute = attr.Name
		arg = attr.Base
	}

	if n.Name != "count" && params.Attribute == "" {
		return "", c.fail(n.Span(), "%s requires an attribute access argument", n.Name)
	}

	input, err := c.lower(arg)
	if err != nil {
		return "", err
	}

	return c.emit(OpAggregate, []string{input}, params), nil
}

// entityTypeOf finds the entity type a subexpression ranges over.
func entityTypeOf(node query.Node) (store.EntityType, bool) {
	switch n := node.(type) {
	case *query.AtomicNode:
		return n.EntityType, true
	case *query.RelationalNode:
		return entityTypeOf(n.Left)
	case *query.LogicalNode:
		for _, operand := range n.Operands {
			if t, ok := entityTypeOf(operand); ok {
				return t, true
			}
		}
	case *query.ComparisonNode:
		return entityTypeOf(n.Left)
	case *query.SimilarityNode:
		return entityTypeOf(n.Reference)
	case *query.AttributeNode:
		return entityTypeOf(n.Base)
	}

	return 0, false
}

// isExact reports whether the plan only performs exact operations. Such
// plans must run on the deterministic flat backend.
func isExact(ops []VectorOperation) bool {
	for _, op := range ops {
		switch op.Type {
		case OpSimilaritySearch, OpNearest, OpIterativeSearch:
			return false
		}
	}

	return true
}
