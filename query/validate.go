package query

import (
	"fmt"

	"github.com/hyperdim/hdql/distance"
)

// MetricChecker reports whether a metric name is known to the engine. It is
// typically backed by the attribute keys registered with the store.
type MetricChecker func(name string) bool

// Validate performs the cheap semantic pre-checks that do not require
// vector lookups: similarity parameters must be sane, and optimization
// objectives and constraints must name known metrics. Deeper checks, such
// as identifier existence, are deferred to execution.
func Validate(root Node, knownMetric MetricChecker) error {
	return walk(root, func(node Node) error {
		switch n := node.(type) {
		case *SimilarityNode:
			return validateSimilarity(n)
		case *OptimizationNode:
			return validateOptimization(n, knownMetric)
		}

		return nil
	})
}

func validateSimilarity(n *SimilarityNode) error {
	if _, err := distance.ParseMetric(n.Metric()); err != nil {
		return &ValidationError{
			Message: fmt.Sprintf("unknown similarity metric %q", n.Metric()),
			Span:    n.Loc,
		}
	}

	if v, ok := n.Params["top_k"]; ok {
		if v.Kind != LiteralInt || v.Int <= 0 {
			return &ValidationError{
				Message: "top_k must be a positive integer",
				Span:    n.Loc,
			}
		}
	}

	if threshold, ok := n.Threshold(); ok && (threshold < 0 || threshold > 2) {
		return &ValidationError{
			Message: fmt.Sprintf("similarity threshold %g outside [0, 2]", threshold),
			Span:    n.Loc,
		}
	}

	return nil
}

func validateOptimization(n *OptimizationNode, knownMetric MetricChecker) error {
	if knownMetric == nil {
		return nil
	}

	check := func(node Node) error {
		if ident, ok := node.(*IdentifierNode); ok {
			if !knownMetric(ident.Name) {
				return &ValidationError{
					Message: fmt.Sprintf("unknown metric %q", ident.Name),
					Span:    ident.Loc,
				}
			}
		}

		return nil
	}

	if err := walk(n.Objective, check); err != nil {
		return err
	}

	for _, constraint := range n.Constraints {
		// Constraint right-hand sides are literal bounds, not metrics.
		if cmp, ok := constraint.(*ComparisonNode); ok {
			if err := walk(cmp.Left, check); err != nil {
				return err
			}

			continue
		}

		if err := walk(constraint, check); err != nil {
			return err
		}
	}

	return nil
}

// walk visits node and all its children in depth-first order, stopping on
// the first error.
func walk(node Node, visit func(Node) error) error {
	if node == nil {
		return nil
	}

	if err := visit(node); err != nil {
		return err
	}

	switch n := node.(type) {
	case *RelationalNode:
		if err := walk(n.Left, visit); err != nil {
			return err
		}

		return walk(n.Right, visit)

	case *LogicalNode:
		for _, operand := range n.Operands {
			if err := walk(operand, visit); err != nil {
				return err
			}
		}

	case *ComparisonNode:
		if err := walk(n.Left, visit); err != nil {
			return err
		}

		return walk(n.Right, visit)

	case *SimilarityNode:
		return walk(n.Reference, visit)

	case *AnalogyNode:
		for _, child := range []Node{n.A, n.B, n.C, n.Target} {
			if err := walk(child, visit); err != nil {
				return err
			}
		}

	case *OptimizationNode:
		if err := walk(n.Objective, visit); err != nil {
			return err
		}

		for _, constraint := range n.Constraints {
			if err := walk(constraint, visit); err != nil {
				return err
			}
		}

	case *AttributeNode:
		return walk(n.Base, visit)

	case *AggregateNode:
		for _, arg := range n.Args {
			if err := walk(arg, visit); err != nil {
				return err
			}
		}

	case *BinaryOpNode:
		if err := walk(n.Left, visit); err != nil {
			return err
		}

		return walk(n.Right, visit)
	}

	return nil
}
