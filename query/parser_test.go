package query

import (
	"testing"

	"github.com/hyperdim/hdql/store"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) Node {
	t.Helper()

	node, err := Parse(input)
	require.NoError(t, err)

	return node
}

func TestParseAtomic(t *testing.T) {
	node := mustParse(t, `command("deps")`)

	atomic, ok := node.(*AtomicNode)
	require.True(t, ok)
	require.Equal(t, store.EntityCommand, atomic.EntityType)
	require.Equal(t, "deps", atomic.Pattern)
	require.Equal(t, Span{Start: 0, End: 15}, atomic.Span())
}

func TestParseAtomicPatterns(t *testing.T) {
	t.Run("Glob", func(t *testing.T) {
		atomic := mustParse(t, `command("dep*")`).(*AtomicNode)
		require.Equal(t, "dep*", atomic.Pattern)
	})

	t.Run("UnquotedWildcard", func(t *testing.T) {
		atomic := mustParse(t, `command(dep*)`).(*AtomicNode)
		require.Equal(t, "dep*", atomic.Pattern)
	})

	t.Run("Fuzzy", func(t *testing.T) {
		atomic := mustParse(t, `command(dep~)`).(*AtomicNode)
		require.Equal(t, "dep~", atomic.Pattern)
	})

	t.Run("BareStar", func(t *testing.T) {
		// `*` inside entity(...) is the match-all pattern even though it
		// lexes as the multiplication operator.
		atomic := mustParse(t, `command(*)`).(*AtomicNode)
		require.Equal(t, "*", atomic.Pattern)
	})

	t.Run("BareStarInRelationalChain", func(t *testing.T) {
		rel := mustParse(t, `command(*) -> job("python-dev")`).(*RelationalNode)
		require.Equal(t, "*", rel.Left.(*AtomicNode).Pattern)
	})
}

func TestParseRelationalChain(t *testing.T) {
	node := mustParse(t, `command("x") -> job("y") -> outcome("z")`)

	rel, ok := node.(*RelationalNode)
	require.True(t, ok)
	require.IsType(t, &AtomicNode{}, rel.Left)

	inner, ok := rel.Right.(*RelationalNode)
	require.True(t, ok)
	require.IsType(t, &AtomicNode{}, inner.Left)
	require.IsType(t, &AtomicNode{}, inner.Right)
}

func TestParsePrecedence(t *testing.T) {
	// AND binds tighter than OR.
	node := mustParse(t, `command("a") AND command("b") OR command("c")`)

	or, ok := node.(*LogicalNode)
	require.True(t, ok)
	require.Equal(t, OpOr, or.Op)

	and, ok := or.Operands[0].(*LogicalNode)
	require.True(t, ok)
	require.Equal(t, OpAnd, and.Op)
}

func TestParseNot(t *testing.T) {
	node := mustParse(t, `command("a") AND NOT command("b")`)

	and := node.(*LogicalNode)
	require.Equal(t, OpAnd, and.Op)

	not, ok := and.Operands[1].(*LogicalNode)
	require.True(t, ok)
	require.Equal(t, OpNot, not.Op)
	require.Len(t, not.Operands, 1)
}

func TestParseParenthesized(t *testing.T) {
	node := mustParse(t, `(command("a") OR command("b")) AND command("c")`)

	and := node.(*LogicalNode)
	require.Equal(t, OpAnd, and.Op)

	or, ok := and.Operands[0].(*LogicalNode)
	require.True(t, ok)
	require.Equal(t, OpOr, or.Op)
}

func TestParseSimilarity(t *testing.T) {
	node := mustParse(t, `similar_to(command("deps"), top_k=3, metric="cosine")`)

	sim, ok := node.(*SimilarityNode)
	require.True(t, ok)
	require.Equal(t, 3, sim.TopK())
	require.Equal(t, "cosine", sim.Metric())

	_, hasThreshold := sim.Threshold()
	require.False(t, hasThreshold)
}

func TestParseSimilarityDefaults(t *testing.T) {
	sim := mustParse(t, `similar_to(command("deps"))`).(*SimilarityNode)
	require.Zero(t, sim.TopK())
	require.Equal(t, "cosine", sim.Metric())

	threshold, has := sim.Threshold()
	require.False(t, has)
	require.Equal(t, DefaultSimilarityThreshold, threshold)
}

func TestParseAnalogy(t *testing.T) {
	t.Run("Solve", func(t *testing.T) {
		node := mustParse(t, `command("deps") is_to job("setup") as command("build") is_to ?`)

		analogy, ok := node.(*AnalogyNode)
		require.True(t, ok)
		require.Nil(t, analogy.Target)
		require.IsType(t, &AtomicNode{}, analogy.A)
		require.IsType(t, &AtomicNode{}, analogy.B)
		require.IsType(t, &AtomicNode{}, analogy.C)
	})

	t.Run("Verify", func(t *testing.T) {
		node := mustParse(t, `command("deps") is_to job("setup") as command("build") is_to job("compile")`)

		analogy := node.(*AnalogyNode)
		require.NotNil(t, analogy.Target)
	})
}

func TestParseOptimization(t *testing.T) {
	node := mustParse(t, `maximize(outcome_coverage) subject_to(implementation_effort <= 100, job_frequency > 0.5)`)

	opt, ok := node.(*OptimizationNode)
	require.True(t, ok)
	require.Equal(t, Maximize, opt.Direction)
	require.IsType(t, &IdentifierNode{}, opt.Objective)
	require.Len(t, opt.Constraints, 2)

	first, ok := opt.Constraints[0].(*ComparisonNode)
	require.True(t, ok)
	require.Equal(t, CmpLe, first.Op)
}

func TestParseOptimizationObjectiveArithmetic(t *testing.T) {
	node := mustParse(t, `maximize(outcome_coverage - implementation_effort * 0.3)`)

	opt := node.(*OptimizationNode)

	sub, ok := opt.Objective.(*BinaryOpNode)
	require.True(t, ok)
	require.Equal(t, ArithSub, sub.Op)

	mul, ok := sub.Right.(*BinaryOpNode)
	require.True(t, ok)
	require.Equal(t, ArithMul, mul.Op)
}

func TestParseAggregate(t *testing.T) {
	node := mustParse(t, `count(command("dep*"))`)

	agg, ok := node.(*AggregateNode)
	require.True(t, ok)
	require.Equal(t, "count", agg.Name)
	require.Len(t, agg.Args, 1)
}

func TestParseAttributeAccess(t *testing.T) {
	node := mustParse(t, `feature("auth").implementation_effort`)

	attr, ok := node.(*AttributeNode)
	require.True(t, ok)
	require.Equal(t, "implementation_effort", attr.Name)
	require.IsType(t, &AtomicNode{}, attr.Base)
}

func TestParseErrors(t *testing.T) {
	t.Run("UnterminatedAtomic", func(t *testing.T) {
		input := `command(`

		_, err := Parse(input)

		var parseErr *ParseError

		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, len(input), parseErr.Offset)
		require.Contains(t, parseErr.Expected, "string")
	})

	t.Run("MissingCloseParen", func(t *testing.T) {
		_, err := Parse(`command("deps"`)

		var parseErr *ParseError

		require.ErrorAs(t, err, &parseErr)
		require.Contains(t, parseErr.Expected, ")")
	})

	t.Run("TrailingGarbage", func(t *testing.T) {
		_, err := Parse(`command("deps") command("x")`)

		var parseErr *ParseError

		require.ErrorAs(t, err, &parseErr)
		require.Contains(t, parseErr.Expected, "end of input")
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, err := Parse(``)

		var parseErr *ParseError

		require.ErrorAs(t, err, &parseErr)
	})
}

func TestUnparseRoundTrip(t *testing.T) {
	queries := []string{
		`command("deps")`,
		`command("dep*")`,
		`command("x") -> job("y")`,
		`command("x") -> job("y") -> outcome("z")`,
		`(command("a") AND command("b"))`,
		`(command("a") OR NOT command("b"))`,
		`similar_to(command("deps"), top_k=3)`,
		`similar_to(command("deps"), metric="l2", threshold=0.4)`,
		`command("deps") is_to job("setup") as command("build") is_to ?`,
		`maximize(outcome_coverage) subject_to(implementation_effort <= 100)`,
		`minimize((implementation_effort - outcome_coverage))`,
		`count(command("dep*"))`,
		`avg(feature("*").implementation_effort)`,
		`feature("auth").implementation_effort > 50`,
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			first := mustParse(t, q)
			text := Unparse(first)

			second, err := Parse(text)
			require.NoError(t, err, "unparsed text %q must reparse", text)

			// Canonical text is a fixed point.
			require.Equal(t, text, Unparse(second))
		})
	}
}
