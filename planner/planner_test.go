package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
)

func smallStats() store.Statistics {
	return store.Statistics{Dimension: 64, Size: 100}
}

func compileQuery(t *testing.T, text string, stats store.Statistics, optFns ...func(o *Options)) *ExecutionPlan {
	t.Helper()

	node, err := query.Parse(text)
	require.NoError(t, err)

	plan, err := Compile(node, stats, optFns...)
	require.NoError(t, err)

	return plan
}

func opTypes(plan *ExecutionPlan) []OpType {
	types := make([]OpType, len(plan.Ops))
	for i, op := range plan.Ops {
		types[i] = op.Type
	}

	return types
}

func TestCompileAtomic(t *testing.T) {
	t.Run("Exact", func(t *testing.T) {
		plan := compileQuery(t, `command("deps")`, smallStats())

		require.Equal(t, []OpType{OpLookup}, opTypes(plan))
		require.True(t, plan.Ops[0].Params.Exact)
		require.Equal(t, store.EntityCommand, plan.Ops[0].Params.EntityType)
		require.True(t, plan.Exact)
		require.Equal(t, index.KindFlat, plan.Index)
		require.Equal(t, plan.Ops[0].Output, plan.Output)
	})

	t.Run("Pattern", func(t *testing.T) {
		plan := compileQuery(t, `command("dep*")`, smallStats())

		require.False(t, plan.Ops[0].Params.Exact)
		require.True(t, plan.Exact)
	})
}

func TestCompileSimilarity(t *testing.T) {
	t.Run("TopK", func(t *testing.T) {
		plan := compileQuery(t, `similar_to(command("deps"), top_k=3)`, smallStats())

		require.Equal(t, []OpType{OpLookup, OpSimilaritySearch}, opTypes(plan))

		search := plan.Ops[1]
		require.Equal(t, 3, search.Params.TopK)
		require.False(t, search.Params.HasMaxDist)
		require.True(t, search.Params.ExcludeInputs)
		require.False(t, plan.Exact)
	})

	t.Run("DefaultThreshold", func(t *testing.T) {
		plan := compileQuery(t, `similar_to(command("deps"))`, smallStats())

		search := plan.Ops[1]
		require.Zero(t, search.Params.TopK)
		require.True(t, search.Params.HasMaxDist)
		require.InDelta(t, query.DefaultSimilarityThreshold, search.Params.MaxDistance, 1e-9)
	})
}

func TestCompileRelational(t *testing.T) {
	plan := compileQuery(t, `command("*") -> job("python-dev")`, smallStats())

	require.Equal(t, []OpType{OpLookup, OpLookup, OpBind, OpSimilaritySearch}, opTypes(plan))

	bind := plan.Ops[2]
	require.Equal(t, []RelationHop{{From: store.EntityCommand, To: store.EntityJob}}, bind.Params.Hops)

	search := plan.Ops[3]
	require.True(t, search.Params.HasMinSim)
	require.InDelta(t, DefaultRelationalMinSimilarity, search.Params.MinSimilarity, 1e-9)
	require.Len(t, search.Inputs, 2)
}

func TestCompileRelationalChainComposes(t *testing.T) {
	plan := compileQuery(t, `command("*") -> job("*") -> outcome("tested")`, smallStats())

	var bind *VectorOperation

	for i := range plan.Ops {
		if plan.Ops[i].Type == OpBind {
			bind = &plan.Ops[i]
		}
	}

	require.NotNil(t, bind)
	require.Equal(t, []RelationHop{
		{From: store.EntityCommand, To: store.EntityJob},
		{From: store.EntityJob, To: store.EntityOutcome},
	}, bind.Params.Hops)
}

func TestCompileLogical(t *testing.T) {
	plan := compileQuery(t, `command("a") AND NOT command("b")`, smallStats())

	require.Equal(t, []OpType{OpLookup, OpLookup, OpNegate, OpBundle}, opTypes(plan))

	negate := plan.Ops[2]
	require.Equal(t, store.EntityCommand, negate.Params.EntityType)
}

func TestCompileComparison(t *testing.T) {
	plan := compileQuery(t, `feature("auth").implementation_effort > 50`, smallStats())

	require.Equal(t, []OpType{OpLookup, OpFilter}, opTypes(plan))

	filter := plan.Ops[1]
	require.Equal(t, []FilterCondition{
		{Attribute: "implementation_effort", Op: query.CmpGt, Value: 50},
	}, filter.Params.Conditions)
}

func TestCompileAnalogy(t *testing.T) {
	plan := compileQuery(t, `command("deps") is_to job("setup") as command("build") is_to ?`, smallStats())

	require.Equal(t, []OpType{OpLookup, OpLookup, OpLookup, OpVectorArithmetic, OpNearest}, opTypes(plan))

	nearest := plan.Ops[4]
	require.Equal(t, store.EntityJob, nearest.Params.EntityType)
	require.Equal(t, DefaultAnalogyTopK, nearest.Params.TopK)
	require.False(t, plan.Exact)
}

func TestCompileOptimization(t *testing.T) {
	plan := compileQuery(t, `maximize(outcome_coverage) subject_to(implementation_effort <= 100)`, smallStats())

	require.Equal(t, []OpType{OpIterativeSearch}, opTypes(plan))

	op := plan.Ops[0]
	require.Equal(t, query.Maximize, op.Params.Direction)
	require.Equal(t, DefaultMaxIterations, op.Params.MaxIterations)
	require.Equal(t, DefaultTopK, op.Params.TopK)
	require.Len(t, op.Params.Constraints, 1)
}

func TestCompileAggregate(t *testing.T) {
	t.Run("Count", func(t *testing.T) {
		plan := compileQuery(t, `count(command("dep*"))`, smallStats())

		require.Equal(t, []OpType{OpLookup, OpAggregate}, opTypes(plan))
		require.Equal(t, "count", plan.Ops[1].Params.Aggregate)
	})

	t.Run("AvgOverAttribute", func(t *testing.T) {
		plan := compileQuery(t, `avg(feature("*").implementation_effort)`, smallStats())

		agg := plan.Ops[1]
		require.Equal(t, "avg", agg.Params.Aggregate)
		require.Equal(t, "implementation_effort", agg.Params.Attribute)
	})

	t.Run("AvgWithoutAttribute", func(t *testing.T) {
		node, err := query.Parse(`avg(command("*"))`)
		require.NoError(t, err)

		_, err = Compile(node, smallStats())

		var planErr *ErrPlanningFailed

		require.ErrorAs(t, err, &planErr)
	})
}

func TestIndexSelection(t *testing.T) {
	approx := `similar_to(command("deps"), top_k=3)`

	tests := []struct {
		name  string
		text  string
		size  int
		want  index.Kind
		exact bool
	}{
		{name: "SmallFlat", text: approx, size: 500, want: index.KindFlat},
		{name: "MediumIVF", text: approx, size: 50_000, want: index.KindIVF},
		{name: "LargeHNSW", text: approx, size: 500_000, want: index.KindHNSW},
		{name: "ExactForcesFlat", text: `command("deps")`, size: 500_000, want: index.KindFlat, exact: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := compileQuery(t, tt.text, store.Statistics{Dimension: 64, Size: tt.size})

			require.Equal(t, tt.want, plan.Index)
			require.Equal(t, tt.exact, plan.Exact)
		})
	}
}

func TestPlanningFailedWhenExactBackendExcluded(t *testing.T) {
	node, err := query.Parse(`command("deps")`)
	require.NoError(t, err)

	_, err = Compile(node, smallStats(), func(o *Options) {
		o.AllowedIndexes = []index.Kind{index.KindHNSW}
	})

	var planErr *ErrPlanningFailed

	require.ErrorAs(t, err, &planErr)
}

func TestRewriteDropsNoopSimilarity(t *testing.T) {
	plan := compileQuery(t, `similar_to(command("deps"), threshold=1.0)`, smallStats())

	require.Equal(t, []OpType{OpLookup}, opTypes(plan))
	require.Equal(t, plan.Ops[0].Output, plan.Output)
	require.True(t, plan.Exact)
}

func TestRewriteMergesFilters(t *testing.T) {
	ops := []VectorOperation{
		{Type: OpLookup, Output: "op0", Params: Params{EntityType: store.EntityFeature, Pattern: "*"}},
		{Type: OpFilter, Inputs: []string{"op0"}, Output: "op1", Params: Params{
			Conditions: []FilterCondition{{Attribute: "a", Op: query.CmpGt, Value: 1}},
		}},
		{Type: OpFilter, Inputs: []string{"op1"}, Output: "op2", Params: Params{
			Conditions: []FilterCondition{{Attribute: "b", Op: query.CmpLt, Value: 2}},
		}},
	}

	rewritten, output := rewrite(ops, "op2")

	require.Len(t, rewritten, 2)
	require.Equal(t, "op1", output)
	require.Equal(t, []FilterCondition{
		{Attribute: "a", Op: query.CmpGt, Value: 1},
		{Attribute: "b", Op: query.CmpLt, Value: 2},
	}, rewritten[1].Params.Conditions)
}

func TestRewritePushesFilterBeforeSearch(t *testing.T) {
	ops := []VectorOperation{
		{Type: OpLookup, Output: "op0", Params: Params{Pattern: "*"}},
		{Type: OpLookup, Output: "op1", Params: Params{Pattern: "python-dev", Exact: true}},
		{Type: OpBind, Inputs: []string{"op0"}, Output: "op2"},
		{Type: OpSimilaritySearch, Inputs: []string{"op2", "op1"}, Output: "op3", Params: Params{
			MinSimilarity: 0.5, HasMinSim: true,
		}},
		{Type: OpFilter, Inputs: []string{"op3"}, Output: "op4", Params: Params{
			Conditions: []FilterCondition{{Attribute: "cost", Op: query.CmpLe, Value: 10}},
		}},
	}

	rewritten, output := rewrite(ops, "op4")

	require.Len(t, rewritten, 5)
	require.Equal(t, "op3", output)

	// The filter now feeds the search instead of consuming it.
	require.Equal(t, OpFilter, rewritten[3].Type)
	require.Equal(t, []string{"op2"}, rewritten[3].Inputs)
	require.Equal(t, OpSimilaritySearch, rewritten[4].Type)
	require.Equal(t, []string{"op4", "op1"}, rewritten[4].Inputs)
}

func TestRewriteLeavesTopKSearchAlone(t *testing.T) {
	ops := []VectorOperation{
		{Type: OpLookup, Output: "op0"},
		{Type: OpLookup, Output: "op1"},
		{Type: OpBind, Inputs: []string{"op0"}, Output: "op2"},
		{Type: OpSimilaritySearch, Inputs: []string{"op2", "op1"}, Output: "op3", Params: Params{TopK: 5}},
		{Type: OpFilter, Inputs: []string{"op3"}, Output: "op4", Params: Params{
			Conditions: []FilterCondition{{Attribute: "cost", Op: query.CmpLe, Value: 10}},
		}},
	}

	rewritten, output := rewrite(ops, "op4")

	require.Equal(t, ops, rewritten)
	require.Equal(t, "op4", output)
}

func TestExplain(t *testing.T) {
	plan := compileQuery(t, `command("*") -> job("python-dev")`, smallStats())

	explain := plan.Explain()
	require.Contains(t, explain, "lookup")
	require.Contains(t, explain, "bind")
	require.Contains(t, explain, "similarity_search")
	require.Contains(t, explain, "index=flat")
}
