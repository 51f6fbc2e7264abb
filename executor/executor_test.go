package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/index/flat"
	"github.com/hyperdim/hdql/planner"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
	"github.com/hyperdim/hdql/vsa"
)

const testDim = 8

func vec(vals ...float32) []float32 {
	out := make([]float32, testDim)
	copy(out, vals)

	return out
}

// testStore builds a fixture knowledge base. Command vectors share a first
// component so cosine similarity to "deps" decreases from cache to build to
// lint; job vectors are shifted command vectors so relational traversal
// scores them exactly.
func testStore(t *testing.T) *store.Store {
	t.Helper()

	b, err := store.NewBuilder(testDim)
	require.NoError(t, err)

	deps := vec(1)
	cache := vec(0.9, 0.436)
	build := vec(0.8, 0, 0.6)
	lint := vec(0.4, 0, 0, 0.9165)

	commands := map[string][]float32{
		"deps":  deps,
		"cache": cache,
		"build": build,
		"lint":  lint,
	}

	for id, v := range commands {
		require.NoError(t, b.Add(store.EntityVector{
			EntityType: store.EntityCommand,
			Identifier: id,
			Embedding:  v,
		}))
	}

	// command→job has shift 7, so python-dev and compile sit exactly where
	// their commands land after binding. setup is placed on the analogy
	// target cache + (python-dev - deps) so solving lands on it exactly.
	setup := vec(-0.1, 0.436)
	setup[7] = 1

	jobs := map[string][]float32{
		"python-dev": vsa.Permute(deps, 7),
		"setup":      setup,
		"compile":    vsa.Permute(build, 7),
	}

	for id, v := range jobs {
		require.NoError(t, b.Add(store.EntityVector{
			EntityType: store.EntityJob,
			Identifier: id,
			Embedding:  v,
		}))
	}

	features := []struct {
		id       string
		coverage float64
		effort   float64
	}{
		{"auth", 80, 90},
		{"billing", 95, 120},
		{"export", 70, 40},
		{"search", 88, 100},
		{"themes", 30, 10},
	}

	for i, f := range features {
		v := vec()
		v[i%testDim] = 1

		require.NoError(t, b.Add(store.EntityVector{
			EntityType: store.EntityFeature,
			Identifier: f.id,
			Embedding:  v,
			Attributes: map[string]float64{
				"outcome_coverage":      f.coverage,
				"implementation_effort": f.effort,
			},
		}))
	}

	s, err := b.Build()
	require.NoError(t, err)

	return s
}

func testExecutor(t *testing.T, optFns ...func(o *Options)) (*Executor, *store.Store) {
	t.Helper()

	s := testStore(t)

	vectors := make([][]float32, s.Len())
	for ord := uint32(0); int(ord) < s.Len(); ord++ {
		ev, ok := s.ByOrdinal(ord)
		require.True(t, ok)

		vectors[ord] = ev.Embedding
	}

	idx, err := flat.Build(testDim, vectors)
	require.NoError(t, err)

	return New(s, map[index.Kind]index.Index{index.KindFlat: idx}, optFns...), s
}

func run(t *testing.T, e *Executor, s *store.Store, text string) (*Outcome, error) {
	t.Helper()

	node, err := query.Parse(text)
	require.NoError(t, err)

	plan, err := planner.Compile(node, s.Stats())
	require.NoError(t, err)

	return e.Execute(context.Background(), plan)
}

func mustRun(t *testing.T, e *Executor, s *store.Store, text string) *Outcome {
	t.Helper()

	out, err := run(t, e, s, text)
	require.NoError(t, err)

	return out
}

func matchIDs(out *Outcome) []string {
	ids := make([]string, len(out.Matches))
	for i, m := range out.Matches {
		ids[i] = m.Key.ID
	}

	return ids
}

func TestExecuteExactLookup(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `command("deps")`)

	require.Equal(t, OutcomeMatches, out.Kind)
	require.Equal(t, []string{"deps"}, matchIDs(out))
	require.Zero(t, out.Matches[0].Distance)
	require.NotEmpty(t, out.Trace)
}

func TestExecuteSimilarTo(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `similar_to(command("deps"), top_k=3)`)

	// Three ranked matches, ascending distance, excluding the reference.
	require.Equal(t, []string{"cache", "build", "lint"}, matchIDs(out))
	require.NotContains(t, matchIDs(out), "deps")

	for i := 1; i < len(out.Matches); i++ {
		require.LessOrEqual(t, out.Matches[i-1].Distance, out.Matches[i].Distance)
	}
}

func TestExecuteSimilarToThreshold(t *testing.T) {
	e, s := testExecutor(t)

	// Default distance threshold 0.3 keeps cache (0.1) and build (0.2)
	// but drops lint (0.6).
	out := mustRun(t, e, s, `similar_to(command("deps"))`)

	require.Equal(t, []string{"cache", "build"}, matchIDs(out))
}

func TestExecuteRelational(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `command("*") -> job("python-dev")`)

	// All commands whose bound similarity to python-dev exceeds 0.5:
	// deps (1.0), cache (0.9), build (0.8); lint (0.4) falls below.
	require.Equal(t, []string{"deps", "cache", "build"}, matchIDs(out))
	require.Contains(t, out.Matches[0].Explanation, "command→job")
}

func TestExecuteLogicalLaws(t *testing.T) {
	e, s := testExecutor(t)

	t.Run("ContradictionIsEmpty", func(t *testing.T) {
		out := mustRun(t, e, s, `command("dep*") AND NOT command("dep*")`)
		require.Empty(t, out.Matches)
	})

	t.Run("OrIsIdempotent", func(t *testing.T) {
		single := mustRun(t, e, s, `command("dep*")`)
		doubled := mustRun(t, e, s, `command("dep*") OR command("dep*")`)

		require.Equal(t, matchIDs(single), matchIDs(doubled))
	})
}

func TestExecuteLogicalCombinations(t *testing.T) {
	e, s := testExecutor(t)

	t.Run("And", func(t *testing.T) {
		out := mustRun(t, e, s, `command("*") AND command("b*")`)
		require.Equal(t, []string{"build"}, matchIDs(out))
	})

	t.Run("Or", func(t *testing.T) {
		out := mustRun(t, e, s, `command("deps") OR command("lint")`)
		require.ElementsMatch(t, []string{"deps", "lint"}, matchIDs(out))
	})

	t.Run("NotComplementsWithinType", func(t *testing.T) {
		out := mustRun(t, e, s, `NOT command("deps")`)
		require.ElementsMatch(t, []string{"build", "cache", "lint"}, matchIDs(out))
	})
}

func TestExecuteComparison(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `feature("*").implementation_effort > 95`)

	require.ElementsMatch(t, []string{"billing", "search"}, matchIDs(out))
}

func TestExecuteAnalogy(t *testing.T) {
	e, s := testExecutor(t)

	t.Run("Solve", func(t *testing.T) {
		// deps : python-dev :: cache : ? where setup sits on the arithmetic
		// target, so it comes back first.
		out := mustRun(t, e, s, `command("deps") is_to job("python-dev") as command("cache") is_to ?`)

		require.NotEmpty(t, out.Matches)
		require.Equal(t, "setup", out.Matches[0].Key.ID)
		require.Equal(t, store.EntityJob, out.Matches[0].Key.Type)
	})

	t.Run("Verify", func(t *testing.T) {
		out := mustRun(t, e, s, `command("deps") is_to job("python-dev") as command("cache") is_to job("setup")`)

		require.Len(t, out.Matches, 1)
		require.Equal(t, "setup", out.Matches[0].Key.ID)
		require.Contains(t, out.Matches[0].Explanation, "verification")
	})
}

func TestExecuteOptimization(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `maximize(outcome_coverage) subject_to(implementation_effort <= 100)`)

	require.Equal(t, OutcomeRecommendations, out.Kind)
	require.NotEmpty(t, out.Recommendations)

	// Highest coverage among features within the effort bound: search (88).
	top := out.Recommendations[0]
	require.Equal(t, "search", top.Key.ID)
	require.Equal(t, 88.0, top.Metrics["outcome_coverage"])
	require.NotContains(t, keysOf(out.Recommendations), "billing")
}

func keysOf(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Key.ID
	}

	return out
}

func TestExecuteOptimizationArithmeticObjective(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `maximize(outcome_coverage - implementation_effort * 0.5)`)

	// export: 70 - 20 = 50 beats auth 35, billing 35, search 38, themes 25.
	require.Equal(t, "export", out.Recommendations[0].Key.ID)
}

func TestExecuteOptimizationNoCandidates(t *testing.T) {
	e, s := testExecutor(t)

	out := mustRun(t, e, s, `maximize(unknown_metric)`)

	require.Empty(t, out.Recommendations)
	require.NotEmpty(t, out.Warning)
}

func TestExecuteAggregates(t *testing.T) {
	e, s := testExecutor(t)

	t.Run("Count", func(t *testing.T) {
		out := mustRun(t, e, s, `count(command("*"))`)

		require.Equal(t, OutcomeScalar, out.Kind)
		require.Equal(t, 4.0, out.Scalar)
		require.Equal(t, "count", out.Aggregate)
	})

	t.Run("Avg", func(t *testing.T) {
		out := mustRun(t, e, s, `avg(feature("*").implementation_effort)`)

		require.InDelta(t, 72.0, out.Scalar, 1e-9)
	})

	t.Run("Max", func(t *testing.T) {
		out := mustRun(t, e, s, `max(feature("*").outcome_coverage)`)

		require.Equal(t, 95.0, out.Scalar)
	})
}

func TestExecuteStrictMissingEntity(t *testing.T) {
	e, s := testExecutor(t)

	_, err := run(t, e, s, `command("missing")`)

	var notFound *store.ErrNotFound

	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.ID)
}

func TestExecuteLenientMissingEntity(t *testing.T) {
	e, s := testExecutor(t, func(o *Options) {
		o.Strict = false
	})

	out := mustRun(t, e, s, `command("missing")`)

	require.Empty(t, out.Matches)
	require.Contains(t, out.Trace[0], "skipped missing")
}

func TestExecuteCancellation(t *testing.T) {
	e, s := testExecutor(t)

	node, err := query.Parse(`similar_to(command("deps"), top_k=3)`)
	require.NoError(t, err)

	plan, err := planner.Compile(node, s.Stats())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Execute(ctx, plan)

	var execErr *ExecutionError

	require.ErrorAs(t, err, &execErr)
	require.Equal(t, KindCancelled, execErr.Kind)
}

func TestExecuteTimeout(t *testing.T) {
	e, s := testExecutor(t)

	node, err := query.Parse(`command("deps")`)
	require.NoError(t, err)

	plan, err := planner.Compile(node, s.Stats())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	time.Sleep(time.Millisecond)

	_, err = e.Execute(ctx, plan)

	var execErr *ExecutionError

	require.ErrorAs(t, err, &execErr)
	require.Equal(t, KindTimeout, execErr.Kind)
}

func TestExecuteParallelMatchesSequential(t *testing.T) {
	sequential, s := testExecutor(t)
	parallel, _ := testExecutor(t, func(o *Options) {
		o.Parallel = true
	})

	queries := []string{
		`command("deps") OR command("lint")`,
		`command("*") AND command("b*")`,
		`command("*") -> job("python-dev")`,
		`similar_to(command("deps"), top_k=3)`,
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			a := mustRun(t, sequential, s, q)
			b := mustRun(t, parallel, s, q)

			require.Equal(t, matchIDs(a), matchIDs(b))
		})
	}
}

func TestFlatIndexAndScanAgree(t *testing.T) {
	withIndex, s := testExecutor(t)
	scanOnly := New(s, nil)

	for _, q := range []string{
		`similar_to(command("deps"), top_k=3)`,
		`command("deps") is_to job("python-dev") as command("cache") is_to ?`,
	} {
		t.Run(q, func(t *testing.T) {
			a := mustRun(t, withIndex, s, q)
			b := mustRun(t, scanOnly, s, q)

			require.Equal(t, matchIDs(a), matchIDs(b))
		})
	}
}
