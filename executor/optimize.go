package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperdim/hdql/planner"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
)

// convergenceStreak is how many consecutive iterations the leading candidate
// must stay unchanged before the search stops early.
const convergenceStreak = 2

type scoredCandidate struct {
	entity *store.EntityVector
	score  float64
}

// execIterativeSearch scores candidate entities against a weighted objective
// under constraints, rescoring a shrinking top band until the leader
// stabilizes or the iteration bound is reached.
func (e *Executor) execIterativeSearch(ctx context.Context, op planner.VectorOperation) (value, string, error) {
	p := op.Params

	metrics := objectiveMetrics(p.Objective)
	if len(metrics) == 0 {
		out := value{recs: []Recommendation{}, warning: "objective names no metrics"}

		return out, fmt.Sprintf("%s: optimization skipped, objective names no metrics", op.Output), nil
	}

	candidates := e.optimizationCandidates(metrics)
	if len(candidates) == 0 {
		out := value{recs: []Recommendation{}, warning: fmt.Sprintf("no entities carry the objective metrics %v", metrics)}

		return out, fmt.Sprintf("%s: optimization found no candidates", op.Output), nil
	}

	var (
		scored    []scoredCandidate
		skipped   int
		leader    store.Key
		streak    int
		converged bool
		iters     int
	)

	// The first iteration scores the full candidate set; later iterations
	// rescore only the current top band until the leader stabilizes.
	pool := candidates

	for iter := 0; iter < p.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return value{}, "", ctxError(err, op.Output)
		}

		iters++
		scored = scored[:0]

		for _, ev := range pool {
			ok, err := satisfiesConstraints(ev, p.Constraints)
			if err != nil || !ok {
				if iter == 0 {
					skipped++
				}

				continue
			}

			score, err := evalNumeric(p.Objective, ev.Attributes)
			if err != nil {
				if iter == 0 {
					skipped++
				}

				continue
			}

			scored = append(scored, scoredCandidate{entity: ev, score: score})
		}

		if len(scored) == 0 {
			break
		}

		sortScored(scored, p.Direction)

		top := scored[0].entity.Key()
		if top == leader {
			streak++
		} else {
			leader, streak = top, 0
		}

		if streak >= convergenceStreak {
			converged = true

			break
		}

		band := min(len(scored), max(p.TopK, convergenceStreak+1))

		pool = pool[:0:0]
		for _, sc := range scored[:band] {
			pool = append(pool, sc.entity)
		}
	}

	out := value{}

	if len(scored) == 0 {
		out.recs = []Recommendation{}
		out.warning = "no candidates satisfy the constraints"

		return out, fmt.Sprintf("%s: optimization scored 0 of %d candidates", op.Output, len(candidates)), nil
	}

	limit := min(p.TopK, len(scored))

	recs := make([]Recommendation, 0, limit)

	for _, sc := range scored[:limit] {
		vals := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			vals[m] = sc.entity.Attribute(m)
		}

		recs = append(recs, Recommendation{
			Key:     sc.entity.Key(),
			Score:   sc.score,
			Metrics: vals,
			Explanation: fmt.Sprintf("%s objective scored %.3f over %d candidates",
				p.Direction, sc.score, len(candidates)),
		})
	}

	out.recs = recs

	if !converged && iters >= p.MaxIterations && iters > 1 {
		out.warning = fmt.Sprintf("objective did not converge within %d iterations", p.MaxIterations)
	}

	line := fmt.Sprintf("%s: %s scored %d candidates (%d skipped) in %d iterations, top %s",
		op.Output, p.Direction, len(scored), skipped, iters, leader)

	return out, line, nil
}

// optimizationCandidates returns every entity carrying all objective
// metrics, in ordinal order for determinism.
func (e *Executor) optimizationCandidates(metrics []string) []*store.EntityVector {
	var out []*store.EntityVector

	for ord := uint32(0); int(ord) < e.store.Len(); ord++ {
		ev, ok := e.store.ByOrdinal(ord)
		if !ok {
			continue
		}

		hasAll := true

		for _, m := range metrics {
			if _, ok := ev.Attributes[m]; !ok {
				hasAll = false

				break
			}
		}

		if hasAll {
			out = append(out, ev)
		}
	}

	return out
}

func sortScored(scored []scoredCandidate, direction query.OptimizeDirection) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			if direction == query.Minimize {
				return a.score < b.score
			}

			return a.score > b.score
		}

		return a.entity.Identifier < b.entity.Identifier
	})
}

// objectiveMetrics collects the metric names an objective expression reads.
func objectiveMetrics(node query.Node) []string {
	seen := make(map[string]bool)

	var names []string

	var collect func(n query.Node)
	collect = func(n query.Node) {
		switch t := n.(type) {
		case *query.IdentifierNode:
			if !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		case *query.AttributeNode:
			if !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		case *query.BinaryOpNode:
			collect(t.Left)
			collect(t.Right)
		}
	}

	collect(node)

	return names
}

func satisfiesConstraints(ev *store.EntityVector, constraints []query.Node) (bool, error) {
	for _, c := range constraints {
		ok, err := evalConstraint(c, ev.Attributes)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func evalConstraint(node query.Node, attrs map[string]float64) (bool, error) {
	switch n := node.(type) {
	case *query.ComparisonNode:
		left, err := evalNumeric(n.Left, attrs)
		if err != nil {
			return false, err
		}

		right, err := evalNumeric(n.Right, attrs)
		if err != nil {
			return false, err
		}

		return compareValues(left, n.Op, right), nil

	case *query.LogicalNode:
		switch n.Op {
		case query.OpNot:
			ok, err := evalConstraint(n.Operands[0], attrs)
			if err != nil {
				return false, err
			}

			return !ok, nil
		case query.OpAnd, query.OpOr:
			for _, operand := range n.Operands {
				ok, err := evalConstraint(operand, attrs)
				if err != nil {
					return false, err
				}

				if n.Op == query.OpAnd && !ok {
					return false, nil
				}

				if n.Op == query.OpOr && ok {
					return true, nil
				}
			}

			return n.Op == query.OpAnd, nil
		}
	}

	return false, fmt.Errorf("unsupported constraint expression %T", node)
}

// evalNumeric evaluates a numeric objective or constraint term over an
// entity's attributes.
func evalNumeric(node query.Node, attrs map[string]float64) (float64, error) {
	switch n := node.(type) {
	case *query.IdentifierNode:
		v, ok := attrs[n.Name]
		if !ok {
			return 0, fmt.Errorf("attribute %q absent", n.Name)
		}

		return v, nil

	case *query.AttributeNode:
		v, ok := attrs[n.Name]
		if !ok {
			return 0, fmt.Errorf("attribute %q absent", n.Name)
		}

		return v, nil

	case *query.LiteralNode:
		v, ok := n.Value.AsFloat()
		if !ok {
			return 0, fmt.Errorf("non-numeric literal in numeric context")
		}

		return v, nil

	case *query.BinaryOpNode:
		left, err := evalNumeric(n.Left, attrs)
		if err != nil {
			return 0, err
		}

		right, err := evalNumeric(n.Right, attrs)
		if err != nil {
			return 0, err
		}

		switch n.Op {
		case query.ArithAdd:
			return left + right, nil
		case query.ArithSub:
			return left - right, nil
		case query.ArithMul:
			return left * right, nil
		case query.ArithDiv:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}

			return left / right, nil
		}
	}

	return 0, fmt.Errorf("unsupported numeric expression %T", node)
}
