package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/query"
)

// ErrPlanningFailed reports that no index backend satisfies the query's
// requirements. The caller may retry with relaxed exactness or a wider set
// of allowed backends.
type ErrPlanningFailed struct {
	Reason string
	Span   query.Span
}

func (e *ErrPlanningFailed) Error() string {
	return "planning failed: " + e.Reason
}

// searchCost estimates one index probe in abstract scan units.
func searchCost(kind index.Kind, size int) float64 {
	if size < 2 {
		return 1
	}

	n := float64(size)

	switch kind {
	case index.KindFlat:
		return n
	case index.KindIVF:
		return math.Sqrt(n)
	case index.KindHNSW:
		return math.Log2(n)
	default:
		return n
	}
}

func costNotation(t OpType, kind index.Kind) string {
	switch t {
	case OpSimilaritySearch, OpNearest, OpIterativeSearch:
		switch kind {
		case index.KindFlat:
			return "O(n)"
		case index.KindIVF:
			return "O(sqrt n)"
		case index.KindHNSW:
			return "O(log n)"
		}
	case OpLookup:
		return "O(1)"
	}

	return "O(set)"
}

// estimateCost sums per-operation costs. Lookups are hash backed; set
// operations scale with intermediate set size, approximated by the store
// size; search operations depend on the backend.
func estimateCost(ops []VectorOperation, kind index.Kind, size int) float64 {
	var total float64

	for _, op := range ops {
		switch op.Type {
		case OpLookup:
			total++
		case OpSimilaritySearch, OpNearest:
			total += searchCost(kind, size)
		case OpIterativeSearch:
			total += float64(op.Params.MaxIterations) * searchCost(kind, size)
		default:
			total += float64(size) * 0.1
		}
	}

	return total
}

// chooseIndex picks the cheapest allowed backend satisfying the plan's
// exactness requirement. Exact plans must use the flat backend.
func chooseIndex(size int, exact bool, allowed []index.Kind) (index.Kind, error) {
	preferred := index.Select(size, exact)

	if len(allowed) == 0 {
		return preferred, nil
	}

	permitted := func(k index.Kind) bool {
		for _, a := range allowed {
			if a == k {
				return true
			}
		}

		return false
	}

	if exact {
		if !permitted(index.KindFlat) {
			return 0, &ErrPlanningFailed{
				Reason: "query requires exact results but the flat backend is not permitted",
			}
		}

		return index.KindFlat, nil
	}

	if permitted(preferred) {
		return preferred, nil
	}

	// Fall back to the cheapest permitted backend.
	best := index.Kind(0)
	bestCost := math.Inf(1)
	found := false

	for _, k := range []index.Kind{index.KindHNSW, index.KindIVF, index.KindFlat} {
		if !permitted(k) {
			continue
		}

		if c := searchCost(k, size); c < bestCost {
			best, bestCost, found = k, c, true
		}
	}

	if !found {
		names := make([]string, len(allowed))
		for i, k := range allowed {
			names[i] = k.String()
		}

		return 0, &ErrPlanningFailed{
			Reason: fmt.Sprintf("no permitted index backend among [%s]", strings.Join(names, ", ")),
		}
	}

	return best, nil
}
