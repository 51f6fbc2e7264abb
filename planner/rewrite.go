package planner

// maxRewritePasses bounds the fixed-point iteration over rewrite rules.
const maxRewritePasses = 10

// rewrite applies the rule set until no rule fires or the pass bound is
// reached. Rules preserve semantics: they drop no-op searches, merge
// adjacent filters, and move cheap filters ahead of expensive searches.
func rewrite(ops []VectorOperation, output string) ([]VectorOperation, string) {
	for pass := 0; pass < maxRewritePasses; pass++ {
		changed := false

		for _, rule := range rewriteRules {
			ops, output, changed = rule(ops, output)
			if changed {
				break
			}
		}

		if !changed {
			return ops, output
		}
	}

	return ops, output
}

type rewriteRule func(ops []VectorOperation, output string) ([]VectorOperation, string, bool)

var rewriteRules = []rewriteRule{
	dropNoopSimilarity,
	mergeFilters,
	pushFilterBeforeSearch,
	exactLookupShortCircuit,
}

func producerOf(ops []VectorOperation, name string) (int, bool) {
	for i, op := range ops {
		if op.Output == name {
			return i, true
		}
	}

	return 0, false
}

// remap rewrites every reference to the name `from` into `to`.
func remap(ops []VectorOperation, output, from, to string) ([]VectorOperation, string) {
	for i := range ops {
		for j, input := range ops[i].Inputs {
			if input == from {
				ops[i].Inputs[j] = to
			}
		}
	}

	if output == from {
		output = to
	}

	return ops, output
}

func removeOp(ops []VectorOperation, at int) []VectorOperation {
	out := make([]VectorOperation, 0, len(ops)-1)
	out = append(out, ops[:at]...)

	return append(out, ops[at+1:]...)
}

// dropNoopSimilarity removes similarity searches whose distance bound covers
// the whole normalized range: every candidate passes, so the search is the
// identity on its reference set.
func dropNoopSimilarity(ops []VectorOperation, output string) ([]VectorOperation, string, bool) {
	for i, op := range ops {
		if op.Type != OpSimilaritySearch || op.Params.TopK > 0 {
			continue
		}

		if !op.Params.HasMaxDist || op.Params.MaxDistance < 1.0 {
			continue
		}

		from := op.Output
		to := op.Inputs[0]
		ops = removeOp(ops, i)
		ops, output = remap(ops, output, from, to)

		return ops, output, true
	}

	return ops, output, false
}

// mergeFilters collapses a filter feeding directly into another filter into
// a single operation carrying the conjunction of both condition lists.
func mergeFilters(ops []VectorOperation, output string) ([]VectorOperation, string, bool) {
	for i, op := range ops {
		if op.Type != OpFilter {
			continue
		}

		j, ok := producerOf(ops, op.Inputs[0])
		if !ok || ops[j].Type != OpFilter {
			continue
		}

		merged := append(append([]FilterCondition(nil), ops[j].Params.Conditions...), op.Params.Conditions...)
		ops[j].Params.Conditions = merged

		from := op.Output
		to := ops[j].Output
		ops = removeOp(ops, i)
		ops, output = remap(ops, output, from, to)

		return ops, output, true
	}

	return ops, output, false
}

// pushFilterBeforeSearch moves an attribute filter ahead of a
// threshold-bounded similarity search so the search scans fewer candidates.
// Top-k searches are left alone: reordering would change which k survive.
func pushFilterBeforeSearch(ops []VectorOperation, output string) ([]VectorOperation, string, bool) {
	for i, op := range ops {
		if op.Type != OpFilter {
			continue
		}

		j, ok := producerOf(ops, op.Inputs[0])
		if !ok {
			continue
		}

		// Only candidate-set searches commute with the filter; reference-only
		// searches scan the index, where the filter has nothing to narrow.
		search := ops[j]
		if search.Type != OpSimilaritySearch || search.Params.TopK > 0 || len(search.Inputs) < 2 {
			continue
		}

		// The search's first input is its candidate set; filtering it first
		// is equivalent because the search only ever narrows that set.
		candidates := search.Inputs[0]

		filter := ops[i]
		filter.Inputs = []string{candidates}

		searchOp := search
		searchOp.Inputs = append([]string(nil), search.Inputs...)
		searchOp.Inputs[0] = filter.Output

		rebuilt := make([]VectorOperation, 0, len(ops))

		for k, o := range ops {
			switch k {
			case j:
				rebuilt = append(rebuilt, filter, searchOp)
			case i:
				// Dropped from its old position.
			default:
				rebuilt = append(rebuilt, o)
			}
		}

		rebuilt, output = remap(rebuilt, output, filter.Output, searchOp.Output)

		// remap also rewrote the search's own input; restore it.
		if idx, ok := producerOf(rebuilt, searchOp.Output); ok {
			rebuilt[idx].Inputs[0] = filter.Output
		}

		return rebuilt, output, true
	}

	return ops, output, false
}

// exactLookupShortCircuit replaces a zero-distance similarity search over an
// exact reference with the reference lookup itself: only an identical vector
// can sit at distance zero, so the hash-backed lookup already answers it.
func exactLookupShortCircuit(ops []VectorOperation, output string) ([]VectorOperation, string, bool) {
	for i, op := range ops {
		if op.Type != OpSimilaritySearch || len(op.Inputs) != 1 {
			continue
		}

		if !op.Params.HasMaxDist || op.Params.MaxDistance != 0 || op.Params.ExcludeInputs {
			continue
		}

		j, ok := producerOf(ops, op.Inputs[0])
		if !ok || ops[j].Type != OpLookup || !ops[j].Params.Exact {
			continue
		}

		from := op.Output
		to := ops[j].Output
		ops = removeOp(ops, i)
		ops, output = remap(ops, output, from, to)

		return ops, output, true
	}

	return ops, output, false
}
