package result

import (
	"sort"
	"strings"
)

// effortMetric picks the metric treated as cost when ranking trade-offs.
// Anything named like effort or cost qualifies; the first such metric wins.
func effortMetric(ranked []Recommendation) string {
	if len(ranked) == 0 {
		return ""
	}

	names := make([]string, 0, len(ranked[0].Metrics))
	for name := range ranked[0].Metrics {
		names = append(names, name)
	}

	// Deterministic pick across map iteration orders.
	best := ""
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, "effort") && !strings.Contains(lower, "cost") {
			continue
		}
		if best == "" || name < best {
			best = name
		}
	}

	return best
}

// analyzeTradeOffs splits a ranking into the Pareto frontier and the
// dominated remainder. Score is maximized and the effort metric, when one
// exists, is minimized. Without an effort metric the ranking is one
// dimensional and only the top score is non-dominated.
func analyzeTradeOffs(ranked []Recommendation) TradeOffAnalysis {
	analysis := TradeOffAnalysis{
		ParetoFrontier: []string{},
		EffortMetric:   effortMetric(ranked),
	}
	if len(ranked) == 0 {
		return analysis
	}

	for i, candidate := range ranked {
		if dominated(ranked, i, analysis.EffortMetric) {
			analysis.Dominated = append(analysis.Dominated, candidate.ID)
		} else {
			analysis.ParetoFrontier = append(analysis.ParetoFrontier, candidate.ID)
		}
	}

	return analysis
}

func dominated(ranked []Recommendation, i int, effort string) bool {
	ci := ranked[i]
	for j, cj := range ranked {
		if j == i {
			continue
		}

		if effort == "" {
			if cj.Score > ci.Score {
				return true
			}
			continue
		}

		scoreGE := cj.Score >= ci.Score
		effortLE := cj.Metrics[effort] <= ci.Metrics[effort]
		strict := cj.Score > ci.Score || cj.Metrics[effort] < ci.Metrics[effort]
		if scoreGE && effortLE && strict {
			return true
		}
	}

	return false
}

// Analyze turns a recommendation result into a coverage summary. A metric
// counts as a gap when its mean sits below half its best observed value.
// Opportunities are frontier candidates that did not win the top rank.
func Analyze(rec *RecommendationResult) *AnalysisResult {
	analysis := &AnalysisResult{
		Metrics:  map[string]float64{},
		Warning:  rec.Warning,
		Trace:    rec.Trace,
		Duration: rec.Duration,
	}
	if len(rec.Ranked) == 0 {
		return analysis
	}

	maxima := map[string]float64{}
	counts := map[string]int{}
	for _, r := range rec.Ranked {
		for name, v := range r.Metrics {
			analysis.Metrics[name] += v
			counts[name]++
			if counts[name] == 1 || v > maxima[name] {
				maxima[name] = v
			}
		}
	}

	names := make([]string, 0, len(analysis.Metrics))
	for name := range analysis.Metrics {
		names = append(names, name)
		analysis.Metrics[name] /= float64(counts[name])
	}
	sort.Strings(names)

	for _, name := range names {
		if maxima[name] > 0 && analysis.Metrics[name] < maxima[name]/2 {
			analysis.Gaps = append(analysis.Gaps, name)
		}
	}

	top := rec.Ranked[0].ID
	for _, id := range rec.TradeOffs.ParetoFrontier {
		if id != top {
			analysis.Opportunities = append(analysis.Opportunities, id)
		}
	}

	return analysis
}
