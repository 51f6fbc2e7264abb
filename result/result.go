// Package result shapes executor outcomes into the typed results returned
// to callers: ranked matches, recommendations with trade-off analysis, and
// aggregate values, each with explanations and timing.
package result

import (
	"time"

	"github.com/hyperdim/hdql/executor"
)

// QueryResult is the closed set of result shapes.
type QueryResult interface {
	// Kind names the result shape.
	Kind() string
	queryResult()
}

// Match is one ranked entity.
type Match struct {
	Type        string  `json:"type" yaml:"type"`
	ID          string  `json:"id" yaml:"id"`
	Distance    float32 `json:"distance" yaml:"distance"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Explanation string  `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// VectorQueryResult is a ranked entity match set.
type VectorQueryResult struct {
	Matches     []Match   `json:"matches" yaml:"matches"`
	Confidences []float64 `json:"confidences" yaml:"confidences"`
	// Values holds projected attribute values aligned with Matches, for
	// queries ending in an attribute access.
	Values   []float64     `json:"values,omitempty" yaml:"values,omitempty"`
	Warning  string        `json:"warning,omitempty" yaml:"warning,omitempty"`
	Trace    []string      `json:"trace,omitempty" yaml:"trace,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func (*VectorQueryResult) Kind() string { return "matches" }
func (*VectorQueryResult) queryResult() {}

// Recommendation is one scored optimization candidate.
type Recommendation struct {
	Type        string             `json:"type" yaml:"type"`
	ID          string             `json:"id" yaml:"id"`
	Score       float64            `json:"score" yaml:"score"`
	Metrics     map[string]float64 `json:"metrics" yaml:"metrics"`
	Explanation string             `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// TradeOffAnalysis summarizes the score/effort frontier of a recommendation
// ranking.
type TradeOffAnalysis struct {
	// EffortMetric names the metric treated as cost, when one is present.
	EffortMetric string `json:"effort_metric,omitempty" yaml:"effort_metric,omitempty"`
	// ParetoFrontier lists the identifiers no other candidate dominates,
	// in rank order.
	ParetoFrontier []string `json:"pareto_frontier" yaml:"pareto_frontier"`
	// Dominated lists identifiers beaten on both score and effort.
	Dominated []string `json:"dominated,omitempty" yaml:"dominated,omitempty"`
}

// RecommendationResult is a ranked candidate list from an optimization
// query.
type RecommendationResult struct {
	Ranked    []Recommendation `json:"ranked" yaml:"ranked"`
	TradeOffs TradeOffAnalysis `json:"trade_offs" yaml:"trade_offs"`
	Warning   string           `json:"warning,omitempty" yaml:"warning,omitempty"`
	Trace     []string         `json:"trace,omitempty" yaml:"trace,omitempty"`
	Duration  time.Duration    `json:"duration" yaml:"duration"`
}

func (*RecommendationResult) Kind() string { return "recommendations" }
func (*RecommendationResult) queryResult() {}

// AggregateResult is a single reduced value.
type AggregateResult struct {
	Name     string        `json:"name" yaml:"name"`
	Value    float64       `json:"value" yaml:"value"`
	Warning  string        `json:"warning,omitempty" yaml:"warning,omitempty"`
	Trace    []string      `json:"trace,omitempty" yaml:"trace,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func (*AggregateResult) Kind() string { return "aggregate" }
func (*AggregateResult) queryResult() {}

// AnalysisResult summarizes metric coverage when an optimization query
// converges poorly: which metrics lag and which candidates remain
// attractive.
type AnalysisResult struct {
	// Metrics holds the mean observed value per metric.
	Metrics map[string]float64 `json:"metrics" yaml:"metrics"`
	// Gaps names metrics whose mean falls well below their best value,
	// meaning coverage is concentrated in few candidates.
	Gaps []string `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	// Opportunities names Pareto-optimal candidates outside the top rank.
	Opportunities []string      `json:"opportunities,omitempty" yaml:"opportunities,omitempty"`
	Warning       string        `json:"warning,omitempty" yaml:"warning,omitempty"`
	Trace         []string      `json:"trace,omitempty" yaml:"trace,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

func (*AnalysisResult) Kind() string { return "analysis" }
func (*AnalysisResult) queryResult() {}

// Build shapes an executor outcome into the caller-facing result. It never
// mutates the outcome.
func Build(out *executor.Outcome, elapsed time.Duration) QueryResult {
	switch out.Kind {
	case executor.OutcomeScalar:
		return &AggregateResult{
			Name:     out.Aggregate,
			Value:    out.Scalar,
			Warning:  out.Warning,
			Trace:    out.Trace,
			Duration: elapsed,
		}

	case executor.OutcomeRecommendations:
		ranked := make([]Recommendation, len(out.Recommendations))
		for i, r := range out.Recommendations {
			ranked[i] = Recommendation{
				Type:        r.Key.Type.String(),
				ID:          r.Key.ID,
				Score:       r.Score,
				Metrics:     r.Metrics,
				Explanation: r.Explanation,
			}
		}

		return &RecommendationResult{
			Ranked:    ranked,
			TradeOffs: analyzeTradeOffs(ranked),
			Warning:   out.Warning,
			Trace:     out.Trace,
			Duration:  elapsed,
		}

	default:
		matches := make([]Match, len(out.Matches))
		confidences := make([]float64, len(out.Matches))

		for i, m := range out.Matches {
			confidence := 1 - float64(m.Distance)
			if confidence < 0 {
				confidence = 0
			} else if confidence > 1 {
				confidence = 1
			}

			matches[i] = Match{
				Type:        m.Key.Type.String(),
				ID:          m.Key.ID,
				Distance:    m.Distance,
				Confidence:  confidence,
				Explanation: m.Explanation,
			}
			confidences[i] = confidence
		}

		return &VectorQueryResult{
			Matches:     matches,
			Confidences: confidences,
			Values:      out.Values,
			Warning:     out.Warning,
			Trace:       out.Trace,
			Duration:    elapsed,
		}
	}
}
