package result

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat resolves a format name. The empty string means table.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", name)
	}
}

// Encode writes a result to w in the given format.
func Encode(w io.Writer, r QueryResult, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	case FormatTable:
		return encodeTable(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func encodeTable(w io.Writer, r QueryResult) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	switch v := r.(type) {
	case *VectorQueryResult:
		fmt.Fprintln(tw, "TYPE\tID\tDISTANCE\tCONFIDENCE\tEXPLANATION")
		for _, m := range v.Matches {
			fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.2f\t%s\n",
				m.Type, m.ID, m.Distance, m.Confidence, m.Explanation)
		}
		writeWarning(tw, v.Warning)

	case *RecommendationResult:
		fmt.Fprintln(tw, "RANK\tID\tSCORE\tMETRICS\tEXPLANATION")
		for i, rec := range v.Ranked {
			fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%s\n",
				i+1, rec.ID, rec.Score, formatMetrics(rec.Metrics), rec.Explanation)
		}
		if len(v.TradeOffs.ParetoFrontier) > 0 {
			fmt.Fprintf(tw, "frontier: %s\n", strings.Join(v.TradeOffs.ParetoFrontier, ", "))
		}
		writeWarning(tw, v.Warning)

	case *AggregateResult:
		fmt.Fprintf(tw, "%s\t%g\n", v.Name, v.Value)
		writeWarning(tw, v.Warning)

	case *AnalysisResult:
		fmt.Fprintln(tw, "METRIC\tMEAN")
		names := make([]string, 0, len(v.Metrics))
		for name := range v.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%.3f\n", name, v.Metrics[name])
		}
		if len(v.Gaps) > 0 {
			fmt.Fprintf(tw, "gaps: %s\n", strings.Join(v.Gaps, ", "))
		}
		if len(v.Opportunities) > 0 {
			fmt.Fprintf(tw, "opportunities: %s\n", strings.Join(v.Opportunities, ", "))
		}
		writeWarning(tw, v.Warning)

	default:
		return fmt.Errorf("unknown result kind %q", r.Kind())
	}

	return tw.Flush()
}

func writeWarning(w io.Writer, warning string) {
	if warning != "" {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func formatMetrics(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, metrics[name])
	}
	return strings.Join(parts, " ")
}
