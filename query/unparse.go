package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Unparse renders an AST back to canonical query text. Parsing the result
// yields a semantically identical AST.
func Unparse(node Node) string {
	var sb strings.Builder

	unparse(&sb, node)

	return sb.String()
}

func unparse(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *AtomicNode:
		fmt.Fprintf(sb, "%s(%q)", n.EntityType, n.Pattern)

	case *RelationalNode:
		unparse(sb, n.Left)
		sb.WriteString(" -> ")
		unparse(sb, n.Right)

	case *LogicalNode:
		if n.Op == OpNot {
			sb.WriteString("NOT ")
			unparse(sb, n.Operands[0])

			return
		}

		sb.WriteString("(")

		for i, operand := range n.Operands {
			if i > 0 {
				fmt.Fprintf(sb, " %s ", n.Op)
			}

			unparse(sb, operand)
		}

		sb.WriteString(")")

	case *ComparisonNode:
		unparse(sb, n.Left)
		fmt.Fprintf(sb, " %s ", n.Op)
		unparse(sb, n.Right)

	case *SimilarityNode:
		sb.WriteString("similar_to(")
		unparse(sb, n.Reference)

		keys := make([]string, 0, len(n.Params))
		for key := range n.Params {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			fmt.Fprintf(sb, ", %s=%s", key, formatLiteral(n.Params[key]))
		}

		sb.WriteString(")")

	case *AnalogyNode:
		unparse(sb, n.A)
		sb.WriteString(" is_to ")
		unparse(sb, n.B)
		sb.WriteString(" as ")
		unparse(sb, n.C)
		sb.WriteString(" is_to ")

		if n.Target == nil {
			sb.WriteString("?")
		} else {
			unparse(sb, n.Target)
		}

	case *OptimizationNode:
		fmt.Fprintf(sb, "%s(", n.Direction)
		unparse(sb, n.Objective)
		sb.WriteString(")")

		if len(n.Constraints) > 0 {
			sb.WriteString(" subject_to(")

			for i, constraint := range n.Constraints {
				if i > 0 {
					sb.WriteString(", ")
				}

				unparse(sb, constraint)
			}

			sb.WriteString(")")
		}

	case *AttributeNode:
		unparse(sb, n.Base)
		sb.WriteString(".")
		sb.WriteString(n.Name)

	case *AggregateNode:
		sb.WriteString(n.Name)
		sb.WriteString("(")

		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}

			unparse(sb, arg)
		}

		sb.WriteString(")")

	case *BinaryOpNode:
		// Parenthesized so the tree shape survives reparsing regardless
		// of operator precedence.
		sb.WriteString("(")
		unparse(sb, n.Left)
		fmt.Fprintf(sb, " %s ", n.Op)
		unparse(sb, n.Right)
		sb.WriteString(")")

	case *IdentifierNode:
		sb.WriteString(n.Name)

	case *LiteralNode:
		sb.WriteString(formatLiteral(n.Value))
	}
}

func formatLiteral(v LiteralValue) string {
	switch v.Kind {
	case LiteralString:
		return strconv.Quote(v.Str)
	case LiteralInt:
		return strconv.FormatInt(v.Int, 10)
	case LiteralFloat:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}

		return s
	case LiteralBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}
