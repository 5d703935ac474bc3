package snowflake

import (
	"strings"

	"github.com/samber/lo"
)

// ParseClusteringKey extracts the column names referenced by a clustering key
// expression, e.g. LINEAR(to_date(c1), substring(c2, 0, 10)) gives [c1 c2].
// Function calls are unwrapped to their first argument and variant paths or
// casts (v:'Data':id::number) are reduced to the root column.
func ParseClusteringKey(expr string) []string {
	expr = strings.TrimSpace(expr)
	if inner, ok := callArguments(expr); ok && strings.EqualFold(functionName(expr), "linear") {
		expr = inner
	}

	var columns []string
	for _, arg := range splitArguments(expr) {
		if column := columnName(arg); column != "" {
			columns = append(columns, column)
		}
	}
	return lo.Uniq(columns)
}

func columnName(arg string) string {
	arg = strings.TrimSpace(arg)
	for {
		inner, ok := callArguments(arg)
		if !ok {
			break
		}
		args := splitArguments(inner)
		if len(args) == 0 {
			return ""
		}
		arg = strings.TrimSpace(args[0])
	}

	if i := strings.IndexByte(arg, ':'); i >= 0 {
		arg = arg[:i]
	}
	return strings.Trim(strings.TrimSpace(arg), `"`)
}

func functionName(expr string) string {
	i := strings.IndexByte(expr, '(')
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(expr[:i])
}

// callArguments returns what is between the outer parentheses of fn(...).
func callArguments(expr string) (string, bool) {
	i := strings.IndexByte(expr, '(')
	if i < 0 || !strings.HasSuffix(expr, ")") {
		return "", false
	}
	return expr[i+1 : len(expr)-1], true
}

// splitArguments splits on commas that are neither nested in parentheses nor quoted.
func splitArguments(expr string) []string {
	var (
		args   []string
		depth  int
		quoted bool
		start  int
	)
	for i, r := range expr {
		switch {
		case r == '\'':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			args = append(args, expr[start:i])
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(expr[start:]); rest != "" {
		args = append(args, expr[start:])
	}
	return args
}
