package resultcalc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Recalculate computes every derivable target for the current raw inputs.
// Raw values arrive as the user typed them; entries that do not parse as
// numbers are treated as absent, not as zero, and any rule missing a
// dependency is simply skipped this pass. The function is pure: callers
// re-invoke it on every edit event.
func Recalculate(raw map[string]string, rules RuleSet) map[string]float64 {
	values := make(map[string]float64, len(raw))
	for name, text := range raw {
		if v, ok := parseNumber(text); ok {
			values[name] = v
		}
	}
	return recalculate(values, rules)
}

// RecalculateEntered is Recalculate for already-typed result values (the
// persisted form of a result set), used when a save re-derives fields
// server-side.
func RecalculateEntered(entered map[string]interface{}, rules RuleSet) map[string]float64 {
	values := make(map[string]float64, len(entered))
	for name, v := range entered {
		if f, ok := coerceNumber(v); ok {
			values[name] = f
		}
	}
	return recalculate(values, rules)
}

func recalculate(values map[string]float64, rules RuleSet) map[string]float64 {
	derived := make(map[string]float64)
	for target, rule := range rules {
		if !hasAll(values, rule.Dependencies) {
			continue
		}
		if v, ok := rule.Compute(values); ok {
			derived[target] = v
		}
	}
	return derived
}

func hasAll(values map[string]float64, names []string) bool {
	for _, name := range names {
		if _, ok := values[name]; !ok {
			return false
		}
	}
	return true
}

func parseNumber(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func coerceNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return parseNumber(n)
	default:
		return 0, false
	}
}

// FormatValue renders a derived value for display. Derived fields show two
// decimals unless the template asks for more.
func FormatValue(v float64, decimals int) string {
	if decimals <= 0 {
		decimals = 2
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// IsChild applies the pediatric cutoff used by age-conditioned reference
// ranges.
func IsChild(age int) bool {
	return age < 18
}
