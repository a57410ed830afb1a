package resultcalc

import "fmt"

// Canonical template field names the derivation rules operate on. Catalog
// templates for the covered tests must use these names verbatim.
const (
	FieldTotalProtein      = "Total Protein"
	FieldAlbumin           = "Albumin"
	FieldGlobulin          = "Globulin"
	FieldAGRatio           = "A/G Ratio"
	FieldTotalCholesterol  = "Total Cholesterol"
	FieldHDLCholesterol    = "HDL Cholesterol"
	FieldTriglycerides     = "Triglycerides"
	FieldLDLCholesterol    = "LDL Cholesterol"
	FieldVLDLCholesterol   = "VLDL Cholesterol"
	FieldNonHDLCholesterol = "Non-HDL Cholesterol"
	FieldTCHDLRatio        = "TC/HDL Ratio"
	FieldLDLHDLRatio       = "LDL/HDL Ratio"
)

// Rule derives one target field from raw entered values. Compute returns
// ok=false when the value is undefined for the inputs (division by zero);
// missing dependencies are screened out before Compute is called.
type Rule struct {
	Target       string
	Dependencies []string
	Compute      func(values map[string]float64) (float64, bool)
}

// RuleSet maps target field name to its rule
type RuleSet map[string]Rule

// ruleGroups is the static registry of derivation rules keyed by test code.
// LTP/LFT and LIPID/LIP are aliases used interchangeably in the catalog.
// Every dependency is a raw entered field, never another rule's target, so
// Recalculate needs exactly one pass; ratio rules that conceptually read a
// derived value (A/G on Globulin, LDL/HDL on LDL) recompute it inline from
// the same raw inputs.
var ruleGroups = map[string]RuleSet{}

func init() {
	liver := buildRuleSet(
		Rule{
			Target:       FieldGlobulin,
			Dependencies: []string{FieldTotalProtein, FieldAlbumin},
			Compute:      computeGlobulin,
		},
		Rule{
			Target:       FieldAGRatio,
			Dependencies: []string{FieldTotalProtein, FieldAlbumin},
			Compute:      computeAGRatio,
		},
	)

	lipid := buildRuleSet(
		Rule{
			Target:       FieldLDLCholesterol,
			Dependencies: []string{FieldTotalCholesterol, FieldHDLCholesterol, FieldTriglycerides},
			Compute:      computeLDL,
		},
		Rule{
			Target:       FieldVLDLCholesterol,
			Dependencies: []string{FieldTriglycerides},
			Compute:      computeVLDL,
		},
		Rule{
			Target:       FieldNonHDLCholesterol,
			Dependencies: []string{FieldTotalCholesterol, FieldHDLCholesterol},
			Compute:      computeNonHDL,
		},
		Rule{
			Target:       FieldTCHDLRatio,
			Dependencies: []string{FieldTotalCholesterol, FieldHDLCholesterol},
			Compute:      computeTCHDLRatio,
		},
		Rule{
			Target:       FieldLDLHDLRatio,
			Dependencies: []string{FieldTotalCholesterol, FieldHDLCholesterol, FieldTriglycerides},
			Compute:      computeLDLHDLRatio,
		},
	)

	ruleGroups["LTP"] = liver
	ruleGroups["LFT"] = liver
	ruleGroups["LIPID"] = lipid
	ruleGroups["LIP"] = lipid
}

// buildRuleSet assembles a RuleSet and enforces the single-pass invariant:
// no rule may depend on another rule's target.
func buildRuleSet(rules ...Rule) RuleSet {
	set := make(RuleSet, len(rules))
	for _, r := range rules {
		set[r.Target] = r
	}
	for _, r := range rules {
		for _, dep := range r.Dependencies {
			if _, chained := set[dep]; chained {
				panic(fmt.Sprintf("resultcalc: rule %q depends on derived field %q", r.Target, dep))
			}
		}
	}
	return set
}

// RulesFor returns the derivation rules applicable to a test code, or an
// empty set for codes with no derived fields.
func RulesFor(testCode string) RuleSet {
	if set, ok := ruleGroups[testCode]; ok {
		return set
	}
	return RuleSet{}
}

// Globulin = Total Protein - Albumin
func computeGlobulin(values map[string]float64) (float64, bool) {
	return values[FieldTotalProtein] - values[FieldAlbumin], true
}

// A/G Ratio = Albumin / Globulin, undefined when Globulin is zero
func computeAGRatio(values map[string]float64) (float64, bool) {
	globulin := values[FieldTotalProtein] - values[FieldAlbumin]
	if globulin == 0 {
		return 0, false
	}
	return values[FieldAlbumin] / globulin, true
}

// LDL = Total Cholesterol - HDL - Triglycerides/5, floored at zero
func computeLDL(values map[string]float64) (float64, bool) {
	ldl := values[FieldTotalCholesterol] - values[FieldHDLCholesterol] - values[FieldTriglycerides]/5
	if ldl < 0 {
		ldl = 0
	}
	return ldl, true
}

// VLDL = Triglycerides / 5, floored at zero
func computeVLDL(values map[string]float64) (float64, bool) {
	vldl := values[FieldTriglycerides] / 5
	if vldl < 0 {
		vldl = 0
	}
	return vldl, true
}

// Non-HDL = Total Cholesterol - HDL, floored at zero
func computeNonHDL(values map[string]float64) (float64, bool) {
	nonHDL := values[FieldTotalCholesterol] - values[FieldHDLCholesterol]
	if nonHDL < 0 {
		nonHDL = 0
	}
	return nonHDL, true
}

// TC/HDL Ratio = Total Cholesterol / HDL, undefined when HDL is zero
func computeTCHDLRatio(values map[string]float64) (float64, bool) {
	hdl := values[FieldHDLCholesterol]
	if hdl == 0 {
		return 0, false
	}
	return values[FieldTotalCholesterol] / hdl, true
}

// LDL/HDL Ratio = derived LDL / HDL, undefined when HDL is zero
func computeLDLHDLRatio(values map[string]float64) (float64, bool) {
	hdl := values[FieldHDLCholesterol]
	if hdl == 0 {
		return 0, false
	}
	ldl, _ := computeLDL(values)
	return ldl / hdl, true
}
