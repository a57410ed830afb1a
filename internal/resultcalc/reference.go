package resultcalc

import (
	"strconv"
	"strings"

	"github.com/Anandhalagan/LIMS/pkg/types"
)

// NoReference is the display text for fields without a usable reference
const NoReference = "N/A"

// Status classifies an entered value against its reference range
type Status string

const (
	StatusNormal       Status = "normal"
	StatusAbnormal     Status = "abnormal"
	StatusUnclassified Status = "unclassified"
)

// Classification carries a display value plus its range status. Presentation
// decides how to color it; StatusUnclassified means no emphasis at all.
type Classification struct {
	Display string `json:"display"`
	Status  Status `json:"status"`
}

// ResolveReferenceRange reduces a field's reference specification to one
// display string for the given subject. Structured references resolve the
// sex key first (falling back to "default"), then apply the matching
// age_based override when one exists.
func ResolveReferenceRange(ref types.Reference, sex string, isChild bool) string {
	if !ref.IsStructured() {
		if strings.TrimSpace(ref.Text) == "" {
			return NoReference
		}
		return ref.Text
	}

	var resolved string
	switch strings.ToLower(sex) {
	case "male":
		resolved = ref.Male
	case "female":
		resolved = ref.Female
	}
	if resolved == "" {
		resolved = ref.Default
	}

	if ab := ref.AgeBased; ab != nil {
		if isChild && ab.Child != "" {
			resolved = ab.Child
		} else if !isChild && ab.Adult != "" {
			resolved = ab.Adult
		}
	}

	if resolved == "" {
		return NoReference
	}
	return resolved
}

// Classify evaluates an entered value against a resolved reference range
// string. Three syntaxes are recognized, in order: "low-high", "<threshold"
// and ">threshold". Anything else, including non-numeric values, yields
// StatusUnclassified: malformed catalog data must never block result entry
// or report rendering.
func Classify(value, rangeText string) Classification {
	out := Classification{Display: value, Status: StatusUnclassified}

	rangeClean := strings.TrimSpace(rangeText)
	valueClean := strings.TrimSpace(value)
	if rangeClean == "" || rangeClean == NoReference || valueClean == "" {
		return out
	}

	val, err := strconv.ParseFloat(valueClean, 64)
	if err != nil {
		return out
	}

	switch {
	case strings.Contains(rangeClean, "-"):
		parts := strings.SplitN(rangeClean, "-", 2)
		low, lowErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		high, highErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if lowErr != nil || highErr != nil {
			return out
		}
		if val < low || val > high {
			out.Status = StatusAbnormal
		} else {
			out.Status = StatusNormal
		}

	case strings.HasPrefix(rangeClean, "<"):
		threshold, err := strconv.ParseFloat(strings.TrimSpace(rangeClean[1:]), 64)
		if err != nil {
			return out
		}
		if val >= threshold {
			out.Status = StatusAbnormal
		} else {
			out.Status = StatusNormal
		}

	case strings.HasPrefix(rangeClean, ">"):
		threshold, err := strconv.ParseFloat(strings.TrimSpace(rangeClean[1:]), 64)
		if err != nil {
			return out
		}
		if val <= threshold {
			out.Status = StatusAbnormal
		} else {
			out.Status = StatusNormal
		}
	}

	return out
}
