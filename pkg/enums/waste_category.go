package enums

import (
	"fmt"
	"strings"
)

// WasteCategory classifies the material collected in a pickup.
type WasteCategory string

const (
	WasteCategoryPlastic WasteCategory = "PLASTIC"
	WasteCategoryPaper   WasteCategory = "PAPER"
	WasteCategoryMetal   WasteCategory = "METAL"
	WasteCategoryGlass   WasteCategory = "GLASS"
	WasteCategoryOrganic WasteCategory = "ORGANIC"
	WasteCategoryEWaste  WasteCategory = "E-WASTE"
	WasteCategoryDry     WasteCategory = "DRY"
	WasteCategoryOther   WasteCategory = "OTHER"
)

var validWasteCategories = []WasteCategory{
	WasteCategoryPlastic,
	WasteCategoryPaper,
	WasteCategoryMetal,
	WasteCategoryGlass,
	WasteCategoryOrganic,
	WasteCategoryEWaste,
	WasteCategoryDry,
	WasteCategoryOther,
}

var wasteCategoryAliases = map[string]WasteCategory{
	"EWASTE":  WasteCategoryEWaste,
	"E_WASTE": WasteCategoryEWaste,
	"E WASTE": WasteCategoryEWaste,
	"GREEN":   WasteCategoryOrganic,
	"CLOTHES": WasteCategoryOther,
}

// WasteCategories returns the canonical categories in display order.
func WasteCategories() []WasteCategory {
	out := make([]WasteCategory, len(validWasteCategories))
	copy(out, validWasteCategories)
	return out
}

// String implements fmt.Stringer.
func (c WasteCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a canonical WasteCategory.
func (c WasteCategory) IsValid() bool {
	for _, candidate := range validWasteCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseWasteCategory converts raw input into a canonical WasteCategory,
// accepting known aliases. Unknown labels are reported as errors.
func ParseWasteCategory(value string) (WasteCategory, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validWasteCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if alias, ok := wasteCategoryAliases[normalized]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid waste category %q", value)
}

// NormalizeWasteCategory is the total form of ParseWasteCategory: blank input
// stays blank and unrecognized labels collapse to OTHER.
func NormalizeWasteCategory(value string) WasteCategory {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	if parsed, err := ParseWasteCategory(value); err == nil {
		return parsed
	}
	return WasteCategoryOther
}
