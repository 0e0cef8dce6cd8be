// Package rewards converts a pickup's category and weight into reward points
// and estimated CO2 savings. Every function here is pure.
package rewards

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// co2Precision is the number of decimal places kept for CO2 estimates.
const co2Precision = 3

// Rate holds the per-kilogram multipliers for one waste category.
type Rate struct {
	PointsPerKg decimal.Decimal
	CO2PerKg    decimal.Decimal
}

var rates = map[enums.WasteCategory]Rate{
	enums.WasteCategoryPlastic: {PointsPerKg: decimal.NewFromInt(10), CO2PerKg: decimal.RequireFromString("1.7")},
	enums.WasteCategoryEWaste:  {PointsPerKg: decimal.NewFromInt(15), CO2PerKg: decimal.RequireFromString("2.5")},
	enums.WasteCategoryMetal:   {PointsPerKg: decimal.NewFromInt(8), CO2PerKg: decimal.RequireFromString("1.9")},
	enums.WasteCategoryGlass:   {PointsPerKg: decimal.NewFromInt(6), CO2PerKg: decimal.RequireFromString("0.6")},
	enums.WasteCategoryPaper:   {PointsPerKg: decimal.NewFromInt(5), CO2PerKg: decimal.RequireFromString("1.0")},
	enums.WasteCategoryOrganic: {PointsPerKg: decimal.NewFromInt(4), CO2PerKg: decimal.RequireFromString("0.3")},
	enums.WasteCategoryDry:     {PointsPerKg: decimal.NewFromInt(3), CO2PerKg: decimal.RequireFromString("0.5")},
	enums.WasteCategoryOther:   {PointsPerKg: decimal.NewFromInt(2), CO2PerKg: decimal.RequireFromString("0.2")},
}

// RateFor returns the multipliers for category; unknown categories use OTHER.
func RateFor(category enums.WasteCategory) Rate {
	if r, ok := rates[category]; ok {
		return r
	}
	return rates[enums.WasteCategoryOther]
}

// Points returns weightKg times the category's point rate, rounded half away
// from zero to the nearest integer. Weights that are not positive and finite
// earn nothing.
func Points(category enums.WasteCategory, weightKg float64) int64 {
	if !countable(weightKg) {
		return 0
	}
	raw := decimal.NewFromFloat(weightKg).Mul(RateFor(category).PointsPerKg)
	return raw.Round(0).IntPart()
}

// CO2Saved returns weightKg times the category's CO2 factor in kilograms,
// rounded to three decimal places, so products below half a gram store 0.
func CO2Saved(category enums.WasteCategory, weightKg float64) float64 {
	if !countable(weightKg) {
		return 0
	}
	raw := decimal.NewFromFloat(weightKg).Mul(RateFor(category).CO2PerKg)
	return raw.Round(co2Precision).InexactFloat64()
}

// countable reports whether weightKg is positive and finite. decimal cannot
// represent NaN or infinities.
func countable(weightKg float64) bool {
	return weightKg > 0 && !math.IsInf(weightKg, 1)
}
