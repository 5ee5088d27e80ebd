// Package nutrition contains the macro totals model and the per-100g product data
// returned by a nutrition lookup.
package nutrition

import "math"

// Totals holds macros in absolute kcal/grams while aggregating and per-serving
// values after PerServing. JSON keys follow the established client contract.
type Totals struct {
	Kcal    float64 `json:"kalorien"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fett"`
	Carbs   float64 `json:"kohlenhydrate"`
	Sugar   float64 `json:"zucker"`
	Fiber   float64 `json:"ballaststoffe"`
	Salt    float64 `json:"salz"`
}

// Add accumulates another set of totals
func (t *Totals) Add(o Totals) {
	t.Kcal += o.Kcal
	t.Protein += o.Protein
	t.Fat += o.Fat
	t.Carbs += o.Carbs
	t.Sugar += o.Sugar
	t.Fiber += o.Fiber
	t.Salt += o.Salt
}

// PerServing divides by servings and rounds energy to an integer and the rest to one decimal
func (t Totals) PerServing(servings int) Totals {
	if servings < 1 {
		servings = 1
	}
	s := float64(servings)
	return Totals{
		Kcal:    math.Round(t.Kcal / s),
		Protein: round1(t.Protein / s),
		Fat:     round1(t.Fat / s),
		Carbs:   round1(t.Carbs / s),
		Sugar:   round1(t.Sugar / s),
		Fiber:   round1(t.Fiber / s),
		Salt:    round1(t.Salt / s),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Per100g holds nutrient values per 100 g; nil means the source did not report it
type Per100g struct {
	EnergyKcal *float64 `json:"energy_kcal,omitempty"`
	Protein    *float64 `json:"protein,omitempty"`
	Fat        *float64 `json:"fat,omitempty"`
	Carbs      *float64 `json:"carbohydrates,omitempty"`
	Sugar      *float64 `json:"sugars,omitempty"`
	Fiber      *float64 `json:"fiber,omitempty"`
	Salt       *float64 `json:"salt,omitempty"`
}

// Product is one candidate returned by a nutrition lookup
type Product struct {
	Name      string  `json:"product_name"`
	Nutrients Per100g `json:"nutrients"`
}

// Usable reports whether the product exposes energy data
func (p Product) Usable() bool {
	return p.Nutrients.EnergyKcal != nil
}

// Scale converts the per-100g values to absolute values for the given amount
func (p Per100g) Scale(grams float64) Totals {
	f := grams / 100
	return Totals{
		Kcal:    deref(p.EnergyKcal) * f,
		Protein: deref(p.Protein) * f,
		Fat:     deref(p.Fat) * f,
		Carbs:   deref(p.Carbs) * f,
		Sugar:   deref(p.Sugar) * f,
		Fiber:   deref(p.Fiber) * f,
		Salt:    deref(p.Salt) * f,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Quantity is the parsed amount and searchable name of an ingredient line
type Quantity struct {
	AmountGrams float64 `json:"amount_grams"`
	Name        string  `json:"name"`
}

// Detail records the outcome for one ingredient line
type Detail struct {
	Line        string  `json:"line"`
	Name        string  `json:"name"`
	AmountGrams float64 `json:"amount_grams"`
	Found       bool    `json:"found"`
	Product     string  `json:"product,omitempty"`
	Kcal        float64 `json:"kcal"`
	Error       string  `json:"error,omitempty"`
}

// Report is the aggregation result
type Report struct {
	Servings   int      `json:"servings"`
	Totals     Totals   `json:"totals"`
	Details    []Detail `json:"details"`
	FoundCount int      `json:"found_count"`
	TotalCount int      `json:"total_count"`
}
