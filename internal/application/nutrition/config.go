// Package nutrition approximates per-serving macros from free-text ingredient lines
package nutrition

// Config is the immutable configuration of the aggregator
type Config struct {
	// Units maps lowercase unit tokens to grams per unit
	Units map[string]float64
	// MinGrams floors amounts given with a known unit
	MinGrams float64
	// UnknownUnitGrams is used when the token after the number is not a known unit
	UnknownUnitGrams float64
	// PieceGrams and MinPieceGrams estimate pure counts such as "4 Eier"
	PieceGrams    float64
	MinPieceGrams float64
	// NoQuantityGrams is used for lines without a leading number
	NoQuantityGrams float64
	// SaltGramsPerServing is added for a bare "salt" line
	SaltGramsPerServing float64
	// Candidates is the number of search results requested per ingredient
	Candidates int
}

// DefaultConfig returns the production unit table and estimates
func DefaultConfig() Config {
	return Config{
		Units: map[string]float64{
			"g": 1, "gr": 1, "gramm": 1,
			"kg": 1000,
			"mg": 0.001,
			"ml": 1, "cl": 10, "dl": 100,
			"l": 1000, "liter": 1000,
			"el": 15, "esslöffel": 15,
			"tl": 5, "teelöffel": 5,
			"prise": 1, "prisen": 1,
			"tasse": 240, "tassen": 240,
			"bund": 30,
			"tbsp": 15, "tsp": 5,
			"cup": 240, "cups": 240,
			"pinch": 1,
			"oz": 28.35, "lb": 453.6,
		},
		MinGrams:            1,
		UnknownUnitGrams:    100,
		PieceGrams:          60,
		MinPieceGrams:       10,
		NoQuantityGrams:     5,
		SaltGramsPerServing: 2,
		Candidates:          5,
	}
}
