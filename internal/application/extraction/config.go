// Package extraction turns one recipe source into a canonical ExtractionResult via a vision model
package extraction

import "github.com/alchemorsel/intake/internal/domain/recipe"

// Config is the immutable configuration of the extraction client
type Config struct {
	MaxImageBytes    int64
	AllowedMIMETypes []string
	Temperature      float64
	MaxTokens        int
	// Defaults fill the prompt placeholders when a request carries no vocabularies
	Defaults recipe.EnumOptions
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		MaxImageBytes:    10 << 20,
		AllowedMIMETypes: []string{"image/jpeg", "image/png", "image/webp", "image/heic", "image/heif"},
		Temperature:      0.1,
		MaxTokens:        2048,
		Defaults: recipe.EnumOptions{
			CuisineTypes:   DefaultCuisineTypes,
			MealCategories: DefaultMealCategories,
		},
	}
}

// DefaultCuisineTypes is the built-in cuisine vocabulary
var DefaultCuisineTypes = []string{
	"Deutsch", "Italienisch", "Französisch", "Spanisch", "Griechisch", "Türkisch",
	"Asiatisch", "Indisch", "Mexikanisch", "Amerikanisch", "Orientalisch", "International",
}

// DefaultMealCategories is the built-in meal category vocabulary
var DefaultMealCategories = []string{
	"Frühstück", "Vorspeise", "Hauptgericht", "Beilage", "Salat", "Suppe",
	"Dessert", "Gebäck", "Snack", "Getränk",
}
