package extraction

import (
	"strings"

	"github.com/alchemorsel/intake/internal/domain/recipe"
)

const (
	cuisinePlaceholder  = "{{CUISINE_TYPES}}"
	categoryPlaceholder = "{{MEAL_CATEGORIES}}"
)

var promptTemplates = map[recipe.Language]string{
	recipe.LanguageGerman: `Du bist ein Assistent, der Rezepte erfasst. Lies das Rezept aus dem Bild oder Text
und antworte ausschließlich mit einem JSON-Objekt mit genau diesen Schlüsseln:
{
  "titel": string,
  "portionen": Zahl,
  "zubereitungszeit": string,
  "kochzeit": string,
  "schwierigkeit": Zahl von 1 bis 5,
  "kueche": eine von [{{CUISINE_TYPES}}],
  "kategorie": eine von [{{MEAL_CATEGORIES}}],
  "tags": [string],
  "zutaten": [string, je Zeile Menge, Einheit und Zutat],
  "schritte": [string, in der richtigen Reihenfolge],
  "notizen": string,
  "konfidenz": Zahl von 0 bis 100
}
Lass unbekannte Felder leer. Erfinde keine Zutaten.`,

	recipe.LanguageEnglish: `You are a recipe capture assistant. Read the recipe from the image or text
and answer only with one JSON object with exactly these keys:
{
  "title": string,
  "servings": number,
  "prepTime": string,
  "cookTime": string,
  "difficulty": number from 1 to 5,
  "cuisine": one of [{{CUISINE_TYPES}}],
  "category": one of [{{MEAL_CATEGORIES}}],
  "tags": [string],
  "ingredients": [string, one line each with amount, unit and ingredient],
  "steps": [string, in order],
  "notes": string,
  "confidence": number from 0 to 100
}
Leave unknown fields empty. Do not invent ingredients.`,
}

var textHeadings = map[recipe.Language]string{
	recipe.LanguageGerman:  "Rezepttext:",
	recipe.LanguageEnglish: "Recipe text:",
}

// buildPrompt fills the template for lang with opts, falling back to defaults per vocabulary
func buildPrompt(lang recipe.Language, opts, defaults recipe.EnumOptions, text string) string {
	cuisines := opts.CuisineTypes
	if len(cuisines) == 0 {
		cuisines = defaults.CuisineTypes
	}
	categories := opts.MealCategories
	if len(categories) == 0 {
		categories = defaults.MealCategories
	}

	tmpl, ok := promptTemplates[lang]
	if !ok {
		tmpl = promptTemplates[recipe.LanguageGerman]
		lang = recipe.LanguageGerman
	}

	prompt := strings.NewReplacer(
		cuisinePlaceholder, strings.Join(cuisines, ", "),
		categoryPlaceholder, strings.Join(categories, ", "),
	).Replace(tmpl)

	if text != "" {
		prompt += "\n\n" + textHeadings[lang] + "\n" + text
	}
	return prompt
}
