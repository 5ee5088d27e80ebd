// Package recipe contains the canonical recipe model produced by extraction
// and the stored recipe shape read by ingredient resolution.
package recipe

import (
	"fmt"
	"strings"
)

// Language selects the prompt and key set used for a model call
type Language string

const (
	LanguageGerman  Language = "de"
	LanguageEnglish Language = "en"
)

// ParseLanguage accepts "de"/"en" and Accept-Language style values, defaulting to German
func ParseLanguage(s string) Language {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "en") {
		return LanguageEnglish
	}
	return LanguageGerman
}

// SourceKind identifies the material a source carries
type SourceKind string

const (
	SourceImage SourceKind = "image"
	SourceText  SourceKind = "text"
	SourceHTML  SourceKind = "html"
)

// Source is one piece of recipe material submitted for extraction
type Source struct {
	Kind SourceKind `json:"kind"`
	// Data holds base64 image data (optionally as a data URL), plain text or captured HTML
	Data     string `json:"data"`
	MIMEType string `json:"mime_type,omitempty"`
	// Label is a caller-supplied name used in progress events and logs
	Label string `json:"label,omitempty"`
}

// Validate checks the structural shape of a source
func (s Source) Validate() error {
	switch s.Kind {
	case SourceImage, SourceText, SourceHTML:
	default:
		return fmt.Errorf("unsupported source kind %q", s.Kind)
	}
	if strings.TrimSpace(s.Data) == "" {
		return fmt.Errorf("%s source is empty", s.Kind)
	}
	return nil
}

// EnumOptions are the controlled vocabularies substituted into the prompt
type EnumOptions struct {
	CuisineTypes   []string `json:"cuisine_types,omitempty"`
	MealCategories []string `json:"meal_categories,omitempty"`
}

// MaxDifficulty is the upper bound of the difficulty scale
const MaxDifficulty = 5

// ExtractionResult is the canonical English-keyed recipe produced from one source
type ExtractionResult struct {
	Title       string   `json:"title"`
	Servings    int      `json:"servings"`
	PrepTime    string   `json:"prepTime"`
	CookTime    string   `json:"cookTime"`
	Difficulty  int      `json:"difficulty"`
	Cuisine     string   `json:"cuisine"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Notes       string   `json:"notes"`
	Confidence  int      `json:"confidence"`
	Provider    string   `json:"provider"`
	RawResponse string   `json:"rawResponse,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Succeeded reports whether the result carries data rather than an error
func (r ExtractionResult) Succeeded() bool {
	return r.Error == ""
}

// Failed builds the result recorded for a source whose extraction failed
func Failed(provider string, err error) ExtractionResult {
	msg := "extraction failed"
	if err != nil {
		msg = err.Error()
	}
	return ExtractionResult{Provider: provider, Error: msg}
}
