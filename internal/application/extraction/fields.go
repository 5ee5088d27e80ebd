package extraction

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/alchemorsel/intake/internal/domain/recipe"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindList
)

// fieldMapping binds a canonical field to the keys each language may use for it
type fieldMapping struct {
	kind  fieldKind
	de    []string
	en    []string
	apply func(r *recipe.ExtractionResult, v interface{})
}

func (f fieldMapping) keys(lang recipe.Language) []string {
	if lang == recipe.LanguageEnglish {
		return f.en
	}
	return f.de
}

var fieldTable = []fieldMapping{
	{kindString, []string{"titel"}, []string{"title"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Title = v.(string) }},
	{kindInt, []string{"portionen"}, []string{"servings"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Servings = clamp(v.(int), 0, math.MaxInt32) }},
	{kindString, []string{"zubereitungszeit"}, []string{"prepTime", "prep_time"},
		func(r *recipe.ExtractionResult, v interface{}) { r.PrepTime = v.(string) }},
	{kindString, []string{"kochzeit"}, []string{"cookTime", "cook_time"},
		func(r *recipe.ExtractionResult, v interface{}) { r.CookTime = v.(string) }},
	{kindInt, []string{"schwierigkeit"}, []string{"difficulty"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Difficulty = clamp(v.(int), 0, recipe.MaxDifficulty) }},
	{kindString, []string{"kueche", "küche"}, []string{"cuisine"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Cuisine = v.(string) }},
	{kindString, []string{"kategorie"}, []string{"category"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Category = v.(string) }},
	{kindList, []string{"tags", "schlagworte"}, []string{"tags"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Tags = v.([]string) }},
	{kindList, []string{"zutaten"}, []string{"ingredients"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Ingredients = v.([]string) }},
	{kindList, []string{"schritte", "zubereitung"}, []string{"steps", "instructions"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Steps = v.([]string) }},
	{kindString, []string{"notizen"}, []string{"notes"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Notes = v.(string) }},
	{kindInt, []string{"konfidenz"}, []string{"confidence"},
		func(r *recipe.ExtractionResult, v interface{}) { r.Confidence = clamp(v.(int), 0, 100) }},
}

// normalize maps a decoded model object onto the canonical schema. Keys of the
// requested language are tried first, then the other language's keys.
// It reports how many canonical fields were found.
func normalize(obj map[string]interface{}, lang recipe.Language) (recipe.ExtractionResult, int) {
	lookup := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		lookup[strings.ToLower(k)] = v
	}

	order := []recipe.Language{lang, otherLanguage(lang)}

	var (
		res   recipe.ExtractionResult
		found int
	)
	for _, f := range fieldTable {
		raw, ok := firstPresent(lookup, f, order)
		if !ok {
			continue
		}
		found++
		switch f.kind {
		case kindString:
			f.apply(&res, coerceString(raw))
		case kindInt:
			f.apply(&res, coerceInt(raw))
		case kindList:
			f.apply(&res, coerceList(raw))
		}
	}
	return res, found
}

func firstPresent(lookup map[string]interface{}, f fieldMapping, order []recipe.Language) (interface{}, bool) {
	for _, lang := range order {
		for _, k := range f.keys(lang) {
			if v, ok := lookup[strings.ToLower(k)]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func otherLanguage(lang recipe.Language) recipe.Language {
	if lang == recipe.LanguageEnglish {
		return recipe.LanguageGerman
	}
	return recipe.LanguageEnglish
}

var leadingInt = regexp.MustCompile(`-?\d+`)

func coerceString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		return strings.Join(coerceList(val), "\n")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func coerceInt(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(math.Round(val))
	case string:
		if m := leadingInt.FindString(val); m != "" {
			n, _ := strconv.Atoi(m)
			return n
		}
	}
	return 0
}

func coerceList(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(val, "\n") {
			if s := strings.TrimSpace(line); s != "" {
				out = append(out, s)
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
