// Package merge combines per-source extraction results into one recipe
package merge

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/alchemorsel/intake/internal/domain/recipe"
)

// Strategy names a duplicate-removal policy for ingredients and steps
type Strategy string

const (
	// StrategyExact drops ingredients equal after lowercasing and trimming; steps are kept as-is
	StrategyExact Strategy = "exact"
	// StrategyFuzzy drops ingredients and steps whose similarity ratio reaches FuzzyThreshold
	StrategyFuzzy Strategy = "fuzzy"

	// FuzzyThreshold is the minimum (maxLen-distance)/maxLen treated as a duplicate
	FuzzyThreshold = 0.8
)

// ParseStrategy returns the named strategy, or def for an empty name
func ParseStrategy(name string, def Strategy) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return def, nil
	case StrategyExact:
		return StrategyExact, nil
	case StrategyFuzzy:
		return StrategyFuzzy, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", name)
	}
}

// Merge combines results in source order. It fails only when no result succeeded.
func Merge(results []recipe.ExtractionResult, strategy Strategy) (recipe.ExtractionResult, error) {
	var ok []recipe.ExtractionResult
	for _, r := range results {
		if r.Succeeded() {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return recipe.ExtractionResult{}, recipe.ErrNoSuccessfulSource
	}

	var (
		merged      recipe.ExtractionResult
		ingredients []string
		steps       []string
		notes       []string
		providers   []string
		tagSeen     = make(map[string]bool)
		confidence  int
	)
	merged.Tags = []string{}

	for _, r := range ok {
		firstString(&merged.Title, r.Title)
		firstInt(&merged.Servings, r.Servings)
		firstString(&merged.PrepTime, r.PrepTime)
		firstString(&merged.CookTime, r.CookTime)
		firstInt(&merged.Difficulty, r.Difficulty)
		firstString(&merged.Cuisine, r.Cuisine)
		firstString(&merged.Category, r.Category)

		ingredients = append(ingredients, r.Ingredients...)
		steps = append(steps, r.Steps...)

		for _, tag := range r.Tags {
			key := strings.ToLower(strings.TrimSpace(tag))
			if key == "" || tagSeen[key] {
				continue
			}
			tagSeen[key] = true
			merged.Tags = append(merged.Tags, tag)
		}

		if n := strings.TrimSpace(r.Notes); n != "" {
			notes = append(notes, n)
		}
		if r.Provider != "" && !contains(providers, r.Provider) {
			providers = append(providers, r.Provider)
		}
		confidence += r.Confidence
	}

	switch strategy {
	case StrategyFuzzy:
		merged.Ingredients = dedupeFuzzy(ingredients)
		merged.Steps = dedupeFuzzy(steps)
	default:
		merged.Ingredients = dedupeExact(ingredients)
		merged.Steps = nonNil(steps)
	}
	merged.Notes = strings.Join(notes, "\n\n")
	merged.Provider = strings.Join(providers, ",")
	merged.Confidence = confidence / len(ok)

	return merged, nil
}

func firstString(dst *string, v string) {
	if *dst == "" && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func firstInt(dst *int, v int) {
	if *dst == 0 && v > 0 {
		*dst = v
	}
}

func dedupeExact(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func dedupeFuzzy(items []string) []string {
	out := make([]string, 0, len(items))
	kept := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		duplicate := false
		for _, k := range kept {
			if Similarity(key, k) >= FuzzyThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, key)
		out = append(out, item)
	}
	return out
}

// Similarity returns (maxLen-distance)/maxLen over runes; two empty strings are identical
func Similarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return float64(maxLen-levenshtein.ComputeDistance(a, b)) / float64(maxLen)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
