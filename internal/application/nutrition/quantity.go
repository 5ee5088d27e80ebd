package nutrition

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alchemorsel/intake/internal/domain/nutrition"
)

// amount, optional fraction denominator, optional range upper bound (ignored), remainder
var leadingNumber = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)(?:\s*/\s*(\d+))?(?:\s*[-–]\s*\d+(?:[.,]\d+)?)?\s*(.*)$`)

// ParseQuantity splits a line into grams and a searchable name:
//
//	"500 g Mehl"        -> 500 g, "Mehl"
//	"4 Eier"            -> 4 x PieceGrams, "Eier"
//	"2 Dosen Tomaten"   -> UnknownUnitGrams, "Dosen Tomaten"
//	"Pfeffer"           -> NoQuantityGrams, "Pfeffer"
func (c Config) ParseQuantity(line string) nutrition.Quantity {
	line = strings.TrimSpace(line)

	m := leadingNumber.FindStringSubmatch(line)
	if m == nil {
		return nutrition.Quantity{AmountGrams: c.NoQuantityGrams, Name: searchName(line)}
	}

	amount, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return nutrition.Quantity{AmountGrams: c.NoQuantityGrams, Name: searchName(line)}
	}
	if m[2] != "" {
		if denom, err := strconv.ParseFloat(m[2], 64); err == nil && denom > 0 {
			amount /= denom
		}
	}

	rest := strings.Fields(m[3])
	if len(rest) == 0 {
		return nutrition.Quantity{AmountGrams: c.NoQuantityGrams, Name: searchName(line)}
	}

	unit := strings.TrimSuffix(strings.ToLower(rest[0]), ".")
	if factor, ok := c.Units[unit]; ok {
		grams := amount * factor
		if grams < c.MinGrams {
			grams = c.MinGrams
		}
		return nutrition.Quantity{AmountGrams: grams, Name: searchName(strings.Join(rest[1:], " "))}
	}

	if len(rest) == 1 {
		grams := amount * c.PieceGrams
		if grams < c.MinPieceGrams {
			grams = c.MinPieceGrams
		}
		return nutrition.Quantity{AmountGrams: grams, Name: searchName(rest[0])}
	}

	return nutrition.Quantity{AmountGrams: c.UnknownUnitGrams, Name: searchName(strings.Join(rest, " "))}
}

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// ParseQuantity parses line with the default unit table
func ParseQuantity(line string) nutrition.Quantity {
	return DefaultConfig().ParseQuantity(line)
}

// searchName drops parenthetical remarks and anything after the first comma
func searchName(s string) string {
	s = parenthetical.ReplaceAllString(s, "")
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	return strings.Join(strings.Fields(s), " ")
}

// isBareSalt reports whether the line is only the word salt in a supported language
func isBareSalt(line string) bool {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(line), ".,;")) {
	case "salz", "salt", "sel", "sale", "sal":
		return true
	}
	return false
}
