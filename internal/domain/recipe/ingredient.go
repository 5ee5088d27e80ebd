package recipe

import (
	"encoding/json"
	"regexp"
	"strings"
)

var linkTokenPattern = regexp.MustCompile(`#recipe:([A-Za-z0-9_-]+):`)

// IngredientEntry is one line of a stored recipe's ingredient list. It is either a
// plain line, a section heading, or a line embedding a #recipe:<id>: link token.
type IngredientEntry struct {
	Text    string
	Heading bool
}

// Plain builds a non-heading entry
func Plain(text string) IngredientEntry {
	return IngredientEntry{Text: text}
}

// Heading builds a section heading entry
func Heading(text string) IngredientEntry {
	return IngredientEntry{Text: text, Heading: true}
}

// LinkedRecipeID returns the id referenced by the entry's link token, if any
func (e IngredientEntry) LinkedRecipeID() (string, bool) {
	if e.Heading {
		return "", false
	}
	m := linkTokenPattern.FindStringSubmatch(e.Text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// LinkToken formats the token that references a recipe id
func LinkToken(id string) string {
	return "#recipe:" + id + ":"
}

type headingJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MarshalJSON writes plain entries as strings and headings as {"type":"heading"} objects
func (e IngredientEntry) MarshalJSON() ([]byte, error) {
	if e.Heading {
		return json.Marshal(headingJSON{Type: "heading", Text: e.Text})
	}
	return json.Marshal(e.Text)
}

// UnmarshalJSON accepts either form written by MarshalJSON
func (e *IngredientEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Plain(s)
		return nil
	}
	var h headingJSON
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*e = IngredientEntry{Text: h.Text, Heading: h.Type == "heading"}
	return nil
}

// EntryFromValue converts a loosely typed document value into an entry
func EntryFromValue(v interface{}) (IngredientEntry, bool) {
	switch val := v.(type) {
	case string:
		return Plain(val), true
	case map[string]interface{}:
		text, _ := val["text"].(string)
		kind, _ := val["type"].(string)
		return IngredientEntry{Text: text, Heading: strings.EqualFold(kind, "heading")}, true
	default:
		return IngredientEntry{}, false
	}
}

// ToValue is the inverse of EntryFromValue
func (e IngredientEntry) ToValue() interface{} {
	if e.Heading {
		return map[string]interface{}{"type": "heading", "text": e.Text}
	}
	return e.Text
}

// StoredRecipe is the read-only view of a persisted recipe used by resolution and export
type StoredRecipe struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Servings    int               `json:"servings"`
	Ingredients []IngredientEntry `json:"ingredients"`
	Steps       []string          `json:"steps"`
	Tags        []string          `json:"tags"`
}
