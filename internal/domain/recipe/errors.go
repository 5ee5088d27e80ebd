package recipe

import "errors"

// Domain errors for extraction, merge and resolution

var (
	ErrNoSuccessfulSource = errors.New("no source produced a recipe")
	ErrNoSources          = errors.New("at least one source is required")
	ErrRecipeNotFound     = errors.New("recipe not found")
)
