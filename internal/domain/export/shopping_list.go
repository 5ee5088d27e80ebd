// Package export contains the staged shopping list handed from the stage step to render.
package export

import (
	"errors"
	"time"
)

// ErrStageNotFound is returned by stage stores for unknown or expired handles
var ErrStageNotFound = errors.New("staged shopping list not found")

// ShoppingList is a pre-resolved ingredient list bound to the identity that staged it
type ShoppingList struct {
	Handle      string    `json:"handle"`
	Identity    string    `json:"identity"`
	Title       string    `json:"title"`
	Ingredients []string  `json:"ingredients"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the list is no longer renderable at now
func (l ShoppingList) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
