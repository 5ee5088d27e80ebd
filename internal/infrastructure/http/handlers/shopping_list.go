package handlers

import (
	"net/http"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/intake/internal/ports/inbound"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ShoppingListRequest is the body of POST /api/v1/shopping-list
type ShoppingListRequest struct {
	Title       string                   `json:"title" validate:"max=200"`
	Ingredients []recipe.IngredientEntry `json:"ingredients" validate:"required_without=RecipeID,max=500"`
	RecipeID    string                   `json:"recipe_id" validate:"required_without=Ingredients,max=128"`
}

// ShoppingListHandlers handles shopping list export
type ShoppingListHandlers struct {
	export inbound.ExportService
	logger *zap.Logger
}

// NewShoppingListHandlers creates shopping list handlers
func NewShoppingListHandlers(export inbound.ExportService, logger *zap.Logger) *ShoppingListHandlers {
	return &ShoppingListHandlers{export: export, logger: logger.Named("shopping-list-handlers")}
}

// Stage handles POST /api/v1/shopping-list
func (h *ShoppingListHandlers) Stage(w http.ResponseWriter, r *http.Request) {
	var req ShoppingListRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	staged, err := h.export.Stage(r.Context(), inbound.StageCommand{
		Caller:      middleware.CallerFromContext(r.Context()),
		Title:       req.Title,
		Ingredients: req.Ingredients,
		RecipeID:    req.RecipeID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/v1/shopping-list/"+staged.Handle)
	writeJSON(w, h.logger, http.StatusCreated, APIResponse{Success: true, Data: staged})
}

// Render handles GET /api/v1/shopping-list/{handle}
func (h *ShoppingListHandlers) Render(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())

	doc, err := h.export.Render(r.Context(), caller.Identity, chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.Debug("Failed to write shopping list document", zap.Error(err))
	}
}
