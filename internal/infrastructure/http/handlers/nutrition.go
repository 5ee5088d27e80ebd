package handlers

import (
	"net/http"

	"github.com/alchemorsel/intake/internal/ports/inbound"
	"go.uber.org/zap"
)

// NutritionRequest is the body of POST /api/v1/nutrition
type NutritionRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=1,max=200"`
	Servings    int      `json:"servings" validate:"required,min=1,max=1000"`
}

// NutritionHandlers handles nutrition estimates
type NutritionHandlers struct {
	nutrition inbound.NutritionService
	logger    *zap.Logger
}

// NewNutritionHandlers creates nutrition handlers
func NewNutritionHandlers(nutrition inbound.NutritionService, logger *zap.Logger) *NutritionHandlers {
	return &NutritionHandlers{nutrition: nutrition, logger: logger.Named("nutrition-handlers")}
}

// Estimate handles POST /api/v1/nutrition
func (h *NutritionHandlers) Estimate(w http.ResponseWriter, r *http.Request) {
	var req NutritionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	report, err := h.nutrition.Aggregate(r.Context(), req.Ingredients, req.Servings)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: report})
}
