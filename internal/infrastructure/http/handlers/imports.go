package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/intake/internal/ports/inbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SourceRequest is one source in an import request
type SourceRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=image text html"`
	Data     string `json:"data" validate:"required"`
	MIMEType string `json:"mime_type" validate:"omitempty,max=100"`
	Label    string `json:"label" validate:"max=200"`
}

// ImportRequest is the body of POST /api/v1/imports and the first stream message
type ImportRequest struct {
	Sources        []SourceRequest `json:"sources" validate:"required,min=1,dive"`
	Strategy       string          `json:"strategy" validate:"omitempty,oneof=exact fuzzy"`
	CuisineTypes   []string        `json:"cuisine_types" validate:"omitempty,max=100,dive,required,max=64"`
	MealCategories []string        `json:"meal_categories" validate:"omitempty,max=100,dive,required,max=64"`
}

func (req ImportRequest) command(caller inbound.Caller) inbound.ImportCommand {
	sources := make([]recipe.Source, len(req.Sources))
	for i, s := range req.Sources {
		sources[i] = recipe.Source{
			Kind:     recipe.SourceKind(s.Kind),
			Data:     s.Data,
			MIMEType: s.MIMEType,
			Label:    s.Label,
		}
	}
	return inbound.ImportCommand{
		Caller:   caller,
		Sources:  sources,
		Strategy: req.Strategy,
		Options: recipe.EnumOptions{
			CuisineTypes:   req.CuisineTypes,
			MealCategories: req.MealCategories,
		},
	}
}

// streamMessage is one frame sent over the import websocket
type streamMessage struct {
	Type     string                  `json:"type"`
	Progress *inbound.ProgressEvent  `json:"progress,omitempty"`
	Result   *inbound.ImportResult   `json:"result,omitempty"`
	Error    *apperrors.ErrorDetails `json:"error,omitempty"`
}

// ImportHandlers handles recipe imports and quota status
type ImportHandlers struct {
	imports  inbound.ImportService
	quota    inbound.QuotaService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewImportHandlers creates import handlers; allowedOrigins governs websocket upgrades
func NewImportHandlers(imports inbound.ImportService, quota inbound.QuotaService, allowedOrigins []string, logger *zap.Logger) *ImportHandlers {
	return &ImportHandlers{
		imports: imports,
		quota:   quota,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Named("import-handlers"),
	}
}

// CreateImport handles POST /api/v1/imports
func (h *ImportHandlers) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	caller := middleware.CallerFromContext(r.Context())
	result, err := h.imports.Import(r.Context(), req.command(caller), nil)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	setQuotaHeaders(w, result.Quota.Limit, result.Quota.Remaining, result.Quota.ResetAt)
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: result})
}

// StreamImport handles GET /api/v1/imports/stream. The client sends one ImportRequest
// frame and receives progress frames followed by a result or error frame.
func (h *ImportHandlers) StreamImport(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(40 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	caller := middleware.CallerFromContext(r.Context())
	requestID := chimiddleware.GetReqID(r.Context())

	var req ImportRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.sendError(conn, requestID, caller, apperrors.NewValidationError("invalid import request: "+err.Error()))
		return
	}
	if err := validateStruct(&req); err != nil {
		h.sendError(conn, requestID, caller, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.watchClose(conn, cancel)

	result, err := h.imports.Import(ctx, req.command(caller), func(ev inbound.ProgressEvent) {
		if werr := conn.WriteJSON(streamMessage{Type: "progress", Progress: &ev}); werr != nil {
			h.logger.Debug("Failed to write progress frame", zap.Error(werr))
		}
	})
	if err != nil {
		h.sendError(conn, requestID, caller, err)
		return
	}

	if err := conn.WriteJSON(streamMessage{Type: "result", Result: result}); err != nil {
		h.logger.Debug("Failed to write result frame", zap.Error(err))
		return
	}
	closeNormally(conn)
}

// GetQuota handles GET /api/v1/quota
func (h *ImportHandlers) GetQuota(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	decision, err := h.quota.Status(r.Context(), caller.Identity, caller.Tier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	setQuotaHeaders(w, decision.Limit, decision.Remaining, decision.ResetAt)
	writeJSON(w, h.logger, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"tier":      caller.Tier,
			"limit":     decision.Limit,
			"remaining": decision.Remaining,
			"reset_at":  decision.ResetAt,
			"degraded":  decision.Degraded,
		},
	})
}

// watchClose drains control frames and cancels the import when the client goes away
func (h *ImportHandlers) watchClose(conn *websocket.Conn, cancel context.CancelFunc) {
	_ = conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			cancel()
			return
		}
	}
}

func (h *ImportHandlers) sendError(conn *websocket.Conn, requestID string, caller inbound.Caller, err error) {
	appErr := apperrors.Wrap(err, "import failed")
	resp := apperrors.ToErrorResponse(appErr, requestID, string(caller.Language))
	if werr := conn.WriteJSON(streamMessage{Type: "error", Error: &resp.Error}); werr != nil {
		h.logger.Debug("Failed to write error frame", zap.Error(werr))
		return
	}
	closeNormally(conn)
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func setQuotaHeaders(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	w.Header().Set("X-Quota-Limit", strconv.Itoa(limit))
	w.Header().Set("X-Quota-Remaining", strconv.Itoa(remaining))
	if !resetAt.IsZero() {
		w.Header().Set("X-Quota-Reset", resetAt.UTC().Format(time.RFC3339))
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
