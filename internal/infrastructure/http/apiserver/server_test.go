package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alchemorsel/intake/internal/application/export"
	"github.com/alchemorsel/intake/internal/application/extraction"
	"github.com/alchemorsel/intake/internal/application/importer"
	"github.com/alchemorsel/intake/internal/application/ingredients"
	appnutrition "github.com/alchemorsel/intake/internal/application/nutrition"
	appquota "github.com/alchemorsel/intake/internal/application/quota"
	"github.com/alchemorsel/intake/internal/domain/nutrition"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/infrastructure/ai"
	"github.com/alchemorsel/intake/internal/infrastructure/config"
	"github.com/alchemorsel/intake/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/intake/internal/infrastructure/monitoring"
	"github.com/alchemorsel/intake/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/intake/test/testutils"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

const modelAnswer = "```json\n{\"titel\":\"Tomatensuppe\",\"portionen\":4,\"zutaten\":[\"500 g Tomaten\",\"1 Zwiebel\"],\"schritte\":[\"Kochen\"]}\n```"

type ServerTestSuite struct {
	suite.Suite
	model   *testutils.MockVisionModel
	foods   *testutils.MockNutritionSource
	stages  *memory.StageStore
	handler http.Handler
}

func (s *ServerTestSuite) SetupTest() {
	log := zaptest.NewLogger(s.T())

	s.model = &testutils.MockVisionModel{}
	s.foods = &testutils.MockNutritionSource{}
	s.stages = memory.NewStageStore()

	gate := appquota.NewGate(memory.NewQuotaStore(), quota.DefaultPolicy(), log)
	extractor := extraction.NewClient(s.model, extraction.DefaultConfig(), log)
	imports := importer.NewService(gate, extractor, importer.DefaultConfig(), nil, log)
	aggregator := appnutrition.NewAggregator(s.foods, appnutrition.DefaultConfig(), log)
	exports := export.NewService(ingredients.NewResolver(memory.NewRecipeStore(), log), s.stages, export.DefaultConfig(), log)

	checks := monitoring.NewHealthCheckManager(time.Second, log)
	checks.RegisterCheck("model", ai.NewHealthChecker(s.model, log).Check)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: 10 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Auth: config.AuthConfig{SessionHeader: "X-Session-ID"},
	}

	srv := NewServer(cfg, log, Handlers{
		Imports:      handlers.NewImportHandlers(imports, gate, cfg.Server.AllowedOrigins, log),
		Nutrition:    handlers.NewNutritionHandlers(aggregator, log),
		ShoppingList: handlers.NewShoppingListHandlers(exports, log),
		Health:       handlers.NewHealthHandler(checks, "intake", "test", log),
	})
	s.handler = srv.Router()
}

func (s *ServerTestSuite) TearDownTest() {
	s.stages.Close()
}

func (s *ServerTestSuite) do(method, path, session string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func textImport() map[string]interface{} {
	return map[string]interface{}{
		"sources": []map[string]string{{"kind": "text", "data": "Tomatensuppe mit Zwiebeln", "label": "notiz"}},
	}
}

func (s *ServerTestSuite) TestImportReturnsMergedRecipe() {
	s.model.On("Generate", mock.Anything, mock.Anything).Return(modelAnswer, nil)

	rec := s.do(http.MethodPost, "/api/v1/imports", "guest-1", textImport())
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	data := decode(rec)["data"].(map[string]interface{})
	recipe := data["recipe"].(map[string]interface{})
	s.Equal("Tomatensuppe", recipe["title"])
	s.Equal(float64(4), recipe["servings"])
	s.Equal("4", rec.Header().Get("X-Quota-Remaining"))
}

func (s *ServerTestSuite) TestImportValidation() {
	rec := s.do(http.MethodPost, "/api/v1/imports", "guest-1", map[string]interface{}{"sources": []interface{}{}})
	s.Equal(http.StatusBadRequest, rec.Code)

	body := decode(rec)["error"].(map[string]interface{})
	s.Equal("VALIDATION_FAILED", body["code"])
	s.model.AssertNotCalled(s.T(), "Generate", mock.Anything, mock.Anything)
}

func (s *ServerTestSuite) TestImportQuotaExhausted() {
	s.model.On("Generate", mock.Anything, mock.Anything).Return(modelAnswer, nil)

	for i := 0; i < 5; i++ {
		rec := s.do(http.MethodPost, "/api/v1/imports", "guest-2", textImport())
		s.Require().Equal(http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodPost, "/api/v1/imports", "guest-2", textImport())
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("QUOTA_EXCEEDED", decode(rec)["error"].(map[string]interface{})["code"])
	s.NotEmpty(rec.Header().Get("X-Quota-Reset"))
	s.model.AssertNumberOfCalls(s.T(), "Generate", 5)

	quotaRec := s.do(http.MethodGet, "/api/v1/quota", "guest-2", nil)
	s.Require().Equal(http.StatusOK, quotaRec.Code)
	data := decode(quotaRec)["data"].(map[string]interface{})
	s.Equal(float64(0), data["remaining"])
	s.Equal(float64(5), data["limit"])
}

func (s *ServerTestSuite) TestNutritionEstimate() {
	kcal := 364.0
	s.foods.On("Search", mock.Anything, "Mehl", mock.Anything).Return([]nutrition.Product{
		{Name: "Weizenmehl", Nutrients: nutrition.Per100g{EnergyKcal: &kcal}},
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/nutrition", "", map[string]interface{}{
		"ingredients": []string{"200 g Mehl"},
		"servings":    2,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	data := decode(rec)["data"].(map[string]interface{})
	totals := data["totals"].(map[string]interface{})
	s.Equal(float64(364), totals["kalorien"])
	s.Equal(float64(1), data["found_count"])
}

func (s *ServerTestSuite) TestNutritionRejectsZeroServings() {
	rec := s.do(http.MethodPost, "/api/v1/nutrition", "", map[string]interface{}{
		"ingredients": []string{"200 g Mehl"},
		"servings":    0,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestShoppingListStageAndRender() {
	rec := s.do(http.MethodPost, "/api/v1/shopping-list", "owner", map[string]interface{}{
		"title":       "Wocheneinkauf",
		"ingredients": []interface{}{map[string]string{"type": "heading", "text": "Gemüse"}, "2 Karotten"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	handle := decode(rec)["data"].(map[string]interface{})["handle"].(string)

	page := s.do(http.MethodGet, "/api/v1/shopping-list/"+handle, "owner", nil)
	s.Require().Equal(http.StatusOK, page.Code)
	s.Contains(page.Header().Get("Content-Type"), "text/html")
	s.Contains(page.Body.String(), "application/ld+json")
	s.Contains(page.Body.String(), "2 Karotten")

	other := s.do(http.MethodGet, "/api/v1/shopping-list/"+handle, "intruder", nil)
	s.Equal(http.StatusForbidden, other.Code)

	missing := s.do(http.MethodGet, "/api/v1/shopping-list/unknown", "owner", nil)
	s.Equal(http.StatusGone, missing.Code)
}

func (s *ServerTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	data := decode(rec)["data"].(map[string]interface{})
	s.Equal("healthy", data["status"])
}

func (s *ServerTestSuite) TestStreamImportSendsProgressThenResult() {
	s.model.On("Generate", mock.Anything, mock.Anything).Return(modelAnswer, nil)

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	header := http.Header{}
	header.Set("X-Session-ID", "streamer")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/imports/stream", header)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.WriteJSON(textImport()))

	var types []string
	var last map[string]interface{}
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg["type"].(string))
		last = msg
		if msg["type"] != "progress" {
			break
		}
	}

	s.Equal([]string{"progress", "progress", "result"}, types)
	result := last["result"].(map[string]interface{})
	s.Equal("Tomatensuppe", result["recipe"].(map[string]interface{})["title"])
}

func (s *ServerTestSuite) TestStreamImportReportsValidationError() {
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/imports/stream", nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.WriteJSON(map[string]interface{}{"sources": []interface{}{}}))

	var msg map[string]interface{}
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal("error", msg["type"])
	s.Equal("VALIDATION_FAILED", msg["error"].(map[string]interface{})["code"])
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
