package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greenhouse-assistant/backend/ai"
	"greenhouse-assistant/backend/internal/service"
	"greenhouse-assistant/backend/internal/testutil"
	"greenhouse-assistant/backend/pkg/config"
	"greenhouse-assistant/backend/pkg/di"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
	"greenhouse-assistant/backend/pkg/secrets"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoGenerator struct {
	last []ai.Turn
}

func (g *echoGenerator) Generate(_ context.Context, contents []ai.Turn) (string, error) {
	g.last = contents
	return "Ventilate the greenhouse.", nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Server.Version = "test"
	cfg.Database.Timeout = 5 * time.Second
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiryHours = time.Hour
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000
	cfg.Security.AIRateLimit = 1000
	cfg.Security.AIRateLimitBurst = 1000
	cfg.Security.AllowedOrigins = []string{"*"}
	cfg.Security.MaxBodySize = 1 << 20
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Minute
	cfg.Cache.MaxSize = 100
	cfg.Cache.PurgeWindow = time.Minute
	cfg.Observability.MetricsPath = "/metrics"
	cfg.Health.CheckPeriod = time.Minute
	return cfg
}

type testServer struct {
	t      *testing.T
	router *Router
	gen    *echoGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	secrets.SetManager(secrets.Static{})

	log := logger.Discard()
	container, err := di.New(testutil.NewDB(t), testConfig(), log)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	gen := &echoGenerator{}
	client, err := ai.NewClient(gen, ai.Options{SystemPrompt: "You are a greenhouse assistant."})
	require.NoError(t, err)
	container.AI = ai.Ready(client)
	container.ChatService = service.NewChatService(container.Chats, container.AI, log)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	r := New(container, Options{Metrics: metrics})
	r.SetupRoutes()
	return &testServer{t: t, router: r, gen: gen}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(username string) (uint, string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": username, "password": "Secret123"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func decodeID(t *testing.T, rec *httptest.ResponseRecorder) uint {
	t.Helper()
	var body struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotZero(t, body.ID)
	return body.ID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	_, token := s.signup("grower")

	rec := s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": "grower", "password": "Secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": "weak", "password": "password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "grower", "password": "Wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "grower", "password": "Secret123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"grower"`)

	rec = s.do(http.MethodGet, "/api/v1/greenhouses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatConversation(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.signup("grower")

	rec := s.do(http.MethodPost, "/api/v1/chats", token, gin.H{"name": "Tomato bed"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chatID := decodeID(t, rec)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/messages", chatID), token, gin.H{
		"message":     "Is it too hot?",
		"sensor_data": gin.H{"temperature": 31.5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Ventilate the greenhouse.")

	require.NotEmpty(t, s.gen.last)
	last := s.gen.last[len(s.gen.last)-1]
	assert.Equal(t, ai.UserTurn("Is it too hot?\n\n[SENSOR DATA]\n- temperature: 31.5"), last)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Is it too hot?"`)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/chats?owner=%d", userID+1), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, otherToken := s.signup("neighbour")
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/chats/%d", chatID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGreenhouseSensorFlow(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("grower")

	rec := s.do(http.MethodPost, "/api/v1/greenhouses", token, gin.H{"name": "North house"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ghID := decodeID(t, rec)

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/greenhouses/%d", ghID), token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/sensors", token, gin.H{"name": "t1", "type": "temperature", "greenhouse_id": ghID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sensorID := decodeID(t, rec)

	rec = s.do(http.MethodPost, "/api/v1/sensors", token, gin.H{"name": "x", "type": "pressure", "greenhouse_id": ghID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/v1/sensors/%d/readings/bulk", sensorID), token, gin.H{"readings": []float64{20.5, 21.5}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/greenhouses/%d/sensor-data", ghID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sensor_data":{"temperature":21.5}}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/plants", token, gin.H{"name": "Roma", "type": "tomato", "greenhouse_id": ghID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plantID := decodeID(t, rec)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/v1/plants/%d/analyses/classify", plantID), token, gin.H{"image_url": "https://example.com/leaf.jpg"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeConfiguration, errorCode(t, rec))

	_, otherToken := s.signup("neighbour")
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/greenhouses/%d", ghID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/sensors/%d", sensorID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/greenhouses/%d", ghID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/sensors/%d", sensorID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserUpdateIsSelfOnly(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.signup("grower")
	otherID, _ := s.signup("neighbour")

	rec := s.do(http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", otherID), token, gin.H{"username": "taken"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", userID), token, gin.H{"username": "neighbour"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USERNAME_TAKEN", errorCode(t, rec))

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", userID), token, gin.H{"username": "gardener"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users?limit=101", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpsRoutes(t *testing.T) {
	s := newTestServer(t)
	s.router.Container.Health.RunChecks(context.Background())

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "database")

	rec = s.do(http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
