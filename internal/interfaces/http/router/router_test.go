package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/erp/eca/docs"
	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubProcessor struct{}

func (stubProcessor) Process(context.Context, []byte) *ecaapp.ECAWebhookResponse {
	return &ecaapp.ECAWebhookResponse{Success: true, Action: "sale"}
}

func (stubProcessor) Actions() []ecaapp.ActionInfo { return nil }

type panicRoutes struct{}

func (panicRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/panic", func(*gin.Context) { panic("boom") })
}

func newTestRouter(t *testing.T, cfg Config, opts ...RouterOption) *gin.Engine {
	t.Helper()
	cfg.Mode = gin.TestMode
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return NewRouter(engine, opts...).
		RegisterEngine(handler.NewSystemHandler("eca-engine", "test", nil, 0)).
		Register(handler.NewWebhookHandler(stubProcessor{}, 0, nil)).
		Register(panicRoutes{}).
		Setup()
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Equal(t, "v2", NewRouter(gin.New(), WithAPIVersion("v2")).apiVersion)
}

func TestRouter_Routes(t *testing.T) {
	engine := newTestRouter(t, Config{})

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodPost, "/api/v1/webhooks/eca", http.StatusOK},
		{http.MethodGet, "/api/v1/webhooks/eca/actions", http.StatusOK},
		{http.MethodGet, "/api/v2/webhooks/eca/actions", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`)))
		assert.Equal(t, tt.status, w.Code, tt.path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), tt.path)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"), tt.path)
	}
}

func TestRouter_APIVersion(t *testing.T) {
	engine := newTestRouter(t, Config{}, WithAPIVersion("v2"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/webhooks/eca/actions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_BodyLimit(t *testing.T) {
	engine := newTestRouter(t, Config{MaxBodySize: 8})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/eca", strings.NewReader(`{"too":"large"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), `"VALIDATION_ERROR"`)
}

func TestRouter_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	engine := newTestRouter(t, Config{Logger: zap.New(core)})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"INTERNAL_ERROR"`)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestNewEngine_RejectsInvalidProxies(t *testing.T) {
	_, err := NewEngine(Config{Mode: gin.TestMode, TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestRouter_Swagger(t *testing.T) {
	t.Run("serves the registered document when enabled", func(t *testing.T) {
		engine := newTestRouter(t, Config{}, WithSwagger(true))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/api/v1/webhooks/eca")
		assert.Contains(t, w.Body.String(), "handleECAWebhook")
	})

	t.Run("is not mounted by default", func(t *testing.T) {
		engine := newTestRouter(t, Config{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
