package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(l *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(RequestIDContextKey, "req-42")
		c.Next()
	})
	r.Use(GinMiddleware(l))
	return r
}

func httpEntries(recorded *observer.ObservedLogs) []observer.LoggedEntry {
	return recorded.FilterMessage("HTTP Request").All()
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{http.StatusGatewayTimeout, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			r := newTestRouter(zap.New(core))
			r.POST("/api/v1/webhooks/eca", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/eca", nil))

			entries := httpEntries(recorded)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			m := entries[0].ContextMap()
			assert.Equal(t, int64(tt.status), m["status"])
			assert.Equal(t, "/api/v1/webhooks/eca", m["route"])
			assert.Equal(t, "req-42", m["request_id"])
		})
	}
}

func TestGinMiddleware_InstallsContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	r := newTestRouter(zap.New(core))
	r.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "req-42", GetRequestID(c.Request.Context()))
		L(c.Request.Context()).Info("from handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	inner := recorded.FilterMessage("from handler").All()
	require.Len(t, inner, 1)
	assert.Equal(t, "req-42", inner[0].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("bare 500 without responder", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)
		r := gin.New()
		r.Use(Recovery(zap.New(core), nil))
		r.GET("/boom", func(c *gin.Context) { panic("boom") })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		entries := recorded.FilterMessage("Panic recovered").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "boom", entries[0].ContextMap()["panic"])
	})

	t.Run("responder writes the body", func(t *testing.T) {
		core, _ := observer.New(zapcore.ErrorLevel)
		r := gin.New()
		r.Use(Recovery(zap.New(core), func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		}))
		r.GET("/boom", func(c *gin.Context) { panic("boom") })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false}`, w.Body.String())
	})
}
