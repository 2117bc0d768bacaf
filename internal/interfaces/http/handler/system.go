package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/erp/eca/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck checks one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// SystemHandler serves liveness and readiness endpoints
type SystemHandler struct {
	service string
	version string
	checks  map[string]HealthCheck
	timeout time.Duration
	now     func() time.Time
}

// NewSystemHandler creates a SystemHandler. checks run on every readiness
// check, each bounded by timeout.
func NewSystemHandler(service, version string, checks map[string]HealthCheck, timeout time.Duration) *SystemHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SystemHandler{
		service: service,
		version: version,
		checks:  checks,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterEngine mounts the health endpoints at the engine root, outside the API version
func (h *SystemHandler) RegisterEngine(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}

// Health godoc
// @ID           getSystemHealth
// @Summary      Liveness check
// @Description  Reports that the process is serving
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    dto.HealthStatusOK,
		Service:   h.service,
		Version:   h.version,
		Timestamp: h.now(),
	})
}

// Ready godoc
// @ID           getSystemReady
// @Summary      Readiness check
// @Description  Runs the dependency checks and answers 503 if any fails
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Failure      503 {object} dto.HealthResponse
// @Router       /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := dto.HealthResponse{
		Status:    dto.HealthStatusOK,
		Service:   h.service,
		Version:   h.version,
		Timestamp: h.now(),
		Checks:    make(map[string]string, len(names)),
	}
	status := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = dto.HealthStatusDegraded
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = dto.HealthStatusOK
	}
	c.JSON(status, resp)
}
