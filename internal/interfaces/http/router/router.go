// Package router assembles the gin engine of the webhook server.
package router

import (
	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/erp/eca/internal/interfaces/http/handler"
	"github.com/erp/eca/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineRegistrar registers routes outside the versioned API group
type EngineRegistrar interface {
	RegisterEngine(engine *gin.Engine)
}

// Config holds the cross-cutting HTTP settings
type Config struct {
	ServiceName    string
	Mode           string // gin mode: debug, release, test
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        bool
	Profiling      bool
	Meter          metric.Meter
	Logger         *zap.Logger
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	engineRegs []EngineRegistrar
	swagger    bool
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithSwagger serves the API documentation at /swagger/*any from the
// document registered by the generated docs package.
func WithSwagger(enabled bool) RouterOption {
	return func(r *Router) {
		r.swagger = enabled
	}
}

// NewEngine builds a gin engine with the standard middleware chain:
// recovery, request id, tracing, request logging, metrics, profiling labels,
// security headers and the body limit, in that order
func NewEngine(cfg Config) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		logger.Recovery(log, handler.RecoveryResponse),
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.Profiling(cfg.Profiling),
		middleware.Secure(),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	return engine, nil
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar mounted under /api/<version>
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterEngine adds a registrar mounted at the engine root
func (r *Router) RegisterEngine(registrar EngineRegistrar) *Router {
	r.engineRegs = append(r.engineRegs, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() *gin.Engine {
	if r.swagger {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	for _, reg := range r.engineRegs {
		reg.RegisterEngine(r.engine)
	}
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	return r.engine
}
