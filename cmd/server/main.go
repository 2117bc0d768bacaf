// Command server runs the ECA webhook engine over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/infrastructure/config"
	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/erp/eca/internal/infrastructure/telemetry"
	"github.com/erp/eca/internal/interfaces/http/handler"
	"github.com/erp/eca/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/erp/eca/docs"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			ECA Webhook Engine API
//	@version		1.0
//	@description	Turns business event webhooks into entities, relationships and state-guarded transactions.

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	base, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, base)
	if err != nil {
		base.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log := telemetry.BridgeLogger(base, cfg.Telemetry.ServiceName, providers.LoggerProvider(), logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ECA engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("store", cfg.ECA.Store),
		zap.String("ledger", cfg.ECA.Ledger),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileAlloc:      cfg.Telemetry.ProfileAlloc,
		ProfileGoroutines: cfg.Telemetry.ProfileGoroutines,
	}, log)
	if err != nil {
		log.Warn("Failed to start profiler, continuing without profiling", zap.Error(err))
	} else if profiler.IsEnabled() {
		providers.EnableSpanProfiles()
	}

	be, err := newBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize backend", zap.Error(err))
	}

	opts := ecaapp.DefaultOptions()
	opts.RequestTimeout = cfg.ECA.RequestTimeout
	opts.AuditTimeout = cfg.ECA.AuditTimeout
	opts.LedgerTTL = cfg.ECA.LedgerTTL
	processor := ecaapp.NewProcessor(be.deps, opts.WithStrictActions(cfg.ECA.StrictActions...))

	meter := providers.Meter(telemetry.MeterName)
	if metrics, err := telemetry.NewEventMetrics(meter); err != nil {
		log.Warn("Failed to create event metrics", zap.Error(err))
	} else {
		processor.SetEventMetrics(metrics)
	}

	mode := gin.DebugMode
	if cfg.IsProduction() {
		mode = gin.ReleaseMode
	}
	engine, err := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		Mode:           mode,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing:        providers.IsEnabled(),
		Profiling:      profiler != nil && profiler.IsEnabled(),
		Meter:          meter,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithSwagger(cfg.HTTP.Swagger)).
		RegisterEngine(handler.NewSystemHandler(cfg.App.Name, version, be.checks, 2*time.Second)).
		Register(handler.NewWebhookHandler(processor, cfg.HTTP.MaxBodySize, log)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := be.Close(); err != nil {
		log.Error("Error releasing backend resources", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}
