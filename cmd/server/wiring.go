package main

import (
	"context"
	"errors"
	"fmt"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/audit"
	"github.com/erp/eca/internal/infrastructure/cache"
	"github.com/erp/eca/internal/infrastructure/config"
	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/erp/eca/internal/infrastructure/persistence"
	"github.com/erp/eca/internal/infrastructure/persistence/memory"
	"github.com/erp/eca/internal/infrastructure/telemetry"
	"github.com/erp/eca/internal/interfaces/http/handler"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backend holds the processor collaborators chosen by configuration and the
// resources to release on shutdown
type backend struct {
	deps    ecaapp.Dependencies
	checks  map[string]handler.HealthCheck
	closers []func() error
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *backend, err error) {
	b := &backend{checks: make(map[string]handler.HealthCheck)}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var repos *persistence.Repositories
	switch cfg.ECA.Store {
	case config.StoreDatabase:
		repos, err = openDatabase(cfg, log, b)
		if err != nil {
			return nil, err
		}
		b.deps.Tenants = repos.Tenants
		b.deps.Entities = repos.Entities
		b.deps.Relationships = repos.Relationships
		b.deps.Transactions = repos.Transactions
	case config.StoreMemory:
		store := memory.NewStore()
		tenants, err := seedTenants(cfg.ECA.SeedTenants)
		if err != nil {
			return nil, err
		}
		b.deps.Tenants = tenants
		b.deps.Entities = store
		b.deps.Relationships = store
		b.deps.Transactions = store
		log.Warn("Using in-memory store, state is lost on restart",
			zap.Int("tenants", len(cfg.ECA.SeedTenants)))
	}

	if b.deps.Ledger, err = newLedger(ctx, cfg, repos, log); err != nil {
		return nil, err
	}
	b.onClose(b.deps.Ledger.Close)

	if b.deps.Tenants, err = cacheTenants(ctx, cfg, b.deps.Tenants, log, b); err != nil {
		return nil, err
	}

	if b.deps.Audit, err = newAuditSink(cfg, repos, log, b); err != nil {
		return nil, err
	}
	b.deps.Logger = log
	return b, nil
}

func openDatabase(cfg *config.Config, log *zap.Logger, b *backend) (*persistence.Repositories, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithStatementLogging(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return nil, err
	}
	b.onClose(db.Close)
	log.Info("Database connected successfully",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		DBName:          cfg.Database.DBName,
		IncludeSQLVars:  cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	b.checks["database"] = func(context.Context) error { return db.Ping() }
	return persistence.NewRepositories(db.DB), nil
}

func seedTenants(ids []string) (*memory.TenantRegistry, error) {
	registry := memory.NewTenantRegistry()
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid eca.seed_tenants entry %q: %w", raw, err)
		}
		registry.Put(eca.Tenant{ID: id, Name: raw})
	}
	return registry, nil
}

func newLedger(ctx context.Context, cfg *config.Config, repos *persistence.Repositories, log *zap.Logger) (shared.IdempotencyStore, error) {
	if cfg.ECA.Ledger == config.LedgerDatabase {
		purged, err := repos.Ledger.Purge(ctx)
		if err != nil {
			log.Warn("Failed to purge expired ledger entries", zap.Error(err))
		}
		log.Info("Using database event ledger", zap.Int64("purged", purged))
		return repos.Ledger, nil
	}
	factory := cache.NewLedgerFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	return factory.Create(ctx, cfg.ECA.Ledger)
}

func cacheTenants(ctx context.Context, cfg *config.Config, next eca.TenantResolver, log *zap.Logger, b *backend) (eca.TenantResolver, error) {
	switch cfg.ECA.TenantCache {
	case config.TenantCacheMemory:
		return cache.NewCachingTenantResolver(next, cache.NewInMemoryTenantCache(), cfg.ECA.TenantCacheTTL, log), nil
	case config.TenantCacheRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect tenant cache: %w", err)
		}
		b.onClose(client.Close)
		b.checks["redis"] = redisCheck(client)
		return cache.NewCachingTenantResolver(next, cache.NewRedisTenantCache(client, ""), cfg.ECA.TenantCacheTTL, log), nil
	default:
		return next, nil
	}
}

func redisCheck(client redis.UniversalClient) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func newAuditSink(cfg *config.Config, repos *persistence.Repositories, log *zap.Logger, b *backend) (eca.AuditSink, error) {
	sinks := make([]eca.AuditSink, 0, len(cfg.ECA.AuditSinks))
	for _, name := range cfg.ECA.AuditSinks {
		switch name {
		case config.AuditSinkDatabase:
			sinks = append(sinks, repos.Audit)
		case config.AuditSinkLog:
			sinks = append(sinks, audit.NewLogSink(log))
		case config.AuditSinkKafka:
			writer := audit.NewKafkaWriter(audit.KafkaConfig{
				Brokers:      cfg.Kafka.Brokers,
				Topic:        cfg.Kafka.AuditTopic,
				BatchTimeout: cfg.Kafka.BatchTimeout,
			})
			sink := audit.NewKafkaSink(writer, cfg.Kafka.AuditTopic)
			b.onClose(sink.Close)
			sinks = append(sinks, sink)
			log.Info("Publishing audit records to Kafka",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.AuditTopic),
			)
		default:
			return nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}
	return audit.NewMultiSink(sinks...), nil
}
