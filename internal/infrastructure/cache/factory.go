package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ledger kinds handled by LedgerFactory
const (
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

// LedgerFactory creates event ledgers based on configuration
type LedgerFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	sweepInterval         time.Duration
}

// LedgerFactoryOption is a functional option for configuring the factory
type LedgerFactoryOption func(*LedgerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LedgerFactoryOption {
	return func(f *LedgerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory ledger. Default is true.
func WithInMemoryFallback(allow bool) LedgerFactoryOption {
	return func(f *LedgerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithSweepInterval sets how often the in-memory ledger drops expired entries
func WithSweepInterval(d time.Duration) LedgerFactoryOption {
	return func(f *LedgerFactory) {
		f.sweepInterval = d
	}
}

// NewLedgerFactory creates a new factory
func NewLedgerFactory(cfg config.RedisConfig, opts ...LedgerFactoryOption) *LedgerFactory {
	f := &LedgerFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		sweepInterval:         time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the ledger for kind. An empty kind means memory.
func (f *LedgerFactory) Create(ctx context.Context, kind string) (shared.IdempotencyStore, error) {
	switch kind {
	case "", LedgerMemory:
		return f.CreateInMemory(), nil
	case LedgerRedis:
		return f.createRedisWithFallback(ctx)
	default:
		return nil, fmt.Errorf("unknown ledger kind %q", kind)
	}
}

// CreateInMemory creates a process-local ledger.
// WARNING: it does not share state across instances, so replays arriving at
// different instances are not detected.
func (f *LedgerFactory) CreateInMemory() *InMemoryEventLedger {
	return NewInMemoryEventLedger(f.sweepInterval)
}

// CreateRedis creates a Redis ledger that owns its connection
func (f *LedgerFactory) CreateRedis(ctx context.Context) (*RedisEventLedger, error) {
	client, err := NewRedisClient(ctx, f.redisConfig.Addr(), f.redisConfig.Password, f.redisConfig.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis event ledger: %w", err)
	}
	return NewOwnedRedisEventLedger(client, DefaultLedgerKeyPrefix), nil
}

func (f *LedgerFactory) createRedisWithFallback(ctx context.Context) (shared.IdempotencyStore, error) {
	ledger, err := f.CreateRedis(ctx)
	if err == nil {
		f.logger.Info("using Redis event ledger", zap.String("addr", f.redisConfig.Addr()))
		return ledger, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for event ledger but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory event ledger. "+
		"Replays delivered to other instances will not be detected.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
