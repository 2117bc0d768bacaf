package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TenantCache stores resolved tenants. Only active tenants are cached.
type TenantCache interface {
	Get(ctx context.Context, orgID uuid.UUID) (*eca.Tenant, bool, error)
	Set(ctx context.Context, tenant *eca.Tenant, ttl time.Duration) error
	Delete(ctx context.Context, orgID uuid.UUID) error
}

// CachingTenantResolver decorates a TenantResolver with a TenantCache.
// Lookups that fail are never cached, so a newly activated organization
// resolves on its next request.
type CachingTenantResolver struct {
	next   eca.TenantResolver
	cache  TenantCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingTenantResolver creates a CachingTenantResolver
func NewCachingTenantResolver(next eca.TenantResolver, cache TenantCache, ttl time.Duration, logger *zap.Logger) *CachingTenantResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingTenantResolver{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Resolve returns the cached tenant or resolves and caches it
func (r *CachingTenantResolver) Resolve(ctx context.Context, orgID uuid.UUID) (*eca.Tenant, error) {
	if t, ok, err := r.cache.Get(ctx, orgID); err != nil {
		r.logger.Warn("tenant cache read failed", zap.String("organization_id", orgID.String()), zap.Error(err))
	} else if ok && t.IsActive() {
		return t, nil
	}

	t, err := r.next.Resolve(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, t, r.ttl); err != nil {
		r.logger.Warn("tenant cache write failed", zap.String("organization_id", orgID.String()), zap.Error(err))
	}
	return t, nil
}

// Invalidate drops a cached tenant, e.g. after suspension
func (r *CachingTenantResolver) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	return r.cache.Delete(ctx, orgID)
}

type cachedTenant struct {
	tenant    eca.Tenant
	expiresAt time.Time
}

// InMemoryTenantCache is a TTL map of tenants
type InMemoryTenantCache struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]cachedTenant
	now     func() time.Time
}

// NewInMemoryTenantCache creates an empty in-memory tenant cache
func NewInMemoryTenantCache() *InMemoryTenantCache {
	return &InMemoryTenantCache{tenants: make(map[uuid.UUID]cachedTenant), now: time.Now}
}

func (c *InMemoryTenantCache) Get(_ context.Context, orgID uuid.UUID) (*eca.Tenant, bool, error) {
	c.mu.RLock()
	entry, ok := c.tenants[orgID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	t := entry.tenant
	return &t, true, nil
}

func (c *InMemoryTenantCache) Set(_ context.Context, tenant *eca.Tenant, ttl time.Duration) error {
	c.mu.Lock()
	c.tenants[tenant.ID] = cachedTenant{tenant: *tenant, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryTenantCache) Delete(_ context.Context, orgID uuid.UUID) error {
	c.mu.Lock()
	delete(c.tenants, orgID)
	c.mu.Unlock()
	return nil
}

// RedisTenantCache stores tenants as JSON under a key prefix
type RedisTenantCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTenantCache creates a Redis-backed tenant cache
func NewRedisTenantCache(client redis.UniversalClient, keyPrefix string) *RedisTenantCache {
	if keyPrefix == "" {
		keyPrefix = "eca:tenant:"
	}
	return &RedisTenantCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisTenantCache) Get(ctx context.Context, orgID uuid.UUID) (*eca.Tenant, bool, error) {
	b, err := c.client.Get(ctx, c.keyPrefix+orgID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read tenant %s: %w", orgID, err)
	}
	var t eca.Tenant
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached tenant %s: %w", orgID, err)
	}
	return &t, true, nil
}

func (c *RedisTenantCache) Set(ctx context.Context, tenant *eca.Tenant, ttl time.Duration) error {
	b, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("failed to encode tenant %s: %w", tenant.ID, err)
	}
	return c.client.Set(ctx, c.keyPrefix+tenant.ID.String(), b, ttl).Err()
}

func (c *RedisTenantCache) Delete(ctx context.Context, orgID uuid.UUID) error {
	return c.client.Del(ctx, c.keyPrefix+orgID.String()).Err()
}

var (
	_ eca.TenantResolver = (*CachingTenantResolver)(nil)
	_ TenantCache        = (*InMemoryTenantCache)(nil)
	_ TenantCache        = (*RedisTenantCache)(nil)
)
