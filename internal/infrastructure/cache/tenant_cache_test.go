package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testRedisConfig points at a port nothing listens on
func testRedisConfig() config.RedisConfig {
	return config.RedisConfig{Host: "127.0.0.1", Port: 1}
}

type MockTenantResolver struct {
	mock.Mock
}

func (m *MockTenantResolver) Resolve(ctx context.Context, orgID uuid.UUID) (*eca.Tenant, error) {
	args := m.Called(ctx, orgID)
	if t := args.Get(0); t != nil {
		return t.(*eca.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func activeTenant(id uuid.UUID) *eca.Tenant {
	return &eca.Tenant{ID: id, Name: "Acme", Status: eca.TenantStatusActive}
}

func TestCachingTenantResolver_CachesActiveTenants(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	next := new(MockTenantResolver)
	next.On("Resolve", mock.Anything, orgID).Return(activeTenant(orgID), nil).Once()

	r := NewCachingTenantResolver(next, NewInMemoryTenantCache(), time.Minute, nil)

	for i := 0; i < 3; i++ {
		tenant, err := r.Resolve(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, orgID, tenant.ID)
	}
	next.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestCachingTenantResolver_DoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	next := new(MockTenantResolver)
	next.On("Resolve", mock.Anything, orgID).Return(nil, shared.ErrTenantNotFound).Once()
	next.On("Resolve", mock.Anything, orgID).Return(activeTenant(orgID), nil).Once()

	r := NewCachingTenantResolver(next, NewInMemoryTenantCache(), time.Minute, nil)

	_, err := r.Resolve(ctx, orgID)
	require.Error(t, err)
	assert.True(t, shared.IsErrorCode(err, shared.CodeTenantNotFound))

	tenant, err := r.Resolve(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, orgID, tenant.ID)
	next.AssertExpectations(t)
}

func TestCachingTenantResolver_ExpiryAndInvalidate(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewInMemoryTenantCache()
	cache.now = clock.Now

	next := new(MockTenantResolver)
	next.On("Resolve", mock.Anything, orgID).Return(activeTenant(orgID), nil)

	r := NewCachingTenantResolver(next, cache, 30*time.Second, nil)

	_, err := r.Resolve(ctx, orgID)
	require.NoError(t, err)
	clock.Advance(31 * time.Second)
	_, err = r.Resolve(ctx, orgID)
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "Resolve", 2)

	require.NoError(t, r.Invalidate(ctx, orgID))
	_, err = r.Resolve(ctx, orgID)
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "Resolve", 3)
}

func TestInMemoryTenantCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	cache := NewInMemoryTenantCache()

	require.NoError(t, cache.Set(ctx, activeTenant(orgID), time.Minute))

	got, ok, err := cache.Get(ctx, orgID)
	require.NoError(t, err)
	require.True(t, ok)
	got.Name = "mutated"

	again, _, _ := cache.Get(ctx, orgID)
	assert.Equal(t, "Acme", again.Name)
}
