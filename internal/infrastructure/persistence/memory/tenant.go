package memory

import (
	"context"
	"sync"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantRegistry is an in-memory TenantResolver
type TenantRegistry struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]eca.Tenant
}

// NewTenantRegistry creates a registry pre-populated with tenants
func NewTenantRegistry(tenants ...eca.Tenant) *TenantRegistry {
	r := &TenantRegistry{tenants: make(map[uuid.UUID]eca.Tenant, len(tenants))}
	for _, t := range tenants {
		r.Put(t)
	}
	return r
}

// Put adds or replaces a tenant
func (r *TenantRegistry) Put(t eca.Tenant) {
	if t.Status == "" {
		t.Status = eca.TenantStatusActive
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
		t.UpdatedAt = t.CreatedAt
	}
	r.mu.Lock()
	r.tenants[t.ID] = t
	r.mu.Unlock()
}

// AddActive registers an active tenant with a generated id
func (r *TenantRegistry) AddActive(name string) eca.Tenant {
	t := eca.Tenant{ID: uuid.New(), Name: name, Status: eca.TenantStatusActive}
	r.Put(t)
	return t
}

// Resolve returns the tenant if it exists and is active
func (r *TenantRegistry) Resolve(ctx context.Context, orgID uuid.UUID) (*eca.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	t, ok := r.tenants[orgID]
	r.mu.RUnlock()
	if !ok || !t.IsActive() {
		return nil, shared.ErrTenantNotFound
	}
	return &t, nil
}
