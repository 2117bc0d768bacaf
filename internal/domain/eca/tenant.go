package eca

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the lifecycle status of an organization
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant is an organization that owns ECA records
type Tenant struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	Settings  Attributes   `json:"settings,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsActive reports whether the tenant may receive writes
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// TenantResolver confirms an organization exists and is active.
// It fails closed: any doubt yields shared.ErrTenantNotFound.
type TenantResolver interface {
	Resolve(ctx context.Context, orgID uuid.UUID) (*Tenant, error)
}
