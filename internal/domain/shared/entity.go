package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetOrganizationID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
	IsDeleted() bool
}

// BaseEntity provides the identity, tenancy and lifecycle fields shared by
// every ECA record. Records are soft deleted only.
type BaseEntity struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetOrganizationID returns the owning organization
func (e *BaseEntity) GetOrganizationID() uuid.UUID {
	return e.OrganizationID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// IsDeleted reports whether the record has been soft deleted
func (e *BaseEntity) IsDeleted() bool {
	return e.DeletedAt != nil
}

// MarkDeleted soft deletes the record at the given instant
func (e *BaseEntity) MarkDeleted(at time.Time) {
	e.DeletedAt = &at
	e.UpdatedAt = at
}

// NewBaseEntity creates a new base entity with generated ID for an organization
func NewBaseEntity(orgID uuid.UUID) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:             uuid.New(),
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
