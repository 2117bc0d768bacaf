package eca

import (
	"context"

	"github.com/google/uuid"
)

// EntityRepository persists BusinessEntity records.
// Implementations must be safe for concurrent use.
type EntityRepository interface {
	// UpsertEntity creates the entity or, if a live entity with the same
	// (organization, type, external id) exists, merges attrs into it.
	// Keys in attrs win over stored keys.
	UpsertEntity(ctx context.Context, orgID uuid.UUID, entityType EntityType, externalID string, attrs Attributes) (*BusinessEntity, error)

	// FindEntityByExternalID returns nil, nil when no live entity matches
	FindEntityByExternalID(ctx context.Context, orgID uuid.UUID, entityType EntityType, externalID string) (*BusinessEntity, error)

	// SoftDeleteEntity marks the entity deleted; returns shared.ErrNotFound
	// if no live entity has the id
	SoftDeleteEntity(ctx context.Context, orgID, id uuid.UUID) error
}

// RelationshipFilter selects relationships within one organization.
// Zero-valued fields are ignored.
type RelationshipFilter struct {
	OrganizationID   uuid.UUID
	SourceID         uuid.UUID
	TargetID         uuid.UUID
	RelationshipType RelationshipType
}

// RelationshipRepository persists BusinessRelationship edges
type RelationshipRepository interface {
	// CreateRelationship is idempotent: a multi-valued type upserts on
	// (source, target, type); a single-valued type upserts on (source, type)
	// and re-points the target.
	CreateRelationship(ctx context.Context, orgID uuid.UUID, relType RelationshipType, sourceID, targetID uuid.UUID, attrs Attributes) (*BusinessRelationship, error)

	FindRelationships(ctx context.Context, filter RelationshipFilter) ([]BusinessRelationship, error)
}

// TransactionRepository persists BusinessTransaction records. Status changes
// go through TransactionStore, which consults the state machine first.
type TransactionRepository interface {
	// CreateTransaction inserts tx; when a live transaction with the same
	// (organization, type, external id) already exists it is returned
	// instead and created is false
	CreateTransaction(ctx context.Context, tx *BusinessTransaction) (stored *BusinessTransaction, created bool, err error)

	// FindTransactionByExternalID returns nil, nil when absent
	FindTransactionByExternalID(ctx context.Context, orgID uuid.UUID, txType TransactionType, externalID string) (*BusinessTransaction, error)

	// FindTransactionByID returns nil, nil when absent
	FindTransactionByID(ctx context.Context, orgID, id uuid.UUID) (*BusinessTransaction, error)

	// CompareAndSetStatus moves the transaction from -> to and merges attrs,
	// only if its current status is from. Returns false when no row matched.
	CompareAndSetStatus(ctx context.Context, orgID, id uuid.UUID, from, to BusinessState, attrs Attributes) (bool, error)
}
