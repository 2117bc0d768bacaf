package eca

import (
	"strings"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
)

// BusinessEntity is a generic business object (product, location, supplier,
// customer) identified within an organization by (EntityType, ExternalID)
type BusinessEntity struct {
	shared.BaseEntity
	EntityType EntityType
	ExternalID string
	Attributes Attributes
}

// NewBusinessEntity creates a new entity in the given organization
func NewBusinessEntity(orgID uuid.UUID, entityType EntityType, externalID string, attrs Attributes) (*BusinessEntity, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Organization ID cannot be empty")
	}
	if !entityType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unknown entity type: "+string(entityType))
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "External ID cannot be empty")
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	return &BusinessEntity{
		BaseEntity: shared.NewBaseEntity(orgID),
		EntityType: entityType,
		ExternalID: externalID,
		Attributes: attrs.Clone(),
	}, nil
}

// BusinessRelationship is a directed typed edge between two entities
type BusinessRelationship struct {
	shared.BaseEntity
	SourceID         uuid.UUID
	TargetID         uuid.UUID
	RelationshipType RelationshipType
	Attributes       Attributes
}

// NewBusinessRelationship creates a new edge in the given organization
func NewBusinessRelationship(orgID uuid.UUID, relType RelationshipType, sourceID, targetID uuid.UUID, attrs Attributes) (*BusinessRelationship, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Organization ID cannot be empty")
	}
	if !relType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unknown relationship type: "+string(relType))
	}
	if sourceID == uuid.Nil || targetID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Relationship endpoints cannot be empty")
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	return &BusinessRelationship{
		BaseEntity:       shared.NewBaseEntity(orgID),
		SourceID:         sourceID,
		TargetID:         targetID,
		RelationshipType: relType,
		Attributes:       attrs.Clone(),
	}, nil
}

// BusinessTransaction is a business occurrence that moves through states
type BusinessTransaction struct {
	shared.BaseEntity
	TransactionType TransactionType
	ExternalID      *string
	Status          BusinessState
	Attributes      Attributes
}

// NewBusinessTransaction creates a transaction at the given status
func NewBusinessTransaction(orgID uuid.UUID, txType TransactionType, externalID *string, status BusinessState, attrs Attributes) (*BusinessTransaction, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Organization ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unknown transaction type: "+string(txType))
	}
	if externalID != nil && strings.TrimSpace(*externalID) == "" {
		externalID = nil
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	return &BusinessTransaction{
		BaseEntity:      shared.NewBaseEntity(orgID),
		TransactionType: txType,
		ExternalID:      externalID,
		Status:          status,
		Attributes:      attrs.Clone(),
	}, nil
}

// ExternalIDValue returns the external id or the empty string
func (t *BusinessTransaction) ExternalIDValue() string {
	if t.ExternalID == nil {
		return ""
	}
	return *t.ExternalID
}

var (
	_ shared.Entity = (*BusinessEntity)(nil)
	_ shared.Entity = (*BusinessRelationship)(nil)
	_ shared.Entity = (*BusinessTransaction)(nil)
)
