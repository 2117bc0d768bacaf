package models

import (
	"github.com/erp/eca/internal/domain/eca"
	"github.com/google/uuid"
)

// EntityModel is the persistence model for BusinessEntity.
// (organization_id, entity_type, external_id) is unique among live rows.
type EntityModel struct {
	BaseModel
	EntityType eca.EntityType `gorm:"type:varchar(50);not null"`
	ExternalID string         `gorm:"type:varchar(255);not null"`
	Attributes JSONMap        `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (EntityModel) TableName() string {
	return "eca_entities"
}

// ToDomain converts the persistence model to a domain entity
func (m *EntityModel) ToDomain() *eca.BusinessEntity {
	return &eca.BusinessEntity{
		BaseEntity: m.BaseModel.ToDomain(),
		EntityType: m.EntityType,
		ExternalID: m.ExternalID,
		Attributes: eca.Attributes(m.Attributes).Clone(),
	}
}

// EntityModelFromDomain creates a persistence model from a domain entity
func EntityModelFromDomain(e *eca.BusinessEntity) *EntityModel {
	m := &EntityModel{
		EntityType: e.EntityType,
		ExternalID: e.ExternalID,
		Attributes: JSONMap(e.Attributes.Clone()),
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// RelationshipModel is the persistence model for BusinessRelationship
type RelationshipModel struct {
	BaseModel
	SourceID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	TargetID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	RelationshipType eca.RelationshipType `gorm:"type:varchar(50);not null"`
	Attributes       JSONMap              `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (RelationshipModel) TableName() string {
	return "eca_relationships"
}

// ToDomain converts the persistence model to a domain relationship
func (m *RelationshipModel) ToDomain() *eca.BusinessRelationship {
	return &eca.BusinessRelationship{
		BaseEntity:       m.BaseModel.ToDomain(),
		SourceID:         m.SourceID,
		TargetID:         m.TargetID,
		RelationshipType: m.RelationshipType,
		Attributes:       eca.Attributes(m.Attributes).Clone(),
	}
}

// RelationshipModelFromDomain creates a persistence model from a domain relationship
func RelationshipModelFromDomain(r *eca.BusinessRelationship) *RelationshipModel {
	m := &RelationshipModel{
		SourceID:         r.SourceID,
		TargetID:         r.TargetID,
		RelationshipType: r.RelationshipType,
		Attributes:       JSONMap(r.Attributes.Clone()),
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// TransactionModel is the persistence model for BusinessTransaction
type TransactionModel struct {
	BaseModel
	TransactionType eca.TransactionType `gorm:"type:varchar(50);not null"`
	ExternalID      *string             `gorm:"type:varchar(255)"`
	Status          eca.BusinessState   `gorm:"type:varchar(50);not null;index"`
	Attributes      JSONMap             `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "eca_transactions"
}

// ToDomain converts the persistence model to a domain transaction
func (m *TransactionModel) ToDomain() *eca.BusinessTransaction {
	tx := &eca.BusinessTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		TransactionType: m.TransactionType,
		Status:          m.Status,
		Attributes:      eca.Attributes(m.Attributes).Clone(),
	}
	if m.ExternalID != nil {
		ext := *m.ExternalID
		tx.ExternalID = &ext
	}
	return tx
}

// TransactionModelFromDomain creates a persistence model from a domain transaction
func TransactionModelFromDomain(t *eca.BusinessTransaction) *TransactionModel {
	m := &TransactionModel{
		TransactionType: t.TransactionType,
		Status:          t.Status,
		Attributes:      JSONMap(t.Attributes.Clone()),
	}
	if t.ExternalID != nil {
		ext := *t.ExternalID
		m.ExternalID = &ext
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}
