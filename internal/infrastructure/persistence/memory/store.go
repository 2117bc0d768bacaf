// Package memory provides in-process implementations of the ECA store
// adapters. They honor the same natural-key and compare-and-set semantics
// as the database adapters and are safe for concurrent use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
)

type entityKey struct {
	org        uuid.UUID
	entityType eca.EntityType
	externalID string
}

type txKey struct {
	org        uuid.UUID
	txType     eca.TransactionType
	externalID string
}

// Store holds entities, relationships and transactions in memory
type Store struct {
	mu            sync.RWMutex
	entities      map[uuid.UUID]*eca.BusinessEntity
	entityIndex   map[entityKey]uuid.UUID
	relationships []*eca.BusinessRelationship
	transactions  map[uuid.UUID]*eca.BusinessTransaction
	txIndex       map[txKey]uuid.UUID
	now           func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		entities:     make(map[uuid.UUID]*eca.BusinessEntity),
		entityIndex:  make(map[entityKey]uuid.UUID),
		transactions: make(map[uuid.UUID]*eca.BusinessTransaction),
		txIndex:      make(map[txKey]uuid.UUID),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ eca.EntityRepository       = (*Store)(nil)
	_ eca.RelationshipRepository = (*Store)(nil)
	_ eca.TransactionRepository  = (*Store)(nil)
)

// UpsertEntity creates or merges an entity on its natural key
func (s *Store) UpsertEntity(ctx context.Context, orgID uuid.UUID, entityType eca.EntityType, externalID string, attrs eca.Attributes) (*eca.BusinessEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidate, err := eca.NewBusinessEntity(orgID, entityType, externalID, attrs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey{orgID, entityType, candidate.ExternalID}
	if id, ok := s.entityIndex[key]; ok {
		existing := s.entities[id]
		existing.Attributes = existing.Attributes.Merge(candidate.Attributes)
		existing.UpdatedAt = s.now()
		return copyEntity(existing), nil
	}
	s.entities[candidate.ID] = candidate
	s.entityIndex[key] = candidate.ID
	return copyEntity(candidate), nil
}

// FindEntityByExternalID returns nil, nil when no live entity matches
func (s *Store) FindEntityByExternalID(ctx context.Context, orgID uuid.UUID, entityType eca.EntityType, externalID string) (*eca.BusinessEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entityIndex[entityKey{orgID, entityType, externalID}]
	if !ok {
		return nil, nil
	}
	return copyEntity(s.entities[id]), nil
}

// SoftDeleteEntity marks the entity deleted and frees its natural key
func (s *Store) SoftDeleteEntity(ctx context.Context, orgID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok || e.OrganizationID != orgID || e.IsDeleted() {
		return shared.ErrNotFound
	}
	e.MarkDeleted(s.now())
	delete(s.entityIndex, entityKey{e.OrganizationID, e.EntityType, e.ExternalID})
	return nil
}

// CreateRelationship upserts an edge according to the type's multiplicity
func (s *Store) CreateRelationship(ctx context.Context, orgID uuid.UUID, relType eca.RelationshipType, sourceID, targetID uuid.UUID, attrs eca.Attributes) (*eca.BusinessRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidate, err := eca.NewBusinessRelationship(orgID, relType, sourceID, targetID, attrs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	single := relType.Multiplicity() == eca.MultiplicitySingle
	for _, r := range s.relationships {
		if r.IsDeleted() || r.OrganizationID != orgID || r.SourceID != sourceID || r.RelationshipType != relType {
			continue
		}
		if single || r.TargetID == targetID {
			r.TargetID = targetID
			r.Attributes = r.Attributes.Merge(candidate.Attributes)
			r.UpdatedAt = s.now()
			return copyRelationship(r), nil
		}
	}
	s.relationships = append(s.relationships, candidate)
	return copyRelationship(candidate), nil
}

// FindRelationships returns live edges matching the filter in creation order
func (s *Store) FindRelationships(ctx context.Context, filter eca.RelationshipFilter) ([]eca.BusinessRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]eca.BusinessRelationship, 0)
	for _, r := range s.relationships {
		if r.IsDeleted() || r.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.SourceID != uuid.Nil && r.SourceID != filter.SourceID {
			continue
		}
		if filter.TargetID != uuid.Nil && r.TargetID != filter.TargetID {
			continue
		}
		if filter.RelationshipType != "" && r.RelationshipType != filter.RelationshipType {
			continue
		}
		out = append(out, *copyRelationship(r))
	}
	return out, nil
}

// CreateTransaction inserts tx or returns the live one with the same key
func (s *Store) CreateTransaction(ctx context.Context, tx *eca.BusinessTransaction) (*eca.BusinessTransaction, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ExternalID != nil {
		key := txKey{tx.OrganizationID, tx.TransactionType, *tx.ExternalID}
		if id, ok := s.txIndex[key]; ok {
			return copyTransaction(s.transactions[id]), false, nil
		}
		s.txIndex[key] = tx.ID
	}
	stored := copyTransaction(tx)
	s.transactions[stored.ID] = stored
	return copyTransaction(stored), true, nil
}

// FindTransactionByExternalID returns nil, nil when absent
func (s *Store) FindTransactionByExternalID(ctx context.Context, orgID uuid.UUID, txType eca.TransactionType, externalID string) (*eca.BusinessTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.txIndex[txKey{orgID, txType, externalID}]
	if !ok {
		return nil, nil
	}
	return copyTransaction(s.transactions[id]), nil
}

// FindTransactionByID returns nil, nil when absent or owned by another organization
func (s *Store) FindTransactionByID(ctx context.Context, orgID, id uuid.UUID) (*eca.BusinessTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OrganizationID != orgID || tx.IsDeleted() {
		return nil, nil
	}
	return copyTransaction(tx), nil
}

// CompareAndSetStatus updates status only if it still equals from
func (s *Store) CompareAndSetStatus(ctx context.Context, orgID, id uuid.UUID, from, to eca.BusinessState, attrs eca.Attributes) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OrganizationID != orgID || tx.IsDeleted() || tx.Status != from {
		return false, nil
	}
	tx.Status = to
	tx.Attributes = tx.Attributes.Merge(attrs)
	tx.UpdatedAt = s.now()
	return true, nil
}

// Transactions returns a snapshot of every live transaction of an organization
func (s *Store) Transactions(orgID uuid.UUID) []eca.BusinessTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]eca.BusinessTransaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if tx.OrganizationID == orgID && !tx.IsDeleted() {
			out = append(out, *copyTransaction(tx))
		}
	}
	return out
}

// Entities returns a snapshot of every live entity of an organization
func (s *Store) Entities(orgID uuid.UUID) []eca.BusinessEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]eca.BusinessEntity, 0, len(s.entityIndex))
	for key, id := range s.entityIndex {
		if key.org == orgID {
			out = append(out, *copyEntity(s.entities[id]))
		}
	}
	return out
}

func copyEntity(e *eca.BusinessEntity) *eca.BusinessEntity {
	cp := *e
	cp.Attributes = e.Attributes.Clone()
	return &cp
}

func copyRelationship(r *eca.BusinessRelationship) *eca.BusinessRelationship {
	cp := *r
	cp.Attributes = r.Attributes.Clone()
	return &cp
}

func copyTransaction(tx *eca.BusinessTransaction) *eca.BusinessTransaction {
	cp := *tx
	cp.Attributes = tx.Attributes.Clone()
	if tx.ExternalID != nil {
		ext := *tx.ExternalID
		cp.ExternalID = &ext
	}
	return &cp
}
