package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpsertEntity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orgID := uuid.New()

	first, err := s.UpsertEntity(ctx, orgID, eca.EntityTypeProduct, "SKU-1", eca.Attributes{"name": "Widget", "color": "red"})
	require.NoError(t, err)

	second, err := s.UpsertEntity(ctx, orgID, eca.EntityTypeProduct, "SKU-1", eca.Attributes{"color": "blue"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Widget", second.Attributes["name"])
	assert.Equal(t, "blue", second.Attributes["color"])
	assert.Len(t, s.Entities(orgID), 1)

	// same external id of a different type is a different entity
	loc, err := s.UpsertEntity(ctx, orgID, eca.EntityTypeLocation, "SKU-1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, loc.ID)

	// other organizations never see the entity
	other, err := s.FindEntityByExternalID(ctx, uuid.New(), eca.EntityTypeProduct, "SKU-1")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestStore_UpsertEntity_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orgID := uuid.New()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := s.UpsertEntity(ctx, orgID, eca.EntityTypeLocation, "WH-1", eca.Attributes{"n": i})
			require.NoError(t, err)
			ids[i] = e.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, s.Entities(orgID), 1)
}

func TestStore_SoftDeleteEntity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orgID := uuid.New()

	e, err := s.UpsertEntity(ctx, orgID, eca.EntityTypeSupplier, "SUP-1", nil)
	require.NoError(t, err)

	require.NoError(t, s.SoftDeleteEntity(ctx, orgID, e.ID))
	assert.ErrorIs(t, s.SoftDeleteEntity(ctx, orgID, e.ID), shared.ErrNotFound)

	found, err := s.FindEntityByExternalID(ctx, orgID, eca.EntityTypeSupplier, "SUP-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	again, err := s.UpsertEntity(ctx, orgID, eca.EntityTypeSupplier, "SUP-1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, again.ID)
}

func TestStore_CreateRelationship_Multiplicity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orgID := uuid.New()
	product, locA, locB := uuid.New(), uuid.New(), uuid.New()

	t.Run("multi keeps one edge per target", func(t *testing.T) {
		r1, err := s.CreateRelationship(ctx, orgID, eca.RelationshipStockedAt, product, locA, nil)
		require.NoError(t, err)
		r2, err := s.CreateRelationship(ctx, orgID, eca.RelationshipStockedAt, product, locA, eca.Attributes{"bin": "A1"})
		require.NoError(t, err)
		r3, err := s.CreateRelationship(ctx, orgID, eca.RelationshipStockedAt, product, locB, nil)
		require.NoError(t, err)

		assert.Equal(t, r1.ID, r2.ID)
		assert.NotEqual(t, r1.ID, r3.ID)

		edges, err := s.FindRelationships(ctx, eca.RelationshipFilter{OrganizationID: orgID, SourceID: product})
		require.NoError(t, err)
		assert.Len(t, edges, 2)
		assert.Equal(t, "A1", edges[0].Attributes["bin"])
	})

	t.Run("single re-points the target", func(t *testing.T) {
		customer := uuid.New()
		r1, err := s.CreateRelationship(ctx, orgID, eca.RelationshipPrimaryLocation, customer, locA, nil)
		require.NoError(t, err)
		r2, err := s.CreateRelationship(ctx, orgID, eca.RelationshipPrimaryLocation, customer, locB, nil)
		require.NoError(t, err)

		assert.Equal(t, r1.ID, r2.ID)
		edges, err := s.FindRelationships(ctx, eca.RelationshipFilter{
			OrganizationID:   orgID,
			SourceID:         customer,
			RelationshipType: eca.RelationshipPrimaryLocation,
		})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, locB, edges[0].TargetID)
	})
}

func TestStore_Transactions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orgID := uuid.New()
	ext := "PO-1"

	tx, err := eca.NewBusinessTransaction(orgID, eca.TransactionPurchase, &ext, eca.StateDraft, nil)
	require.NoError(t, err)

	stored, created, err := s.CreateTransaction(ctx, tx)
	require.NoError(t, err)
	assert.True(t, created)

	dup, err := eca.NewBusinessTransaction(orgID, eca.TransactionPurchase, &ext, eca.StateDraft, nil)
	require.NoError(t, err)
	again, created, err := s.CreateTransaction(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)

	ok, err := s.CompareAndSetStatus(ctx, orgID, stored.ID, eca.StateDraft, eca.StateConfirmed, eca.Attributes{"by": "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompareAndSetStatus(ctx, orgID, stored.ID, eca.StateDraft, eca.StateCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok, "stale from must not match")

	ok, err = s.CompareAndSetStatus(ctx, uuid.New(), stored.ID, eca.StateConfirmed, eca.StateReceived, nil)
	require.NoError(t, err)
	assert.False(t, ok, "other organization must not match")

	found, err := s.FindTransactionByExternalID(ctx, orgID, eca.TransactionPurchase, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, eca.StateConfirmed, found.Status)
	assert.Equal(t, "x", found.Attributes["by"])
}

func TestTenantRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	r := NewTenantRegistry()
	active := r.AddActive("Acme")
	suspended := eca.Tenant{ID: uuid.New(), Name: "Old", Status: eca.TenantStatusSuspended}
	r.Put(suspended)

	got, err := r.Resolve(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = r.Resolve(ctx, suspended.ID)
	assert.ErrorIs(t, err, shared.ErrTenantNotFound)

	_, err = r.Resolve(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrTenantNotFound)
}
