package eca

import (
	"testing"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violationsOf(t *testing.T, err error) []shared.FieldViolation {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeValidation, de.Code)
	violations, ok := de.Details["violations"].([]shared.FieldViolation)
	require.True(t, ok, "details.violations must be a violation list")
	return violations
}

func fieldsOf(violations []shared.FieldViolation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Field)
	}
	return out
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(DefaultRegistry())
	org := uuid.New()

	t.Run("accepts a valid purchase", func(t *testing.T) {
		raw := []byte(`{"action":"purchase","organization_id":"` + org.String() + `","attributes":{
			"external_id":"PO-1","supplier_id":"SUP-1","location_id":"WH-1",
			"items":[{"product_id":"P-1","quantity":"5","unit_cost":"2.50"}]}}`)

		payload, err := v.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "purchase", payload.Action)
		assert.Equal(t, org, payload.OrganizationID)
		require.Len(t, payload.Items, 1)
		assert.Nil(t, payload.Items[0].Err)
		assert.NotEqual(t, uuid.Nil, payload.EventUUID)
		assert.NotContains(t, payload.RawAttributes, "items")

		item := payload.Items[0].Value.(*PurchaseItem)
		assert.Equal(t, "P-1", item.ProductID)
		assert.Equal(t, "5", item.Quantity.String())
	})

	t.Run("rejects non-object payloads", func(t *testing.T) {
		for _, raw := range []string{``, `[]`, `null`, `"purchase"`, `{broken`} {
			_, err := v.Validate([]byte(raw))
			violations := violationsOf(t, err)
			require.Len(t, violations, 1, raw)
			assert.Equal(t, "json", violations[0].Rule)
		}
	})

	t.Run("reports every envelope violation at once", func(t *testing.T) {
		_, err := v.Validate([]byte(`{"organization_id":"not-a-uuid"}`))
		violations := violationsOf(t, err)
		assert.ElementsMatch(t, []string{"action", "organization_id", "attributes"}, fieldsOf(violations))
	})

	t.Run("rejects unknown actions", func(t *testing.T) {
		_, err := v.Validate([]byte(`{"action":"teleport","organization_id":"` + org.String() + `","attributes":{}}`))
		violations := violationsOf(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "action", violations[0].Field)
		assert.Equal(t, "oneof", violations[0].Rule)
		assert.Contains(t, violations[0].Message, "inventory_adjustment")
	})

	t.Run("rejects the nil organization", func(t *testing.T) {
		_, err := v.Validate([]byte(`{"action":"sale","organization_id":"` + uuid.Nil.String() + `","attributes":{"location_id":"S1","items":[{}]}}`))
		violations := violationsOf(t, err)
		assert.Contains(t, fieldsOf(violations), "organization_id")
	})

	t.Run("reports attribute violations with json paths", func(t *testing.T) {
		raw := []byte(`{"action":"transfer","organization_id":"` + org.String() + `","attributes":{
			"from_location_id":"WH-1","to_location_id":"WH-1","items":[]}}`)
		_, err := v.Validate(raw)
		violations := violationsOf(t, err)
		assert.ElementsMatch(t, []string{"attributes.to_location_id", "attributes.items"}, fieldsOf(violations))
		for _, vi := range violations {
			if vi.Field == "attributes.to_location_id" {
				assert.Equal(t, "Must differ from from_location_id", vi.Message)
			}
		}
	})

	t.Run("type mismatch is reported once per field", func(t *testing.T) {
		raw := []byte(`{"action":"purchase","organization_id":"` + org.String() + `","attributes":{
			"supplier_id":42,"location_id":"WH-1","items":[{"product_id":"P-1","quantity":"1"}]}}`)
		_, err := v.Validate(raw)
		violations := violationsOf(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "attributes.supplier_id", violations[0].Field)
		assert.Equal(t, "type", violations[0].Rule)
	})

	t.Run("invalid items fail individually", func(t *testing.T) {
		raw := []byte(`{"action":"inventory_adjustment","organization_id":"` + org.String() + `","attributes":{
			"location_id":"WH-1","event_type":"cycle_count",
			"items":[{"product_id":"P-1","quantity":"3"},{"quantity":"1"},"oops"]}}`)
		payload, err := v.Validate(raw)
		require.NoError(t, err)
		require.Len(t, payload.Items, 3)
		assert.Nil(t, payload.Items[0].Err)

		invalid := payload.InvalidItems()
		require.Len(t, invalid, 2)
		assert.Equal(t, 1, invalid[0].Index)
		assert.Equal(t, shared.CodeRecordProcessing, invalid[0].Err.Code)
		assert.Equal(t, 1, invalid[0].Err.Details["index"])
		assert.Equal(t, 2, invalid[1].Index)
	})

	t.Run("return requires the original id with the original type", func(t *testing.T) {
		raw := []byte(`{"action":"return","organization_id":"` + org.String() + `","attributes":{
			"location_id":"WH-1","original_type":"sale","items":[{"product_id":"P-1","quantity":"1"}]}}`)
		_, err := v.Validate(raw)
		violations := violationsOf(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "attributes.original_external_id", violations[0].Field)
		assert.Equal(t, "Required when original_type is set", violations[0].Message)
	})

	t.Run("return requires the original type with the original id", func(t *testing.T) {
		raw := []byte(`{"action":"return","organization_id":"` + org.String() + `","attributes":{
			"location_id":"WH-1","original_external_id":"SO-1","items":[{"product_id":"P-1","quantity":"1"}]}}`)
		_, err := v.Validate(raw)
		violations := violationsOf(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "attributes.original_type", violations[0].Field)
		assert.Equal(t, "Required when original_external_id is set", violations[0].Message)
	})
}

func TestValidator_EventUUIDIsStable(t *testing.T) {
	v := NewValidator(DefaultRegistry())
	org := uuid.New()

	a := []byte(`{"action":"sale","organization_id":"` + org.String() + `","attributes":{"location_id":"S1","items":[{"product_id":"P","quantity":1}]}}`)
	b := []byte(`{"organization_id":"` + org.String() + `","attributes":{"items":[{"quantity":1,"product_id":"P"}],"location_id":"S1"},"action":"sale"}`)
	c := []byte(`{"action":"sale","organization_id":"` + org.String() + `","attributes":{"location_id":"S2","items":[{"product_id":"P","quantity":1}]}}`)

	pa, err := v.Validate(a)
	require.NoError(t, err)
	pb, err := v.Validate(b)
	require.NoError(t, err)
	pc, err := v.Validate(c)
	require.NoError(t, err)

	assert.Equal(t, pa.EventUUID, pb.EventUUID, "key order must not change the fingerprint")
	assert.NotEqual(t, pa.EventUUID, pc.EventUUID)
}
