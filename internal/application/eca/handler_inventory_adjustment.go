package eca

import (
	"github.com/erp/eca/internal/domain/eca"
)

// InventoryAdjustmentHandler records stock corrections at a location
type InventoryAdjustmentHandler struct{}

func (InventoryAdjustmentHandler) Action() string { return string(eca.TransactionInventoryAdjustment) }

func (InventoryAdjustmentHandler) TransactionType() eca.TransactionType {
	return eca.TransactionInventoryAdjustment
}

func (InventoryAdjustmentHandler) NewAttributes() attributeSchema {
	return &InventoryAdjustmentAttributes{}
}

func (InventoryAdjustmentHandler) NewItem() any { return &InventoryAdjustmentItem{} }

func (InventoryAdjustmentHandler) PlanHeader(attrs attributeSchema) HeaderPlan {
	a := attrs.(*InventoryAdjustmentAttributes)
	return HeaderPlan{
		Entities: []EntityRef{{
			Key:        "location",
			Type:       eca.EntityTypeLocation,
			ExternalID: a.LocationID,
			Attributes: compact("name", a.LocationName),
		}},
	}
}

func (InventoryAdjustmentHandler) PlanItem(attrs attributeSchema, item any) ItemPlan {
	a := attrs.(*InventoryAdjustmentAttributes)
	it := item.(*InventoryAdjustmentItem)
	reason := it.Reason
	if reason == "" {
		reason = a.Reason
	}
	return ItemPlan{
		Entities: []EntityRef{productRef(it.ProductID, it.Name, it.SKU)},
		Edges: []EdgeRef{{
			Type:       eca.RelationshipStockedAt,
			Source:     "product",
			Target:     "location",
			Attributes: compact("last_adjustment", it.Quantity, "last_adjustment_reason", reason, "unit", it.Unit),
		}},
	}
}

// CompletionStatus settles the adjustment once its lines are applied: it is
// processed if any line succeeded and failed otherwise
func (InventoryAdjustmentHandler) CompletionStatus(succeeded, _ int) (eca.BusinessState, bool) {
	if succeeded > 0 {
		return eca.StateProcessed, true
	}
	return eca.StateFailed, true
}
