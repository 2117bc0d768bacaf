package eca

import (
	"github.com/erp/eca/internal/domain/eca"
)

// PurchaseHandler records goods bought from a supplier into a location
type PurchaseHandler struct{}

func (PurchaseHandler) Action() string                       { return string(eca.TransactionPurchase) }
func (PurchaseHandler) TransactionType() eca.TransactionType { return eca.TransactionPurchase }
func (PurchaseHandler) NewAttributes() attributeSchema       { return &PurchaseAttributes{} }
func (PurchaseHandler) NewItem() any                         { return &PurchaseItem{} }

func (PurchaseHandler) PlanHeader(attrs attributeSchema) HeaderPlan {
	a := attrs.(*PurchaseAttributes)
	return HeaderPlan{
		Entities: []EntityRef{
			{
				Key:        "supplier",
				Type:       eca.EntityTypeSupplier,
				ExternalID: a.SupplierID,
				Attributes: compact("name", a.SupplierName),
			},
			{
				Key:        "location",
				Type:       eca.EntityTypeLocation,
				ExternalID: a.LocationID,
			},
		},
	}
}

func (PurchaseHandler) PlanItem(attrs attributeSchema, item any) ItemPlan {
	a := attrs.(*PurchaseAttributes)
	it := item.(*PurchaseItem)
	return ItemPlan{
		Entities: []EntityRef{productRef(it.ProductID, it.Name, it.SKU)},
		Edges: []EdgeRef{
			{
				Type:       eca.RelationshipSuppliedBy,
				Source:     "product",
				Target:     "supplier",
				Attributes: compact("last_unit_cost", it.UnitCost, "currency", a.Currency),
			},
			{
				Type:       eca.RelationshipStockedAt,
				Source:     "product",
				Target:     "location",
				Attributes: compact("unit", it.Unit),
			},
		},
	}
}

func (PurchaseHandler) CompletionStatus(int, int) (eca.BusinessState, bool) { return "", false }
