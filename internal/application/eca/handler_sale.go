package eca

import (
	"github.com/erp/eca/internal/domain/eca"
)

// SaleHandler records goods sold from a location, optionally to a known customer
type SaleHandler struct{}

func (SaleHandler) Action() string                       { return string(eca.TransactionSale) }
func (SaleHandler) TransactionType() eca.TransactionType { return eca.TransactionSale }
func (SaleHandler) NewAttributes() attributeSchema       { return &SaleAttributes{} }
func (SaleHandler) NewItem() any                         { return &SaleItem{} }

func (SaleHandler) PlanHeader(attrs attributeSchema) HeaderPlan {
	a := attrs.(*SaleAttributes)
	plan := HeaderPlan{
		Entities: []EntityRef{{
			Key:        "location",
			Type:       eca.EntityTypeLocation,
			ExternalID: a.LocationID,
		}},
	}
	if a.CustomerID != "" {
		plan.Entities = append(plan.Entities, EntityRef{
			Key:        "customer",
			Type:       eca.EntityTypeCustomer,
			ExternalID: a.CustomerID,
			Attributes: compact("name", a.CustomerName),
		})
		plan.Edges = append(plan.Edges, EdgeRef{
			Type:       eca.RelationshipPrimaryLocation,
			Source:     "customer",
			Target:     "location",
			Attributes: compact("channel", a.Channel),
		})
	}
	return plan
}

func (SaleHandler) PlanItem(_ attributeSchema, item any) ItemPlan {
	it := item.(*SaleItem)
	return ItemPlan{
		Entities: []EntityRef{productRef(it.ProductID, it.Name, it.SKU)},
		Edges: []EdgeRef{{
			Type:       eca.RelationshipStockedAt,
			Source:     "product",
			Target:     "location",
			Attributes: compact("last_unit_price", it.UnitPrice),
		}},
	}
}

func (SaleHandler) CompletionStatus(int, int) (eca.BusinessState, bool) { return "", false }
