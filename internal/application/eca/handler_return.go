package eca

import (
	"github.com/erp/eca/internal/domain/eca"
)

// ReturnHandler records goods coming back to a location. When it names the
// original purchase or sale, that transaction is compensated to returned.
type ReturnHandler struct{}

func (ReturnHandler) Action() string                       { return string(eca.TransactionReturn) }
func (ReturnHandler) TransactionType() eca.TransactionType { return eca.TransactionReturn }
func (ReturnHandler) NewAttributes() attributeSchema       { return &ReturnAttributes{} }
func (ReturnHandler) NewItem() any                         { return &ReturnItem{} }

func (ReturnHandler) PlanHeader(attrs attributeSchema) HeaderPlan {
	a := attrs.(*ReturnAttributes)
	plan := HeaderPlan{
		Entities: []EntityRef{{
			Key:        "location",
			Type:       eca.EntityTypeLocation,
			ExternalID: a.LocationID,
		}},
	}
	if a.OriginalType != "" && a.OriginalExternalID != "" {
		plan.Compensation = &Compensation{
			TransactionType: eca.TransactionType(a.OriginalType),
			ExternalID:      a.OriginalExternalID,
			Status:          eca.StateReturned,
		}
	}
	return plan
}

func (ReturnHandler) PlanItem(_ attributeSchema, item any) ItemPlan {
	it := item.(*ReturnItem)
	return ItemPlan{
		Entities: []EntityRef{productRef(it.ProductID, it.Name, "")},
		Edges: []EdgeRef{{
			Type:       eca.RelationshipStockedAt,
			Source:     "product",
			Target:     "location",
			Attributes: compact("last_return_condition", it.Condition),
		}},
	}
}

func (ReturnHandler) CompletionStatus(int, int) (eca.BusinessState, bool) { return "", false }
