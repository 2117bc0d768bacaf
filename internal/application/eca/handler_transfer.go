package eca

import (
	"github.com/erp/eca/internal/domain/eca"
)

// TransferHandler records stock moving between two locations
type TransferHandler struct{}

func (TransferHandler) Action() string                       { return string(eca.TransactionTransfer) }
func (TransferHandler) TransactionType() eca.TransactionType { return eca.TransactionTransfer }
func (TransferHandler) NewAttributes() attributeSchema       { return &TransferAttributes{} }
func (TransferHandler) NewItem() any                         { return &TransferItem{} }

func (TransferHandler) PlanHeader(attrs attributeSchema) HeaderPlan {
	a := attrs.(*TransferAttributes)
	return HeaderPlan{
		Entities: []EntityRef{
			{Key: "from_location", Type: eca.EntityTypeLocation, ExternalID: a.FromLocationID},
			{Key: "to_location", Type: eca.EntityTypeLocation, ExternalID: a.ToLocationID},
		},
		Edges: []EdgeRef{{
			Type:       eca.RelationshipTransfersTo,
			Source:     "from_location",
			Target:     "to_location",
			Attributes: compact("carrier", a.Carrier),
		}},
	}
}

func (TransferHandler) PlanItem(_ attributeSchema, item any) ItemPlan {
	it := item.(*TransferItem)
	return ItemPlan{
		Entities: []EntityRef{productRef(it.ProductID, it.Name, it.SKU)},
		Edges: []EdgeRef{{
			Type:   eca.RelationshipStockedAt,
			Source: "product",
			Target: "to_location",
		}},
	}
}

func (TransferHandler) CompletionStatus(int, int) (eca.BusinessState, bool) { return "", false }
