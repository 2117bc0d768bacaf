package eca

import (
	"github.com/erp/eca/internal/domain/eca"
	"github.com/shopspring/decimal"
)

// EntityRef names an entity an action implies. Key is a local alias used by
// EdgeRef to refer to it within the same payload.
type EntityRef struct {
	Key        string
	Type       eca.EntityType
	ExternalID string
	Attributes eca.Attributes
}

// EdgeRef is a relationship between two EntityRefs identified by Key
type EdgeRef struct {
	Type       eca.RelationshipType
	Source     string
	Target     string
	Attributes eca.Attributes
}

// Compensation reverses a previously recorded transaction
type Compensation struct {
	TransactionType eca.TransactionType
	ExternalID      string
	Status          eca.BusinessState
}

// HeaderPlan is what the top-level attributes of a payload imply
type HeaderPlan struct {
	Entities     []EntityRef
	Edges        []EdgeRef
	Compensation *Compensation
}

// ItemPlan is what one line item implies. Item edges may reference header
// entity keys.
type ItemPlan struct {
	Entities []EntityRef
	Edges    []EdgeRef
}

// ActionHandler maps one business action to the entities, relationships and
// transaction it implies. Handlers are stateless.
type ActionHandler interface {
	Action() string
	TransactionType() eca.TransactionType
	// NewAttributes returns a pointer to a fresh attributes schema value
	NewAttributes() attributeSchema
	// NewItem returns a pointer to a fresh line item schema value
	NewItem() any
	PlanHeader(attrs attributeSchema) HeaderPlan
	PlanItem(attrs attributeSchema, item any) ItemPlan
	// CompletionStatus returns the status the transaction advances to once
	// its line items are processed, if the action defines one
	CompletionStatus(succeeded, failed int) (eca.BusinessState, bool)
}

// Registry holds the action handlers keyed by action name
type Registry struct {
	handlers map[string]ActionHandler
	order    []string
}

// NewRegistry creates a registry with the given handlers
func NewRegistry(handlers ...ActionHandler) *Registry {
	r := &Registry{handlers: make(map[string]ActionHandler, len(handlers))}
	for _, h := range handlers {
		if _, dup := r.handlers[h.Action()]; !dup {
			r.order = append(r.order, h.Action())
		}
		r.handlers[h.Action()] = h
	}
	return r
}

// DefaultRegistry returns a registry with every built-in action
func DefaultRegistry() *Registry {
	return NewRegistry(
		InventoryAdjustmentHandler{},
		PurchaseHandler{},
		SaleHandler{},
		TransferHandler{},
		ReturnHandler{},
	)
}

// Get returns the handler for action
func (r *Registry) Get(action string) (ActionHandler, bool) {
	h, ok := r.handlers[action]
	return h, ok
}

// Actions returns the registered action names in registration order
func (r *Registry) Actions() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// compact builds attributes from key/value pairs, dropping empty values
func compact(kv ...any) eca.Attributes {
	out := eca.Attributes{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case nil:
		case string:
			if v != "" {
				out[key] = v
			}
		case *decimal.Decimal:
			if v != nil {
				out[key] = v.String()
			}
		case decimal.Decimal:
			out[key] = v.String()
		default:
			out[key] = v
		}
	}
	return out
}

func productRef(productID, name, sku string) EntityRef {
	return EntityRef{
		Key:        "product",
		Type:       eca.EntityTypeProduct,
		ExternalID: productID,
		Attributes: compact("name", name, "sku", sku),
	}
}
