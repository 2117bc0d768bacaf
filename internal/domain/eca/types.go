package eca

// EntityType classifies a BusinessEntity
type EntityType string

const (
	EntityTypeProduct  EntityType = "product"
	EntityTypeLocation EntityType = "location"
	EntityTypeSupplier EntityType = "supplier"
	EntityTypeCustomer EntityType = "customer"
)

// IsValid checks if the entity type is known
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeLocation, EntityTypeSupplier, EntityTypeCustomer:
		return true
	}
	return false
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// RelationshipType classifies a BusinessRelationship edge
type RelationshipType string

const (
	// product -> location
	RelationshipStockedAt RelationshipType = "stocked_at"
	// product -> supplier
	RelationshipSuppliedBy RelationshipType = "supplied_by"
	// location -> location
	RelationshipTransfersTo RelationshipType = "transfers_to"
	// customer -> location, at most one live edge per customer
	RelationshipPrimaryLocation RelationshipType = "primary_location"
)

// Multiplicity controls how many live edges of a type a source may hold
type Multiplicity int

const (
	// MultiplicityMulti allows one edge per distinct target
	MultiplicityMulti Multiplicity = iota
	// MultiplicitySingle allows one edge per source; a new target re-points it
	MultiplicitySingle
)

// IsValid checks if the relationship type is known
func (t RelationshipType) IsValid() bool {
	switch t {
	case RelationshipStockedAt, RelationshipSuppliedBy, RelationshipTransfersTo, RelationshipPrimaryLocation:
		return true
	}
	return false
}

// Multiplicity returns the edge multiplicity for the relationship type
func (t RelationshipType) Multiplicity() Multiplicity {
	if t == RelationshipPrimaryLocation {
		return MultiplicitySingle
	}
	return MultiplicityMulti
}

// String returns the string representation of RelationshipType
func (t RelationshipType) String() string {
	return string(t)
}

// TransactionType classifies a BusinessTransaction
type TransactionType string

const (
	TransactionInventoryAdjustment TransactionType = "inventory_adjustment"
	TransactionPurchase            TransactionType = "purchase"
	TransactionSale                TransactionType = "sale"
	TransactionTransfer            TransactionType = "transfer"
	TransactionReturn              TransactionType = "return"
)

// AllTransactionTypes lists every transaction type in a stable order
func AllTransactionTypes() []TransactionType {
	return []TransactionType{
		TransactionInventoryAdjustment,
		TransactionPurchase,
		TransactionSale,
		TransactionTransfer,
		TransactionReturn,
	}
}

// IsValid checks if the transaction type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionInventoryAdjustment, TransactionPurchase, TransactionSale, TransactionTransfer, TransactionReturn:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// BusinessState is a transaction status; the legal values depend on the
// transaction type
type BusinessState string

const (
	StatePending   BusinessState = "pending"
	StateProcessed BusinessState = "processed"
	StateFailed    BusinessState = "failed"
	StateDraft     BusinessState = "draft"
	StateConfirmed BusinessState = "confirmed"
	StateReceived  BusinessState = "received"
	StateClosed    BusinessState = "closed"
	StateCancelled BusinessState = "cancelled"
	StateShipped   BusinessState = "shipped"
	StateDelivered BusinessState = "delivered"
	StateInTransit BusinessState = "in_transit"
	StateCompleted BusinessState = "completed"
	StateReturned  BusinessState = "returned"
	StateRequested BusinessState = "requested"
	StateApproved  BusinessState = "approved"
	StateRefunded  BusinessState = "refunded"
	StateRejected  BusinessState = "rejected"
)

// String returns the string representation of BusinessState
func (s BusinessState) String() string {
	return string(s)
}
