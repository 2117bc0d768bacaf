package eca

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CommonAttributes are the top-level attribute fields shared by every action
type CommonAttributes struct {
	ExternalID string            `json:"external_id" validate:"omitempty,max=255"`
	Status     string            `json:"status" validate:"omitempty,max=64"`
	EventDate  string            `json:"event_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Reference  string            `json:"reference" validate:"omitempty,max=255"`
	Notes      string            `json:"notes" validate:"omitempty,max=2000"`
	Items      []json.RawMessage `json:"items" validate:"required,min=1"`
}

// Common returns the shared attribute block
func (c *CommonAttributes) Common() *CommonAttributes {
	return c
}

// attributeSchema is implemented by every action attributes struct
type attributeSchema interface {
	Common() *CommonAttributes
}

// InventoryAdjustmentAttributes is the attributes schema of inventory_adjustment
type InventoryAdjustmentAttributes struct {
	CommonAttributes
	LocationID   string `json:"location_id" validate:"required,max=255"`
	LocationName string `json:"location_name" validate:"omitempty,max=255"`
	EventType    string `json:"event_type" validate:"required,oneof=cycle_count damage shrinkage correction found expiry"`
	Reason       string `json:"reason" validate:"omitempty,max=500"`
}

// InventoryAdjustmentItem is one adjusted product line
type InventoryAdjustmentItem struct {
	ProductID string           `json:"product_id" validate:"required,max=255"`
	Name      string           `json:"name" validate:"omitempty,max=255"`
	SKU       string           `json:"sku" validate:"omitempty,max=100"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required"`
	UnitCost  *decimal.Decimal `json:"unit_cost" validate:"omitempty,gte=0"`
	Unit      string           `json:"unit" validate:"omitempty,max=32"`
	Reason    string           `json:"reason" validate:"omitempty,max=500"`
}

// PurchaseAttributes is the attributes schema of purchase
type PurchaseAttributes struct {
	CommonAttributes
	SupplierID   string `json:"supplier_id" validate:"required,max=255"`
	SupplierName string `json:"supplier_name" validate:"omitempty,max=255"`
	LocationID   string `json:"location_id" validate:"required,max=255"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
}

// PurchaseItem is one purchased product line
type PurchaseItem struct {
	ProductID string           `json:"product_id" validate:"required,max=255"`
	Name      string           `json:"name" validate:"omitempty,max=255"`
	SKU       string           `json:"sku" validate:"omitempty,max=100"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required,gt=0"`
	UnitCost  *decimal.Decimal `json:"unit_cost" validate:"omitempty,gte=0"`
	Unit      string           `json:"unit" validate:"omitempty,max=32"`
}

// SaleAttributes is the attributes schema of sale
type SaleAttributes struct {
	CommonAttributes
	LocationID   string `json:"location_id" validate:"required,max=255"`
	CustomerID   string `json:"customer_id" validate:"omitempty,max=255"`
	CustomerName string `json:"customer_name" validate:"omitempty,max=255"`
	Channel      string `json:"channel" validate:"omitempty,oneof=pos online wholesale marketplace"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
}

// SaleItem is one sold product line
type SaleItem struct {
	ProductID string           `json:"product_id" validate:"required,max=255"`
	Name      string           `json:"name" validate:"omitempty,max=255"`
	SKU       string           `json:"sku" validate:"omitempty,max=100"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	Discount  *decimal.Decimal `json:"discount" validate:"omitempty,gte=0"`
}

// TransferAttributes is the attributes schema of transfer
type TransferAttributes struct {
	CommonAttributes
	FromLocationID string `json:"from_location_id" validate:"required,max=255"`
	ToLocationID   string `json:"to_location_id" validate:"required,max=255,nefield=FromLocationID"`
	Carrier        string `json:"carrier" validate:"omitempty,max=255"`
}

// TransferItem is one transferred product line
type TransferItem struct {
	ProductID string          `json:"product_id" validate:"required,max=255"`
	Name      string          `json:"name" validate:"omitempty,max=255"`
	SKU       string          `json:"sku" validate:"omitempty,max=100"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required,gt=0"`
}

// ReturnAttributes is the attributes schema of return
type ReturnAttributes struct {
	CommonAttributes
	LocationID         string `json:"location_id" validate:"required,max=255"`
	OriginalType       string `json:"original_type" validate:"required_with=OriginalExternalID,omitempty,oneof=purchase sale"`
	OriginalExternalID string `json:"original_external_id" validate:"required_with=OriginalType,max=255"`
	Reason             string `json:"reason" validate:"omitempty,max=500"`
}

// ReturnItem is one returned product line
type ReturnItem struct {
	ProductID string           `json:"product_id" validate:"required,max=255"`
	Name      string           `json:"name" validate:"omitempty,max=255"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required,gt=0"`
	Condition string           `json:"condition" validate:"omitempty,oneof=new damaged defective"`
	Refund    *decimal.Decimal `json:"refund_amount" validate:"omitempty,gte=0"`
}
