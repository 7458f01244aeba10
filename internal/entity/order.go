package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is the external customer order the kitchen engine reads tickets
// from. It is owned by the ordering subsystem; this module never writes it.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID             int64           `bun:",pk,autoincrement"`
	TenantID       string          `bun:"tenant_id,notnull"`
	Number         string          `bun:"number"`
	CustomerName   string          `bun:"customer_name,nullzero"`
	TableNumber    string          `bun:"table_number,nullzero"`
	ShippingMethod string          `bun:"shipping_method,nullzero"`
	Items          []OrderLineItem `bun:"items,type:jsonb"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero"`
}

// OrderLineItem is one purchasable line on the external order.
type OrderLineItem struct {
	ID                  string              `json:"id"`
	ProductName         string              `json:"product_name"`
	Quantity            int                 `json:"quantity"`
	Modifiers           []OrderItemModifier `json:"modifiers,omitempty"`
	RemovedIngredients  []RemovedIngredient `json:"removed_ingredients,omitempty"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
	SendToKitchen       *bool               `json:"send_to_kitchen,omitempty"`
	AddedAt             *time.Time          `json:"added_at,omitempty"`
}

// OrderItemModifier is a structured modifier; only its display name reaches
// the kitchen.
type OrderItemModifier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price,omitempty"`
}

// RemovedIngredient marks an ingredient the customer asked to leave out.
type RemovedIngredient struct {
	Name string `json:"name"`
}

// RequiresKitchen reports whether the line should produce a cooking ticket
// item. Unset means yes for backwards compatibility.
func (li OrderLineItem) RequiresKitchen() bool {
	return li.SendToKitchen == nil || *li.SendToKitchen
}

// OrderType derives the fulfillment channel from the order's table and
// shipping fields. Derived once at ticket creation, never re-derived.
func (o *Order) OrderType() OrderType {
	if o.TableNumber != "" {
		return OrderTypeDineIn
	}
	if o.ShippingMethod == "delivery" {
		return OrderTypeDelivery
	}
	return OrderTypeTakeout
}
