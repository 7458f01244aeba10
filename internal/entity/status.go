package entity

// ItemStatus tracks a single line item through its preparation sub-lifecycle.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
)

// itemEdges is the set of legal item transitions. Progression is strictly
// forward; there is no backward edge and no item-level cancellation.
var itemEdges = map[ItemStatus]map[ItemStatus]struct{}{
	ItemStatusPending:   {ItemStatusPreparing: {}},
	ItemStatusPreparing: {ItemStatusReady: {}},
	ItemStatusReady:     {ItemStatusServed: {}},
	ItemStatusServed:    {},
}

// Valid reports whether the value is a known item status.
func (s ItemStatus) Valid() bool {
	_, ok := itemEdges[s]
	return ok
}

// CanTransitionTo reports whether the edge s -> next is allowed.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	allowed, ok := itemEdges[s]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// OrderStatus is the aggregate status of a kitchen order.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether the value is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the order belongs on the live kitchen queue.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusReady:
		return true
	}
	return false
}

// DeriveStatus classifies an item-status vector into the aggregate order
// status. The classification is total: a mix of pending and ready/served
// items with none preparing still counts as preparing, since work has both
// started and remains outstanding.
func DeriveStatus(items []KitchenOrderItem) OrderStatus {
	allPending := true
	allDone := true
	for _, item := range items {
		if item.Status != ItemStatusPending {
			allPending = false
		}
		if item.Status == ItemStatusPreparing {
			return OrderStatusPreparing
		}
		if item.Status != ItemStatusReady && item.Status != ItemStatusServed {
			allDone = false
		}
	}
	if allPending {
		return OrderStatusNew
	}
	if allDone {
		return OrderStatusReady
	}
	return OrderStatusPreparing
}

// Priority orders tickets on the kitchen queue.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
	PriorityASAP   Priority = "asap"
)

// Rank maps a priority to its ordinal so the queue sorts by severity rather
// than by string collation. Unknown values rank below normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityASAP:
		return 3
	case PriorityUrgent:
		return 2
	case PriorityNormal:
		return 1
	}
	return 0
}

// Valid reports whether the value is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// OrderType distinguishes how the customer receives the order.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)
