package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// KitchenOrderItem is one line on a cooking ticket. Items have no identity
// outside their ticket; ItemID points back at the originating order line.
type KitchenOrderItem struct {
	ItemID              string     `json:"item_id"`
	ProductName         string     `json:"product_name"`
	Quantity            int        `json:"quantity"`
	Modifiers           []string   `json:"modifiers,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	Status              ItemStatus `json:"status"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	ReadyAt             *time.Time `json:"ready_at,omitempty"`
	PrepTime            *int       `json:"prep_time,omitempty"`
}

// KitchenOrder is the cooking ticket derived from a confirmed customer order.
// It references the source order weakly and never mutates it. At most one
// non-deleted ticket exists per (order, tenant).
type KitchenOrder struct {
	bun.BaseModel `bun:"table:kitchen_orders"`

	ID           int64              `bun:",pk,autoincrement"`
	TenantID     string             `bun:"tenant_id,notnull"`
	OrderID      int64              `bun:"order_id,notnull"`
	OrderNumber  string             `bun:"order_number"`
	OrderType    OrderType          `bun:"order_type"`
	TableNumber  string             `bun:"table_number,nullzero"`
	CustomerName string             `bun:"customer_name,nullzero"`
	Items        []KitchenOrderItem `bun:"items,type:jsonb"`
	Status       OrderStatus        `bun:"status"`
	Priority     Priority           `bun:"priority"`
	PriorityRank int                `bun:"priority_rank"`
	IsUrgent     bool               `bun:"is_urgent"`
	AssignedTo   string             `bun:"assigned_to,nullzero"`
	Station      string             `bun:"station,nullzero"`

	// EstimatedPrepTime is minutes; the duration fields below are seconds.
	EstimatedPrepTime int        `bun:"estimated_prep_time"`
	Notes             string     `bun:"notes,nullzero"`
	ReceivedAt        time.Time  `bun:"received_at,notnull"`
	StartedAt         *time.Time `bun:"started_at,nullzero"`
	CompletedAt       *time.Time `bun:"completed_at,nullzero"`
	WaitTime          *int       `bun:"wait_time,nullzero"`
	TotalPrepTime     *int       `bun:"total_prep_time,nullzero"`

	// Version backs compare-and-swap saves so concurrent terminals cannot
	// silently overwrite each other's item mutations.
	Version   int64     `bun:"version,notnull,default:1"`
	IsDeleted bool      `bun:"is_deleted,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}

// Item returns the item with the given line-item id, or nil.
func (ko *KitchenOrder) Item(itemID string) *KitchenOrderItem {
	for i := range ko.Items {
		if ko.Items[i].ItemID == itemID {
			return &ko.Items[i]
		}
	}
	return nil
}

// Reclassify recomputes the aggregate status from the item vector and stamps
// StartedAt/WaitTime on the first entry into preparing. Terminal states are
// left alone; completed is only exited via an explicit reopen.
func (ko *KitchenOrder) Reclassify(now time.Time) {
	if ko.Status == OrderStatusCancelled || ko.Status == OrderStatusCompleted {
		return
	}
	ko.Status = DeriveStatus(ko.Items)
	if ko.Status == OrderStatusPreparing && ko.StartedAt == nil {
		started := now
		ko.StartedAt = &started
		wait := int(started.Sub(ko.ReceivedAt).Seconds())
		if wait < 0 {
			wait = 0
		}
		ko.WaitTime = &wait
	}
}

// SetPriority keeps Priority and PriorityRank in lock-step.
func (ko *KitchenOrder) SetPriority(p Priority) {
	ko.Priority = p
	ko.PriorityRank = p.Rank()
}

// EstimatePrepTime is the creation-time heuristic in minutes: a five minute
// base plus two minutes per additional item.
func EstimatePrepTime(itemCount int) int {
	if itemCount < 1 {
		itemCount = 1
	}
	return 5 + (itemCount-1)*2
}

// KitchenStatusCount is one row of the daily status breakdown.
type KitchenStatusCount struct {
	Status      OrderStatus `json:"status"`
	Count       int         `json:"count"`
	AvgPrepTime int         `json:"avg_prep_time"`
}

// KitchenStats is the daily rollup for one tenant.
type KitchenStats struct {
	StatusBreakdown []KitchenStatusCount `json:"status_breakdown"`
	AvgWaitTime     int                  `json:"avg_wait_time"`
	TotalOrders     int                  `json:"total_orders"`
}
