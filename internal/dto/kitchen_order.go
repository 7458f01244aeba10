package dto

import "time"

// KitchenOrderItemResponse is one ticket line as exposed via transport layers.
type KitchenOrderItemResponse struct {
	ItemID              string     `json:"item_id"`
	ProductName         string     `json:"product_name"`
	Quantity            int        `json:"quantity"`
	Modifiers           []string   `json:"modifiers,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	Status              string     `json:"status"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	ReadyAt             *time.Time `json:"ready_at,omitempty"`
	PrepTime            *int       `json:"prep_time,omitempty"`
}

// KitchenOrderResponse is a ticket as exposed via transport layers.
type KitchenOrderResponse struct {
	ID                int64                      `json:"id"`
	OrderID           int64                      `json:"order_id"`
	OrderNumber       string                     `json:"order_number"`
	OrderType         string                     `json:"order_type"`
	TableNumber       string                     `json:"table_number,omitempty"`
	CustomerName      string                     `json:"customer_name,omitempty"`
	Items             []KitchenOrderItemResponse `json:"items"`
	Status            string                     `json:"status"`
	Priority          string                     `json:"priority"`
	IsUrgent          bool                       `json:"is_urgent"`
	AssignedTo        string                     `json:"assigned_to,omitempty"`
	Station           string                     `json:"station,omitempty"`
	EstimatedPrepTime int                        `json:"estimated_prep_time"`
	Notes             string                     `json:"notes,omitempty"`
	ReceivedAt        time.Time                  `json:"received_at"`
	StartedAt         *time.Time                 `json:"started_at,omitempty"`
	CompletedAt       *time.Time                 `json:"completed_at,omitempty"`
	WaitTime          *int                       `json:"wait_time,omitempty"`
	TotalPrepTime     *int                       `json:"total_prep_time,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// KitchenStatsResponse is the daily rollup payload.
type KitchenStatsResponse struct {
	StatusBreakdown []KitchenStatusCountResponse `json:"status_breakdown"`
	AvgWaitTime     int                          `json:"avg_wait_time"`
	TotalOrders     int                          `json:"total_orders"`
}

// KitchenStatusCountResponse is one row of the daily breakdown.
type KitchenStatusCountResponse struct {
	Status      string `json:"status"`
	Count       int    `json:"count"`
	AvgPrepTime int    `json:"avg_prep_time"`
}
