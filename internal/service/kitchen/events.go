package kitchen

import (
	"time"

	"github.com/google/uuid"
)

// OrderConfirmedEvent is the inbound notification that a customer order was
// confirmed and should be cooked. The ordering subsystem publishes it; this
// engine only consumes.
type OrderConfirmedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	OrderID     int64     `json:"order_id"`
	TenantID    string    `json:"tenant_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
