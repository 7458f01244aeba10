package kitchen

import (
	"context"
	"time"

	"github.com/smartkubik/kitchenline/internal/entity"
	ticketrepo "github.com/smartkubik/kitchenline/internal/repository/ticket"
)

// TicketRepository is the persistence port for kitchen orders. The bun
// implementation lives in internal/repository/ticket; tests supply fakes.
type TicketRepository interface {
	Create(ctx context.Context, ko *entity.KitchenOrder) error
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.KitchenOrder, error)
	GetByOrderID(ctx context.Context, tenantID string, orderID int64) (*entity.KitchenOrder, error)
	Update(ctx context.Context, ko *entity.KitchenOrder) error
	SetUrgency(ctx context.Context, tenantID string, id int64, isUrgent bool) (*entity.KitchenOrder, error)
	AssignCook(ctx context.Context, tenantID string, id int64, cookID string) (*entity.KitchenOrder, error)
	Cancel(ctx context.Context, tenantID string, id int64, reason string) (*entity.KitchenOrder, error)
	FindActive(ctx context.Context, tenantID string, filter ticketrepo.ActiveFilter) ([]entity.KitchenOrder, error)
	StatusBreakdown(ctx context.Context, tenantID string, since time.Time) ([]entity.KitchenStatusCount, error)
	AvgWaitTime(ctx context.Context, tenantID string, since time.Time) (int, error)
}

// OrderReader is the read-only port onto the external order store.
type OrderReader interface {
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.Order, error)
}
