package kitchen

import (
	"go.uber.org/fx"

	orderrepo "github.com/smartkubik/kitchenline/internal/repository/order"
	ticketrepo "github.com/smartkubik/kitchenline/internal/repository/ticket"
)

// Module provides the kitchen service to Fx, binding the bun repositories
// to the service ports.
var Module = fx.Options(
	fx.Provide(func(r *ticketrepo.Repository) TicketRepository { return r }),
	fx.Provide(func(r *orderrepo.Repository) OrderReader { return r }),
	fx.Provide(NewService),
)
