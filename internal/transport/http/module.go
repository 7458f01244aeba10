package http

import (
	"go.uber.org/fx"

	kitchentransport "github.com/smartkubik/kitchenline/internal/transport/http/kitchen"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	kitchentransport.Module,
)
