package app

import (
	"go.uber.org/fx"

	"github.com/smartkubik/kitchenline/internal/cache"
	"github.com/smartkubik/kitchenline/internal/config"
	"github.com/smartkubik/kitchenline/internal/database"
	"github.com/smartkubik/kitchenline/internal/logger"
	"github.com/smartkubik/kitchenline/internal/messaging"
	"github.com/smartkubik/kitchenline/internal/observability"
	repositoryorder "github.com/smartkubik/kitchenline/internal/repository/order"
	repositoryticket "github.com/smartkubik/kitchenline/internal/repository/ticket"
	grpcserver "github.com/smartkubik/kitchenline/internal/server/grpc"
	httpserver "github.com/smartkubik/kitchenline/internal/server/http"
	servicekitchen "github.com/smartkubik/kitchenline/internal/service/kitchen"
	transporthttp "github.com/smartkubik/kitchenline/internal/transport/http"
	"github.com/smartkubik/kitchenline/internal/worker"
	workerkitchen "github.com/smartkubik/kitchenline/internal/worker/kitchen"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositoryticket.Module,
	servicekitchen.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes the order-confirmed consumer.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerkitchen.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
