package kitchen

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smartkubik/kitchenline/internal/config"
	"github.com/smartkubik/kitchenline/internal/entity"
	"github.com/smartkubik/kitchenline/internal/messaging"
	kitchensvc "github.com/smartkubik/kitchenline/internal/service/kitchen"
	"github.com/smartkubik/kitchenline/internal/worker"
	"github.com/smartkubik/kitchenline/pkg/errorbank"
)

var workerTracer = otel.Tracer("github.com/smartkubik/kitchenline/worker/kitchen")

// Module registers the kitchen worker handlers.
var Module = fx.Module("worker_kitchen",
	fx.Provide(
		fx.Annotate(
			NewOrderConfirmedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderConfirmedHandler builds the consumer that turns confirmed orders
// into kitchen tickets. A ticket that already exists is a benign duplicate
// delivery and is acknowledged; any other failure is returned so the bus
// redelivers the event instead of dropping the ticket.
func NewOrderConfirmedHandler(svc *kitchensvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.kitchen.orderConfirmed", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event kitchensvc.OrderConfirmedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// Malformed payloads never become valid; ack and move on.
			logger.Error("failed to decode order confirmed event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		if event.OrderID <= 0 || event.TenantID == "" {
			logger.Warn("order confirmed event missing order or tenant",
				zap.String("event_id", event.EventID.String()),
			)
			return nil
		}

		_, err := svc.CreateFromOrder(ctx, event.TenantID, kitchensvc.CreateTicketInput{
			OrderID:  event.OrderID,
			Priority: entity.PriorityNormal,
		})
		if err != nil {
			if errorbank.From(err).Kind() == errorbank.KindConflict {
				logger.Debug("kitchen order already tracked; skipping",
					zap.Int64("order_id", event.OrderID),
					zap.String("tenant", event.TenantID),
				)
				return nil
			}
			logger.Error("failed to create kitchen order from event",
				zap.Int64("order_id", event.OrderID),
				zap.String("tenant", event.TenantID),
				zap.Error(err),
			)

			span.RecordError(err)
			span.SetStatus(codes.Error, "create failed")
			return err
		}

		logger.Info("kitchen order created from event",
			zap.Int64("order_id", event.OrderID),
			zap.String("tenant", event.TenantID),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Topic,
		Handler: handler,
	}
}
