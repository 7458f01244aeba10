package kitchen

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartkubik/kitchenline/internal/dto"
	"github.com/smartkubik/kitchenline/internal/entity"
	"github.com/smartkubik/kitchenline/internal/presentation/http/response"
	ticketrepo "github.com/smartkubik/kitchenline/internal/repository/ticket"
	service "github.com/smartkubik/kitchenline/internal/service/kitchen"
	"github.com/smartkubik/kitchenline/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/smartkubik/kitchenline/transport/http/kitchen")

// tenantHeader carries the tenant identity; it is trusted upstream.
const tenantHeader = "X-Tenant-ID"

// Handler exposes the kitchen display endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a kitchen Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/kitchen/orders")
	g.POST("", h.create)
	g.GET("/active", h.findActive)
	g.GET("/stats", h.stats)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id/item-status", h.updateItemStatus)
	g.POST("/:id/bump", h.bump)
	g.POST("/:id/reopen", h.reopen)
	g.POST("/:id/cancel", h.cancel)
	g.PATCH("/:id/urgent", h.markUrgent)
	g.PATCH("/:id/assign", h.assignCook)
	g.POST("/:id/items", h.addItem)
	g.POST("/:id/sync", h.syncWithOrder)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	tenantID, err := tenantFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		OrderID           int64  `json:"order_id"`
		Station           string `json:"station"`
		Priority          string `json:"priority"`
		Notes             string `json:"notes"`
		EstimatedPrepTime int    `json:"estimated_prep_time"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.OrderID <= 0 {
		return b.WithError(errorbank.BadRequest("order_id is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.create", trace.WithAttributes(
		attribute.Int64("order.id", payload.OrderID),
	))
	defer span.End()

	ko, err := h.svc.CreateFromOrder(ctx, tenantID, service.CreateTicketInput{
		OrderID:           payload.OrderID,
		Station:           payload.Station,
		Priority:          entity.Priority(payload.Priority),
		Notes:             payload.Notes,
		EstimatedPrepTime: payload.EstimatedPrepTime,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(ko)).Build()
}

func (h *Handler) findActive(c echo.Context) error {
	b := response.New(c)

	tenantID, err := tenantFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var filter ticketrepo.ActiveFilter
	if v := c.QueryParam("status"); v != "" {
		status := entity.OrderStatus(v)
		filter.Status = &status
	}
	if v := c.QueryParam("station"); v != "" {
		filter.Station = &v
	}
	if v := c.QueryParam("priority"); v != "" {
		priority := entity.Priority(v)
		filter.Priority = &priority
	}
	if v := c.QueryParam("is_urgent"); v != "" {
		urgent, err := strconv.ParseBool(v)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid is_urgent filter", errorbank.WithCause(err))).Build()
		}
		filter.IsUrgent = &urgent
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.findActive")
	defer span.End()

	orders, err := h.svc.FindActive(ctx, tenantID, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	list := make([]dto.KitchenOrderResponse, 0, len(orders))
	for i := range orders {
		list = append(list, toDTO(&orders[i]))
	}
	return b.WithData(list).WithMeta("count", len(list)).Build()
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)

	tenantID, err := tenantFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.stats")
	defer span.End()

	stats, err := h.svc.Stats(ctx, tenantID)
	if err != nil {
		return b.WithError(err).Build()
	}

	breakdown := make([]dto.KitchenStatusCountResponse, 0, len(stats.StatusBreakdown))
	for _, row := range stats.StatusBreakdown {
		breakdown = append(breakdown, dto.KitchenStatusCountResponse{
			Status:      string(row.Status),
			Count:       row.Count,
			AvgPrepTime: row.AvgPrepTime,
		})
	}
	return b.WithData(dto.KitchenStatsResponse{
		StatusBreakdown: breakdown,
		AvgWaitTime:     stats.AvgWaitTime,
		TotalOrders:     stats.TotalOrders,
	}).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.getByID", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.Get(ctx, tenantID, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) updateItemStatus(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		ItemID string `json:"item_id"`
		Status string `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.ItemID == "" {
		return b.WithError(errorbank.BadRequest("item_id is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.updateItemStatus", trace.WithAttributes(
		attribute.Int64("kitchen.id", id),
		attribute.String("kitchen.item_id", payload.ItemID),
	))
	defer span.End()

	ko, err := h.svc.UpdateItemStatus(ctx, tenantID, id, payload.ItemID, entity.ItemStatus(payload.Status))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) bump(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.bump", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.Bump(ctx, tenantID, id, payload.Notes)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) reopen(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.reopen", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.Reopen(ctx, tenantID, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Reason == "" {
		return b.WithError(errorbank.BadRequest("reason is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.cancel", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.Cancel(ctx, tenantID, id, payload.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) markUrgent(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		IsUrgent bool `json:"is_urgent"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.markUrgent", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.MarkUrgent(ctx, tenantID, id, payload.IsUrgent)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) assignCook(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		CookID string `json:"cook_id"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.assignCook", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.AssignCook(ctx, tenantID, id, payload.CookID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) addItem(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		ItemID              string   `json:"item_id"`
		ProductName         string   `json:"product_name"`
		Quantity            int      `json:"quantity"`
		Modifiers           []string `json:"modifiers"`
		SpecialInstructions string   `json:"special_instructions"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.addItem", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.AddItem(ctx, tenantID, id, service.AddItemInput{
		ItemID:              payload.ItemID,
		ProductName:         payload.ProductName,
		Quantity:            payload.Quantity,
		Modifiers:           payload.Modifiers,
		SpecialInstructions: payload.SpecialInstructions,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func (h *Handler) syncWithOrder(c echo.Context) error {
	b := response.New(c)

	tenantID, id, err := tenantAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.syncWithOrder", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko, err := h.svc.SyncWithOrder(ctx, tenantID, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(ko)).Build()
}

func tenantFrom(c echo.Context) (string, error) {
	tenantID := c.Request().Header.Get(tenantHeader)
	if tenantID == "" {
		return "", errorbank.BadRequest("missing " + tenantHeader + " header")
	}
	return tenantID, nil
}

func tenantAndID(c echo.Context) (string, int64, error) {
	tenantID, err := tenantFrom(c)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return "", 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return tenantID, id, nil
}

func toDTO(ko *entity.KitchenOrder) dto.KitchenOrderResponse {
	items := make([]dto.KitchenOrderItemResponse, 0, len(ko.Items))
	for _, item := range ko.Items {
		items = append(items, dto.KitchenOrderItemResponse{
			ItemID:              item.ItemID,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			Modifiers:           item.Modifiers,
			SpecialInstructions: item.SpecialInstructions,
			Status:              string(item.Status),
			StartedAt:           item.StartedAt,
			ReadyAt:             item.ReadyAt,
			PrepTime:            item.PrepTime,
		})
	}

	return dto.KitchenOrderResponse{
		ID:                ko.ID,
		OrderID:           ko.OrderID,
		OrderNumber:       ko.OrderNumber,
		OrderType:         string(ko.OrderType),
		TableNumber:       ko.TableNumber,
		CustomerName:      ko.CustomerName,
		Items:             items,
		Status:            string(ko.Status),
		Priority:          string(ko.Priority),
		IsUrgent:          ko.IsUrgent,
		AssignedTo:        ko.AssignedTo,
		Station:           ko.Station,
		EstimatedPrepTime: ko.EstimatedPrepTime,
		Notes:             ko.Notes,
		ReceivedAt:        ko.ReceivedAt,
		StartedAt:         ko.StartedAt,
		CompletedAt:       ko.CompletedAt,
		WaitTime:          ko.WaitTime,
		TotalPrepTime:     ko.TotalPrepTime,
		CreatedAt:         ko.CreatedAt,
		UpdatedAt:         ko.UpdatedAt,
	}
}
