package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smartkubik/kitchenline/internal/cache"
	"github.com/smartkubik/kitchenline/internal/config"
	"github.com/smartkubik/kitchenline/internal/entity"
	orderrepo "github.com/smartkubik/kitchenline/internal/repository/order"
	ticketrepo "github.com/smartkubik/kitchenline/internal/repository/ticket"
	"github.com/smartkubik/kitchenline/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/smartkubik/kitchenline/service/kitchen")

// Service runs the kitchen order lifecycle: snapshotting external orders
// into tickets, item transitions, aggregate reclassification, bump/cancel/
// reopen, ranking, and the daily rollup.
type Service struct {
	repo        TicketRepository
	orders      OrderReader
	cache       cache.Store
	cacheTTL    time.Duration
	logger      *zap.Logger
	saveRetries int
	syncWindow  time.Duration
	now         func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository TicketRepository
	Orders     OrderReader
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:        p.Repository,
		orders:      p.Orders,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		logger:      p.Logger,
		saveRetries: p.Config.Kitchen.SaveRetries,
		syncWindow:  p.Config.Kitchen.SyncWindow,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateTicketInput carries the caller-supplied creation knobs.
type CreateTicketInput struct {
	OrderID           int64
	Station           string
	Priority          entity.Priority
	Notes             string
	EstimatedPrepTime int
}

// CreateFromOrder snapshots the external order into a new ticket. At most
// one non-deleted ticket may exist per (order, tenant); a second create
// fails with Conflict and leaves the existing ticket untouched.
func (s *Service) CreateFromOrder(ctx context.Context, tenantID string, in CreateTicketInput) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.CreateFromOrder", trace.WithAttributes(
		attribute.Int64("order.id", in.OrderID),
	))
	defer span.End()

	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityNormal
	}
	if !priority.Valid() {
		return nil, errorbank.BadRequest("unknown priority", errorbank.WithDetail("priority", string(in.Priority)))
	}

	order, err := s.orders.GetByID(ctx, tenantID, in.OrderID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound(fmt.Sprintf("order %d not found", in.OrderID))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "order read failed")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if existing, err := s.repo.GetByOrderID(ctx, tenantID, in.OrderID); err == nil && existing != nil {
		return nil, errorbank.Conflict("kitchen order already exists for this order")
	} else if err != nil && !errors.Is(err, ticketrepo.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "duplicate check failed")
		return nil, errorbank.Internal("failed to check existing kitchen order", errorbank.WithCause(err))
	}

	items := snapshotItems(order)
	estimated := in.EstimatedPrepTime
	if estimated <= 0 {
		estimated = entity.EstimatePrepTime(len(items))
	}

	now := s.now()
	ko := &entity.KitchenOrder{
		TenantID:          tenantID,
		OrderID:           order.ID,
		OrderNumber:       order.Number,
		OrderType:         order.OrderType(),
		TableNumber:       order.TableNumber,
		CustomerName:      order.CustomerName,
		Items:             items,
		Status:            entity.OrderStatusNew,
		IsUrgent:          false,
		Station:           in.Station,
		EstimatedPrepTime: estimated,
		Notes:             in.Notes,
		ReceivedAt:        now,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	ko.SetPriority(priority)

	if err := s.repo.Create(ctx, ko); err != nil {
		if errors.Is(err, ticketrepo.ErrDuplicate) {
			return nil, errorbank.Conflict("kitchen order already exists for this order")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create kitchen order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, ko)
	s.logger.Info("kitchen order created",
		zap.String("tenant", tenantID),
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.Number),
		zap.Int("items", len(items)),
	)
	return ko, nil
}

// Get retrieves a ticket, consulting the cache first.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.Get", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	if ko, err := s.getFromCache(ctx, tenantID, id); err == nil {
		return ko, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("kitchen cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	ko, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, s.mapReadErr(span, err)
	}
	s.storeInCache(ctx, ko)
	return ko, nil
}

// UpdateItemStatus applies one legal item transition, stamps timestamps, and
// reclassifies the aggregate status. The save is compare-and-swap on the
// ticket version; a lost race reloads and retries.
func (s *Service) UpdateItemStatus(ctx context.Context, tenantID string, ticketID int64, itemID string, status entity.ItemStatus) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.UpdateItemStatus", trace.WithAttributes(
		attribute.Int64("kitchen.id", ticketID),
		attribute.String("kitchen.item_id", itemID),
		attribute.String("kitchen.item_status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return nil, errorbank.BadRequest("unknown item status", errorbank.WithDetail("status", string(status)))
	}

	return s.save(ctx, span, tenantID, ticketID, func(ko *entity.KitchenOrder) (bool, error) {
		if err := guardMutable(ko); err != nil {
			return false, err
		}
		item := ko.Item(itemID)
		if item == nil {
			return false, errorbank.NotFound("item not found in kitchen order")
		}
		if item.Status == status {
			// Repeated calls are no-ops; timestamps are never reset.
			return false, nil
		}
		if !item.Status.CanTransitionTo(status) {
			return false, errorbank.BadRequest(
				fmt.Sprintf("item cannot move from %s to %s", item.Status, status),
			)
		}

		now := s.now()
		item.Status = status
		switch status {
		case entity.ItemStatusPreparing:
			if item.StartedAt == nil {
				started := now
				item.StartedAt = &started
			}
		case entity.ItemStatusReady:
			if item.ReadyAt == nil {
				ready := now
				item.ReadyAt = &ready
				if item.StartedAt != nil {
					prep := int(ready.Sub(*item.StartedAt).Seconds())
					if prep < 0 {
						prep = 0
					}
					item.PrepTime = &prep
				}
			}
		}

		ko.Reclassify(now)
		return true, nil
	})
}

// Bump completes the ticket: ready to be served or picked up.
func (s *Service) Bump(ctx context.Context, tenantID string, ticketID int64, notes string) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.Bump", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	return s.save(ctx, span, tenantID, ticketID, func(ko *entity.KitchenOrder) (bool, error) {
		if ko.Status == entity.OrderStatusCompleted {
			return false, errorbank.Conflict("kitchen order is already completed")
		}
		if ko.Status == entity.OrderStatusCancelled {
			return false, errorbank.Conflict("kitchen order is cancelled")
		}

		completed := s.now()
		ko.Status = entity.OrderStatusCompleted
		ko.CompletedAt = &completed
		if ko.StartedAt != nil {
			total := int(completed.Sub(*ko.StartedAt).Seconds())
			if total < 0 {
				total = 0
			}
			ko.TotalPrepTime = &total
		}
		if notes != "" {
			ko.Notes = notes
		}
		return true, nil
	})
}

// Reopen reverses a bump: ready if every item is ready, preparing otherwise.
func (s *Service) Reopen(ctx context.Context, tenantID string, ticketID int64) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.Reopen", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	return s.save(ctx, span, tenantID, ticketID, func(ko *entity.KitchenOrder) (bool, error) {
		if ko.Status != entity.OrderStatusCompleted {
			return false, errorbank.BadRequest("only completed kitchen orders can be reopened")
		}

		allReady := true
		for _, item := range ko.Items {
			if item.Status != entity.ItemStatusReady {
				allReady = false
				break
			}
		}
		if allReady {
			ko.Status = entity.OrderStatusReady
		} else {
			ko.Status = entity.OrderStatusPreparing
		}
		ko.CompletedAt = nil
		return true, nil
	})
}

// Cancel is the terminal transition; the reason lands in the notes field.
func (s *Service) Cancel(ctx context.Context, tenantID string, ticketID int64, reason string) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.Cancel", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	ko, err := s.repo.Cancel(ctx, tenantID, ticketID, reason)
	if err != nil {
		if errors.Is(err, ticketrepo.ErrNotFound) {
			// Either absent or already cancelled; one more read tells which.
			if existing, getErr := s.repo.GetByID(ctx, tenantID, ticketID); getErr == nil && existing.Status == entity.OrderStatusCancelled {
				return nil, errorbank.Conflict("kitchen order is already cancelled")
			}
			return nil, errorbank.NotFound("kitchen order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to cancel kitchen order", errorbank.WithCause(err))
	}

	s.dropFromCache(ctx, tenantID, ticketID)
	s.logger.Info("kitchen order cancelled",
		zap.String("tenant", tenantID),
		zap.String("order_number", ko.OrderNumber),
		zap.String("reason", reason),
	)
	return ko, nil
}

// MarkUrgent toggles the urgent flag; priority follows in lock-step.
func (s *Service) MarkUrgent(ctx context.Context, tenantID string, ticketID int64, isUrgent bool) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.MarkUrgent", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	ko, err := s.repo.SetUrgency(ctx, tenantID, ticketID, isUrgent)
	if err != nil {
		return nil, s.mapReadErr(span, err)
	}
	s.storeInCache(ctx, ko)
	s.logger.Info("kitchen order urgency changed",
		zap.String("tenant", tenantID),
		zap.String("order_number", ko.OrderNumber),
		zap.Bool("urgent", isUrgent),
	)
	return ko, nil
}

// AssignCook records who is working the ticket. Independent of status.
func (s *Service) AssignCook(ctx context.Context, tenantID string, ticketID int64, cookID string) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.AssignCook", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	if cookID == "" {
		return nil, errorbank.BadRequest("cook id is required")
	}
	ko, err := s.repo.AssignCook(ctx, tenantID, ticketID, cookID)
	if err != nil {
		return nil, s.mapReadErr(span, err)
	}
	s.storeInCache(ctx, ko)
	return ko, nil
}

// FindActive returns the ranked live queue, optionally narrowed.
func (s *Service) FindActive(ctx context.Context, tenantID string, filter ticketrepo.ActiveFilter) ([]entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.FindActive")
	defer span.End()

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, errorbank.BadRequest("unknown status filter", errorbank.WithDetail("status", string(*filter.Status)))
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, errorbank.BadRequest("unknown priority filter", errorbank.WithDetail("priority", string(*filter.Priority)))
	}

	orders, err := s.repo.FindActive(ctx, tenantID, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list active kitchen orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Stats builds the daily rollup: per-status counts with average prep time,
// plus the tenant-wide average wait over tickets that entered preparation.
func (s *Service) Stats(ctx context.Context, tenantID string) (*entity.KitchenStats, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.Stats")
	defer span.End()

	since := startOfDay(s.now())
	breakdown, err := s.repo.StatusBreakdown(ctx, tenantID, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to aggregate kitchen stats", errorbank.WithCause(err))
	}
	avgWait, err := s.repo.AvgWaitTime(ctx, tenantID, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to aggregate wait times", errorbank.WithCause(err))
	}

	total := 0
	for _, row := range breakdown {
		total += row.Count
	}
	return &entity.KitchenStats{
		StatusBreakdown: breakdown,
		AvgWaitTime:     avgWait,
		TotalOrders:     total,
	}, nil
}

// AddItemInput describes one line appended through the side channel.
type AddItemInput struct {
	ItemID              string
	ProductName         string
	Quantity            int
	Modifiers           []string
	SpecialInstructions string
}

// AddItem appends a single pending item to an existing ticket. Appending to
// a ready or completed ticket drops it back to preparing, since there is
// work to do again.
func (s *Service) AddItem(ctx context.Context, tenantID string, ticketID int64, in AddItemInput) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.AddItem", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	if in.ItemID == "" || in.ProductName == "" {
		return nil, errorbank.BadRequest("item id and product name are required")
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	return s.save(ctx, span, tenantID, ticketID, func(ko *entity.KitchenOrder) (bool, error) {
		if ko.Status == entity.OrderStatusCancelled {
			return false, errorbank.Conflict("kitchen order is cancelled")
		}
		if ko.Item(in.ItemID) != nil {
			return false, nil
		}

		ko.Items = append(ko.Items, entity.KitchenOrderItem{
			ItemID:              in.ItemID,
			ProductName:         in.ProductName,
			Quantity:            in.Quantity,
			Modifiers:           in.Modifiers,
			SpecialInstructions: in.SpecialInstructions,
			Status:              entity.ItemStatusPending,
		})
		demoteForNewWork(ko)
		return true, nil
	})
}

// SyncWithOrder pulls lines recently added to the source order into the
// ticket. Append-only: nothing already on the ticket is changed or removed.
func (s *Service) SyncWithOrder(ctx context.Context, tenantID string, ticketID int64) (*entity.KitchenOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "KitchenService.SyncWithOrder", trace.WithAttributes(attribute.Int64("kitchen.id", ticketID)))
	defer span.End()

	return s.save(ctx, span, tenantID, ticketID, func(ko *entity.KitchenOrder) (bool, error) {
		if ko.Status == entity.OrderStatusCancelled {
			return false, errorbank.Conflict("kitchen order is cancelled")
		}

		order, err := s.orders.GetByID(ctx, tenantID, ko.OrderID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return false, errorbank.NotFound(fmt.Sprintf("order %d not found", ko.OrderID))
			}
			return false, errorbank.Internal("failed to load order", errorbank.WithCause(err))
		}

		cutoff := s.now().Add(-s.syncWindow)
		added := 0
		for _, line := range recentLines(order, cutoff) {
			if !line.RequiresKitchen() || ko.Item(line.ID) != nil {
				continue
			}
			ko.Items = append(ko.Items, snapshotItem(line))
			added++
		}
		if added == 0 {
			return false, nil
		}

		demoteForNewWork(ko)
		s.logger.Info("kitchen order synced",
			zap.String("tenant", tenantID),
			zap.String("order_number", ko.OrderNumber),
			zap.Int("added", added),
		)
		return true, nil
	})
}

// save is the shared load-mutate-store loop. mutate returns whether anything
// changed; when the versioned write loses a race the ticket is reloaded and
// mutate runs again against fresh state.
func (s *Service) save(ctx context.Context, span trace.Span, tenantID string, ticketID int64, mutate func(*entity.KitchenOrder) (bool, error)) (*entity.KitchenOrder, error) {
	retries := s.saveRetries
	if retries < 1 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		ko, err := s.repo.GetByID(ctx, tenantID, ticketID)
		if err != nil {
			return nil, s.mapReadErr(span, err)
		}

		changed, err := mutate(ko)
		if err != nil {
			return nil, err
		}
		if !changed {
			return ko, nil
		}

		err = s.repo.Update(ctx, ko)
		if errors.Is(err, ticketrepo.ErrVersionConflict) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to save kitchen order", errorbank.WithCause(err))
		}

		s.storeInCache(ctx, ko)
		return ko, nil
	}
	span.SetStatus(codes.Error, "version conflict")
	return nil, errorbank.Conflict("kitchen order was modified concurrently; retry")
}

func (s *Service) mapReadErr(span trace.Span, err error) error {
	if errors.Is(err, ticketrepo.ErrNotFound) {
		return errorbank.NotFound("kitchen order not found")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal("failed to load kitchen order", errorbank.WithCause(err))
}

// guardMutable rejects item mutations on terminal tickets. Completed
// tickets must be reopened first; cancelled tickets never come back.
func guardMutable(ko *entity.KitchenOrder) error {
	switch ko.Status {
	case entity.OrderStatusCancelled:
		return errorbank.Conflict("kitchen order is cancelled")
	case entity.OrderStatusCompleted:
		return errorbank.Conflict("kitchen order is completed; reopen it first")
	}
	return nil
}

// demoteForNewWork drops a done ticket back to preparing after new items
// arrive. A ticket that has not started stays where it is.
func demoteForNewWork(ko *entity.KitchenOrder) {
	if ko.Status == entity.OrderStatusReady || ko.Status == entity.OrderStatusCompleted {
		ko.Status = entity.OrderStatusPreparing
		ko.CompletedAt = nil
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (s *Service) cacheKey(tenantID string, id int64) string {
	return fmt.Sprintf("kitchen:%s:%d", tenantID, id)
}

func (s *Service) getFromCache(ctx context.Context, tenantID string, id int64) (*entity.KitchenOrder, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(tenantID, id))
	if err != nil {
		return nil, err
	}
	var ko entity.KitchenOrder
	if err := json.Unmarshal(bytes, &ko); err != nil {
		return nil, err
	}
	return &ko, nil
}

func (s *Service) storeInCache(ctx context.Context, ko *entity.KitchenOrder) {
	if s.cache == nil || ko == nil {
		return
	}
	bytes, err := json.Marshal(ko)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(ko.TenantID, ko.ID), bytes, s.cacheTTL); err != nil {
		s.logger.Warn("kitchen cache write failed", zap.Int64("id", ko.ID), zap.Error(err))
	}
}

func (s *Service) dropFromCache(ctx context.Context, tenantID string, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(tenantID, id)); err != nil {
		s.logger.Warn("kitchen cache delete failed", zap.Int64("id", id), zap.Error(err))
	}
}
