package ticket

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartkubik/kitchenline/internal/database"
	"github.com/smartkubik/kitchenline/internal/entity"
)

var repoTracer = otel.Tracer("github.com/smartkubik/kitchenline/repository/ticket")

// ErrNotFound is returned when no matching ticket exists for the tenant.
var ErrNotFound = errors.New("kitchen order not found")

// ErrDuplicate is returned when a non-deleted ticket already exists for the
// source order. The partial unique index in the migration backs this up even
// when two creators race past the pre-check.
var ErrDuplicate = errors.New("kitchen order already exists for this order")

// ErrVersionConflict is returned when a compare-and-swap save lost a race
// against another writer. Callers reload and retry.
var ErrVersionConflict = errors.New("kitchen order was modified concurrently")

var errTenantRequired = errors.New("tenant id is required")

// Repository encapsulates read/write access to kitchen orders. Every query
// is tenant-scoped; an empty tenant is rejected rather than widened.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new ticket. A unique-index violation on
// (order_id, tenant_id) surfaces as ErrDuplicate.
func (r *Repository) Create(ctx context.Context, ko *entity.KitchenOrder) error {
	if ko == nil {
		return errors.New("nil kitchen order")
	}
	if ko.TenantID == "" {
		return errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.Create", trace.WithAttributes(
		attribute.Int64("kitchen.order_id", ko.OrderID),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(ko).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate")
			return ErrDuplicate
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// GetByID fetches a non-deleted ticket by primary key.
func (r *Repository) GetByID(ctx context.Context, tenantID string, id int64) (*entity.KitchenOrder, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.GetByID", trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	ko := new(entity.KitchenOrder)
	err := r.reader.NewSelect().Model(ko).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Where("is_deleted = FALSE").
		Scan(ctx)
	return returnOne(span, ko, err)
}

// GetByOrderID fetches the non-deleted ticket tracking the given source order.
func (r *Repository) GetByOrderID(ctx context.Context, tenantID string, orderID int64) (*entity.KitchenOrder, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.GetByOrderID", trace.WithAttributes(attribute.Int64("kitchen.order_id", orderID)))
	defer span.End()

	ko := new(entity.KitchenOrder)
	err := r.reader.NewSelect().Model(ko).
		Where("order_id = ?", orderID).
		Where("tenant_id = ?", tenantID).
		Where("is_deleted = FALSE").
		Scan(ctx)
	return returnOne(span, ko, err)
}

// Update saves a loaded ticket with compare-and-swap on its version column.
// On success the in-memory version is bumped; on a lost race the ticket is
// left untouched and ErrVersionConflict is returned.
func (r *Repository) Update(ctx context.Context, ko *entity.KitchenOrder) error {
	if ko == nil {
		return errors.New("nil kitchen order")
	}
	if ko.TenantID == "" {
		return errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.Update", trace.WithAttributes(
		attribute.Int64("kitchen.id", ko.ID),
		attribute.Int64("kitchen.version", ko.Version),
	))
	defer span.End()

	expected := ko.Version
	ko.Version = expected + 1
	ko.UpdatedAt = time.Now().UTC()

	res, err := r.writer.NewUpdate().Model(ko).
		ExcludeColumn("created_at").
		Where("id = ?", ko.ID).
		Where("tenant_id = ?", ko.TenantID).
		Where("version = ?", expected).
		Exec(ctx)
	if err != nil {
		ko.Version = expected
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		ko.Version = expected
		return err
	}
	if affected == 0 {
		ko.Version = expected
		span.SetStatus(codes.Error, "version conflict")
		return ErrVersionConflict
	}
	return nil
}

// SetUrgency toggles the urgent flag and keeps priority in lock-step with it
// as a single targeted update, then returns the fresh row.
func (r *Repository) SetUrgency(ctx context.Context, tenantID string, id int64, isUrgent bool) (*entity.KitchenOrder, error) {
	priority := entity.PriorityNormal
	if isUrgent {
		priority = entity.PriorityASAP
	}
	return r.patch(ctx, "TicketRepository.SetUrgency", tenantID, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("is_urgent = ?", isUrgent).
			Set("priority = ?", priority).
			Set("priority_rank = ?", priority.Rank())
	})
}

// AssignCook records the cook working the ticket. Independent of status.
func (r *Repository) AssignCook(ctx context.Context, tenantID string, id int64, cookID string) (*entity.KitchenOrder, error) {
	return r.patch(ctx, "TicketRepository.AssignCook", tenantID, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("assigned_to = ?", cookID)
	})
}

// Cancel moves the ticket to its terminal cancelled state and records the
// reason. Tickets already cancelled are not matched; the caller decides how
// to report that.
func (r *Repository) Cancel(ctx context.Context, tenantID string, id int64, reason string) (*entity.KitchenOrder, error) {
	return r.patch(ctx, "TicketRepository.Cancel", tenantID, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("status = ?", entity.OrderStatusCancelled).
			Set("notes = ?", reason).
			Where("status <> ?", entity.OrderStatusCancelled)
	})
}

// patch runs a targeted single-row update with a version bump and reloads the
// row. ErrNotFound covers both a missing ticket and an unmatched guard.
func (r *Repository) patch(ctx context.Context, op, tenantID string, id int64, apply func(*bun.UpdateQuery) *bun.UpdateQuery) (*entity.KitchenOrder, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("kitchen.id", id)))
	defer span.End()

	q := r.writer.NewUpdate().Model((*entity.KitchenOrder)(nil)).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Where("is_deleted = FALSE")
	res, err := apply(q).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, tenantID, id)
}

// ActiveFilter narrows the live queue. Nil fields are ignored.
type ActiveFilter struct {
	Status   *entity.OrderStatus
	Station  *string
	Priority *entity.Priority
	IsUrgent *bool
}

// FindActive returns the live queue for a tenant: tickets in new, preparing,
// or ready, ranked urgent-first, then by priority severity, then oldest
// first within a tier.
func (r *Repository) FindActive(ctx context.Context, tenantID string, filter ActiveFilter) ([]entity.KitchenOrder, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.FindActive")
	defer span.End()

	var orders []entity.KitchenOrder
	q := r.reader.NewSelect().Model(&orders).
		Where("tenant_id = ?", tenantID).
		Where("is_deleted = FALSE")

	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	} else {
		q = q.Where("status IN (?)", bun.In([]entity.OrderStatus{
			entity.OrderStatusNew, entity.OrderStatusPreparing, entity.OrderStatusReady,
		}))
	}
	if filter.Station != nil {
		q = q.Where("station = ?", *filter.Station)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}
	if filter.IsUrgent != nil {
		q = q.Where("is_urgent = ?", *filter.IsUrgent)
	}

	err := q.
		OrderExpr("is_urgent DESC").
		OrderExpr("priority_rank DESC").
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// StatusBreakdown groups tickets created since the cutoff by status with a
// count and the average total prep time in seconds.
func (r *Repository) StatusBreakdown(ctx context.Context, tenantID string, since time.Time) ([]entity.KitchenStatusCount, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.StatusBreakdown")
	defer span.End()

	var rows []entity.KitchenStatusCount
	err := r.reader.NewSelect().Model((*entity.KitchenOrder)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(CAST(AVG(total_prep_time) AS INT), 0) AS avg_prep_time").
		Where("tenant_id = ?", tenantID).
		Where("created_at >= ?", since).
		Where("is_deleted = FALSE").
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rows, nil
}

// AvgWaitTime averages the recorded wait over tickets that entered
// preparation since the cutoff. Zero when none have.
func (r *Repository) AvgWaitTime(ctx context.Context, tenantID string, since time.Time) (int, error) {
	if tenantID == "" {
		return 0, errTenantRequired
	}
	ctx, span := repoTracer.Start(ctx, "TicketRepository.AvgWaitTime")
	defer span.End()

	var avg int
	err := r.reader.NewSelect().Model((*entity.KitchenOrder)(nil)).
		ColumnExpr("COALESCE(CAST(AVG(wait_time) AS INT), 0)").
		Where("tenant_id = ?", tenantID).
		Where("created_at >= ?", since).
		Where("started_at IS NOT NULL").
		Where("is_deleted = FALSE").
		Scan(ctx, &avg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return 0, err
	}
	return avg, nil
}

func returnOne(span trace.Span, ko *entity.KitchenOrder, err error) (*entity.KitchenOrder, error) {
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return ko, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.IntegrityViolation()
	}
	return false
}
