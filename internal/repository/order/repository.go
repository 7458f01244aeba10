package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartkubik/kitchenline/internal/database"
	"github.com/smartkubik/kitchenline/internal/entity"
)

var repoTracer = otel.Tracer("github.com/smartkubik/kitchenline/repository/order")

// ErrNotFound is returned when the source order is missing for the tenant.
var ErrNotFound = errors.New("order not found")

// Repository is the read-only window onto the external order store. The
// ordering subsystem owns writes; the kitchen engine only snapshots.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires the order reader against the read replica when one is
// configured.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// GetByID fetches an order scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID string, id int64) (*entity.Order, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}
