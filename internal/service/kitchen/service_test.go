package kitchen

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartkubik/kitchenline/internal/config"
	"github.com/smartkubik/kitchenline/internal/entity"
	orderrepo "github.com/smartkubik/kitchenline/internal/repository/order"
	ticketrepo "github.com/smartkubik/kitchenline/internal/repository/ticket"
	"github.com/smartkubik/kitchenline/pkg/errorbank"
)

const testTenant = "tenant-1"

type fakeTicketRepo struct {
	tickets map[int64]*entity.KitchenOrder
	nextID  int64

	// failSaves makes Update lose the version race that many times, with
	// onConflict standing in for the competing writer.
	failSaves  int
	onConflict func(*fakeTicketRepo)
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[int64]*entity.KitchenOrder)}
}

func cloneTicket(ko *entity.KitchenOrder) *entity.KitchenOrder {
	raw, err := json.Marshal(ko)
	if err != nil {
		panic(err)
	}
	out := new(entity.KitchenOrder)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func (f *fakeTicketRepo) Create(_ context.Context, ko *entity.KitchenOrder) error {
	for _, t := range f.tickets {
		if t.TenantID == ko.TenantID && t.OrderID == ko.OrderID && !t.IsDeleted {
			return ticketrepo.ErrDuplicate
		}
	}
	f.nextID++
	ko.ID = f.nextID
	f.tickets[ko.ID] = cloneTicket(ko)
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, tenantID string, id int64) (*entity.KitchenOrder, error) {
	t, ok := f.tickets[id]
	if !ok || t.TenantID != tenantID || t.IsDeleted {
		return nil, ticketrepo.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (f *fakeTicketRepo) GetByOrderID(_ context.Context, tenantID string, orderID int64) (*entity.KitchenOrder, error) {
	for _, t := range f.tickets {
		if t.TenantID == tenantID && t.OrderID == orderID && !t.IsDeleted {
			return cloneTicket(t), nil
		}
	}
	return nil, ticketrepo.ErrNotFound
}

func (f *fakeTicketRepo) Update(_ context.Context, ko *entity.KitchenOrder) error {
	if f.failSaves > 0 {
		f.failSaves--
		if f.onConflict != nil {
			f.onConflict(f)
		}
		return ticketrepo.ErrVersionConflict
	}
	stored, ok := f.tickets[ko.ID]
	if !ok || stored.TenantID != ko.TenantID || stored.Version != ko.Version {
		return ticketrepo.ErrVersionConflict
	}
	ko.Version++
	f.tickets[ko.ID] = cloneTicket(ko)
	return nil
}

func (f *fakeTicketRepo) SetUrgency(ctx context.Context, tenantID string, id int64, isUrgent bool) (*entity.KitchenOrder, error) {
	t, ok := f.tickets[id]
	if !ok || t.TenantID != tenantID || t.IsDeleted {
		return nil, ticketrepo.ErrNotFound
	}
	t.IsUrgent = isUrgent
	if isUrgent {
		t.SetPriority(entity.PriorityASAP)
	} else {
		t.SetPriority(entity.PriorityNormal)
	}
	t.Version++
	return cloneTicket(t), nil
}

func (f *fakeTicketRepo) AssignCook(ctx context.Context, tenantID string, id int64, cookID string) (*entity.KitchenOrder, error) {
	t, ok := f.tickets[id]
	if !ok || t.TenantID != tenantID || t.IsDeleted {
		return nil, ticketrepo.ErrNotFound
	}
	t.AssignedTo = cookID
	t.Version++
	return cloneTicket(t), nil
}

func (f *fakeTicketRepo) Cancel(ctx context.Context, tenantID string, id int64, reason string) (*entity.KitchenOrder, error) {
	t, ok := f.tickets[id]
	if !ok || t.TenantID != tenantID || t.IsDeleted || t.Status == entity.OrderStatusCancelled {
		return nil, ticketrepo.ErrNotFound
	}
	t.Status = entity.OrderStatusCancelled
	t.Notes = reason
	t.Version++
	return cloneTicket(t), nil
}

func (f *fakeTicketRepo) FindActive(_ context.Context, tenantID string, filter ticketrepo.ActiveFilter) ([]entity.KitchenOrder, error) {
	var out []entity.KitchenOrder
	for _, t := range f.tickets {
		if t.TenantID != tenantID || t.IsDeleted {
			continue
		}
		if filter.Status != nil {
			if t.Status != *filter.Status {
				continue
			}
		} else if !t.Status.Active() {
			continue
		}
		if filter.Station != nil && t.Station != *filter.Station {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.IsUrgent != nil && t.IsUrgent != *filter.IsUrgent {
			continue
		}
		out = append(out, *cloneTicket(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsUrgent != out[j].IsUrgent {
			return out[i].IsUrgent
		}
		if out[i].PriorityRank != out[j].PriorityRank {
			return out[i].PriorityRank > out[j].PriorityRank
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeTicketRepo) StatusBreakdown(_ context.Context, tenantID string, since time.Time) ([]entity.KitchenStatusCount, error) {
	counts := make(map[entity.OrderStatus]*entity.KitchenStatusCount)
	prepSums := make(map[entity.OrderStatus]int)
	prepCounts := make(map[entity.OrderStatus]int)
	for _, t := range f.tickets {
		if t.TenantID != tenantID || t.IsDeleted || t.CreatedAt.Before(since) {
			continue
		}
		row, ok := counts[t.Status]
		if !ok {
			row = &entity.KitchenStatusCount{Status: t.Status}
			counts[t.Status] = row
		}
		row.Count++
		if t.TotalPrepTime != nil {
			prepSums[t.Status] += *t.TotalPrepTime
			prepCounts[t.Status]++
		}
	}
	var rows []entity.KitchenStatusCount
	for status, row := range counts {
		if prepCounts[status] > 0 {
			row.AvgPrepTime = prepSums[status] / prepCounts[status]
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (f *fakeTicketRepo) AvgWaitTime(_ context.Context, tenantID string, since time.Time) (int, error) {
	sum, n := 0, 0
	for _, t := range f.tickets {
		if t.TenantID != tenantID || t.IsDeleted || t.CreatedAt.Before(since) || t.StartedAt == nil {
			continue
		}
		if t.WaitTime != nil {
			sum += *t.WaitTime
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / n, nil
}

type fakeOrderReader struct {
	orders map[int64]*entity.Order
}

func newFakeOrderReader() *fakeOrderReader {
	return &fakeOrderReader{orders: make(map[int64]*entity.Order)}
}

func (f *fakeOrderReader) GetByID(_ context.Context, tenantID string, id int64) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, orderrepo.ErrNotFound
	}
	return o, nil
}

func newTestService(t *testing.T) (*Service, *fakeTicketRepo, *fakeOrderReader) {
	t.Helper()
	repo := newFakeTicketRepo()
	orders := newFakeOrderReader()
	cfg := config.Config{}
	cfg.Cache.DefaultTTL = time.Minute
	cfg.Kitchen.SaveRetries = 3
	cfg.Kitchen.SyncWindow = 2 * time.Minute
	svc := NewService(Params{
		Repository: repo,
		Orders:     orders,
		Config:     cfg,
		Logger:     zap.NewNop(),
	})
	return svc, repo, orders
}

func seedOrder(orders *fakeOrderReader, id int64, lines ...entity.OrderLineItem) *entity.Order {
	order := &entity.Order{
		ID:          id,
		TenantID:    testTenant,
		Number:      "ORDER-42",
		TableNumber: "7",
		Items:       lines,
	}
	orders.orders[id] = order
	return order
}

func line(id, name string) entity.OrderLineItem {
	return entity.OrderLineItem{ID: id, ProductName: name, Quantity: 1}
}

func TestCreateFromOrderSnapshotsKitchenLines(t *testing.T) {
	svc, _, orders := newTestService(t)
	drinks := false
	seedOrder(orders, 10,
		line("li-1", "Pizza"),
		line("li-2", "Salad"),
		entity.OrderLineItem{ID: "li-3", ProductName: "Cola", Quantity: 1, SendToKitchen: &drinks},
	)

	ko, err := svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 10})
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusNew, ko.Status)
	assert.Equal(t, entity.OrderTypeDineIn, ko.OrderType)
	assert.Equal(t, entity.PriorityNormal, ko.Priority)
	assert.Equal(t, 1, ko.PriorityRank)
	require.Len(t, ko.Items, 2)
	assert.Equal(t, entity.ItemStatusPending, ko.Items[0].Status)
	assert.Equal(t, 7, ko.EstimatedPrepTime)
	assert.Equal(t, int64(1), ko.Version)
}

func TestCreateFromOrderDuplicateIsConflict(t *testing.T) {
	svc, _, orders := newTestService(t)
	seedOrder(orders, 10, line("li-1", "Pizza"))

	_, err := svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 10})
	require.NoError(t, err)

	_, err = svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 10})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestCreateFromOrderMissingOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 99})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCreateFromOrderRejectsUnknownPriority(t *testing.T) {
	svc, _, orders := newTestService(t)
	seedOrder(orders, 10, line("li-1", "Pizza"))

	_, err := svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 10, Priority: "whenever"})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func mustCreate(t *testing.T, svc *Service, orders *fakeOrderReader, lines ...entity.OrderLineItem) *entity.KitchenOrder {
	t.Helper()
	seedOrder(orders, 10, lines...)
	ko, err := svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 10})
	require.NoError(t, err)
	return ko
}

func TestUpdateItemStatusDrivesAggregate(t *testing.T) {
	svc, _, orders := newTestService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"), line("li-2", "Salad"))

	svc.now = func() time.Time { return base.Add(30 * time.Second) }
	got, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPreparing, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.WaitTime)
	assert.Equal(t, 30, *got.WaitTime)
	require.NotNil(t, got.Item("li-1").StartedAt)

	svc.now = func() time.Time { return base.Add(90 * time.Second) }
	got, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusReady)
	require.NoError(t, err)
	item := got.Item("li-1")
	require.NotNil(t, item.ReadyAt)
	require.NotNil(t, item.PrepTime)
	assert.Equal(t, 60, *item.PrepTime)
	// The second item is still pending, so the ticket stays in preparing.
	assert.Equal(t, entity.OrderStatusPreparing, got.Status)

	_, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-2", entity.ItemStatusPreparing)
	require.NoError(t, err)
	got, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-2", entity.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReady, got.Status)
}

func TestUpdateItemStatusRepeatedCallKeepsTimestamps(t *testing.T) {
	svc, _, orders := newTestService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	first, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	firstStarted := *first.Item("li-1").StartedAt

	svc.now = func() time.Time { return base.Add(time.Hour) }
	again, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, firstStarted, *again.Item("li-1").StartedAt)
	assert.Equal(t, first.Version, again.Version)
}

func TestUpdateItemStatusRejectsIllegalEdge(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusServed)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestUpdateItemStatusValidation(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", "burnt")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "nope", entity.ItemStatusPreparing)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestBumpAndReopenRoundTrip(t *testing.T) {
	svc, _, orders := newTestService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	_, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusReady)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(5 * time.Minute) }
	bumped, err := svc.Bump(context.Background(), testTenant, ko.ID, "runner 2")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, bumped.Status)
	require.NotNil(t, bumped.CompletedAt)
	require.NotNil(t, bumped.TotalPrepTime)
	assert.Equal(t, "runner 2", bumped.Notes)

	_, err = svc.Bump(context.Background(), testTenant, ko.ID, "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())

	reopened, err := svc.Reopen(context.Background(), testTenant, ko.ID)
	require.NoError(t, err)
	// Every item is still ready, so the ticket lands back on ready.
	assert.Equal(t, entity.OrderStatusReady, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)
}

func TestReopenWithUnfinishedItemsGoesToPreparing(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"), line("li-2", "Salad"))

	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	_, err = svc.Bump(context.Background(), testTenant, ko.ID, "")
	require.NoError(t, err)

	reopened, err := svc.Reopen(context.Background(), testTenant, ko.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPreparing, reopened.Status)
}

func TestReopenRequiresCompleted(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.Reopen(context.Background(), testTenant, ko.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestCancelIsTerminal(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	cancelled, err := svc.Cancel(context.Background(), testTenant, ko.ID, "customer left")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "customer left", cancelled.Notes)

	_, err = svc.Cancel(context.Background(), testTenant, ko.ID, "again")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())

	_, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())

	_, err = svc.Cancel(context.Background(), testTenant, 404, "missing")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCompletedTicketRequiresReopenForItemWork(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.Bump(context.Background(), testTenant, ko.ID, "")
	require.NoError(t, err)

	_, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestSaveRetriesAfterLostRace(t *testing.T) {
	svc, repo, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	repo.failSaves = 1
	got, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, entity.ItemStatusPreparing, got.Item("li-1").Status)
}

func TestSaveGivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, repo, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	repo.failSaves = 3
	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestMarkUrgentRaisesPriority(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	got, err := svc.MarkUrgent(context.Background(), testTenant, ko.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsUrgent)
	assert.Equal(t, entity.PriorityASAP, got.Priority)
	assert.Equal(t, 3, got.PriorityRank)

	got, err = svc.MarkUrgent(context.Background(), testTenant, ko.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsUrgent)
	assert.Equal(t, entity.PriorityNormal, got.Priority)
}

func TestAssignCookRequiresID(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.AssignCook(context.Background(), testTenant, ko.ID, "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	got, err := svc.AssignCook(context.Background(), testTenant, ko.ID, "cook-7")
	require.NoError(t, err)
	assert.Equal(t, "cook-7", got.AssignedTo)
}

func TestFindActiveValidatesFilters(t *testing.T) {
	svc, _, _ := newTestService(t)

	bad := entity.OrderStatus("vaporized")
	_, err := svc.FindActive(context.Background(), testTenant, ticketrepo.ActiveFilter{Status: &bad})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestFindActiveRanksUrgencyThenPriorityThenAge(t *testing.T) {
	svc, _, orders := newTestService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Oldest ticket, normal priority.
	svc.now = func() time.Time { return base }
	seedOrder(orders, 11, line("li-c", "Soup"))
	older, err := svc.CreateFromOrder(ctx, testTenant, CreateTicketInput{OrderID: 11})
	require.NoError(t, err)

	// Newer, asap priority but not urgent.
	svc.now = func() time.Time { return base.Add(time.Minute) }
	seedOrder(orders, 12, line("li-b", "Salad"))
	asap, err := svc.CreateFromOrder(ctx, testTenant, CreateTicketInput{OrderID: 12, Priority: entity.PriorityASAP})
	require.NoError(t, err)

	// Newest of all, created normal, then flagged urgent.
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	seedOrder(orders, 13, line("li-a", "Pizza"))
	urgent, err := svc.CreateFromOrder(ctx, testTenant, CreateTicketInput{OrderID: 13})
	require.NoError(t, err)
	_, err = svc.MarkUrgent(ctx, testTenant, urgent.ID, true)
	require.NoError(t, err)

	// Newer normal ticket; age only breaks ties within a severity tier.
	svc.now = func() time.Time { return base.Add(3 * time.Minute) }
	seedOrder(orders, 14, line("li-d", "Bread"))
	newer, err := svc.CreateFromOrder(ctx, testTenant, CreateTicketInput{OrderID: 14})
	require.NoError(t, err)

	active, err := svc.FindActive(ctx, testTenant, ticketrepo.ActiveFilter{})
	require.NoError(t, err)
	require.Len(t, active, 4)
	assert.Equal(t, urgent.ID, active[0].ID)
	assert.Equal(t, asap.ID, active[1].ID)
	assert.Equal(t, older.ID, active[2].ID)
	assert.Equal(t, newer.ID, active[3].ID)
}

func TestFindActiveExcludesFinishedTickets(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	seedOrder(orders, 11, line("li-2", "Salad"))
	second, err := svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 11})
	require.NoError(t, err)
	_, err = svc.Bump(context.Background(), testTenant, second.ID, "")
	require.NoError(t, err)

	active, err := svc.FindActive(context.Background(), testTenant, ticketrepo.ActiveFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ko.ID, active[0].ID)
}

func TestAddItemDemotesFinishedTicket(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)
	_, err = svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusReady)
	require.NoError(t, err)

	got, err := svc.AddItem(context.Background(), testTenant, ko.ID, AddItemInput{ItemID: "li-9", ProductName: "Soup"})
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, entity.ItemStatusPending, got.Item("li-9").Status)
	assert.Equal(t, 1, got.Item("li-9").Quantity)
	assert.Equal(t, entity.OrderStatusPreparing, got.Status)
}

func TestAddItemIsIdempotentPerLine(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	got, err := svc.AddItem(context.Background(), testTenant, ko.ID, AddItemInput{ItemID: "li-1", ProductName: "Pizza"})
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	_, err = svc.AddItem(context.Background(), testTenant, ko.ID, AddItemInput{ItemID: "", ProductName: "Soup"})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestSyncWithOrderAppendsRecentLines(t *testing.T) {
	svc, _, orders := newTestService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	recent := base.Add(-time.Minute)
	stale := base.Add(-time.Hour)
	order := orders.orders[10]
	order.Items = append(order.Items,
		entity.OrderLineItem{ID: "li-2", ProductName: "Soup", Quantity: 1, AddedAt: &recent},
		entity.OrderLineItem{ID: "li-3", ProductName: "Bread", Quantity: 1, AddedAt: &stale},
	)

	got, err := svc.SyncWithOrder(context.Background(), testTenant, ko.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.NotNil(t, got.Item("li-2"))
	assert.Nil(t, got.Item("li-3"))

	// Nothing new on a second pass; the version must not move.
	again, err := svc.SyncWithOrder(context.Background(), testTenant, ko.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)
}

func TestSyncWithOrderRejectsCancelledTicket(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))

	_, err := svc.Cancel(context.Background(), testTenant, ko.ID, "void")
	require.NoError(t, err)

	_, err = svc.SyncWithOrder(context.Background(), testTenant, ko.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestStatsSumsBreakdown(t *testing.T) {
	svc, _, orders := newTestService(t)
	ko := mustCreate(t, svc, orders, line("li-1", "Pizza"))
	_, err := svc.UpdateItemStatus(context.Background(), testTenant, ko.ID, "li-1", entity.ItemStatusPreparing)
	require.NoError(t, err)

	seedOrder(orders, 11, line("li-2", "Salad"))
	_, err = svc.CreateFromOrder(context.Background(), testTenant, CreateTicketInput{OrderID: 11})
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Len(t, stats.StatusBreakdown, 2)
}
