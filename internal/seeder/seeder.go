package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smartkubik/kitchenline/internal/database"
	"github.com/smartkubik/kitchenline/internal/entity"
)

// Module exposes the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example customer orders if they are missing. The seeded
// rows cover the three fulfillment channels so local kitchen screens have
// something to show right away.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	drinkOnly := false

	samples := []entity.Order{
		{
			TenantID:    "demo",
			Number:      "ORDER-1000",
			TableNumber: "12",
			Items: []entity.OrderLineItem{
				{
					ID:          "li-1",
					ProductName: "Margherita Pizza",
					Quantity:    1,
					Modifiers:   []entity.OrderItemModifier{{Name: "Extra cheese", Price: 1.5}},
					AddedAt:     &now,
				},
				{
					ID:                 "li-2",
					ProductName:        "Caesar Salad",
					Quantity:           1,
					RemovedIngredients: []entity.RemovedIngredient{{Name: "anchovies"}},
					AddedAt:            &now,
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			TenantID:       "demo",
			Number:         "ORDER-1001",
			CustomerName:   "Walk-in",
			ShippingMethod: "delivery",
			Items: []entity.OrderLineItem{
				{
					ID:                  "li-3",
					ProductName:         "Beef Burger",
					Quantity:            2,
					SpecialInstructions: "well done",
					AddedAt:             &now,
				},
				{
					ID:            "li-4",
					ProductName:   "Cola",
					Quantity:      2,
					SendToKitchen: &drinkOnly,
					AddedAt:       &now,
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			TenantID:     "demo",
			Number:       "ORDER-1002",
			CustomerName: "Pickup counter",
			Items: []entity.OrderLineItem{
				{ID: "li-5", ProductName: "Pad Thai", Quantity: 1, AddedAt: &now},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for _, sample := range samples {
		order := sample
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
