package kitchen

import (
	"time"

	"github.com/smartkubik/kitchenline/internal/entity"
)

// snapshotItems converts the kitchen-routed lines of an external order into
// pending ticket items. The order itself is never touched.
func snapshotItems(order *entity.Order) []entity.KitchenOrderItem {
	items := make([]entity.KitchenOrderItem, 0, len(order.Items))
	for _, line := range order.Items {
		if !line.RequiresKitchen() {
			continue
		}
		items = append(items, snapshotItem(line))
	}
	return items
}

// snapshotItem flattens one order line into a display-ready ticket item.
// Structured modifiers collapse to their names; unnamed ones are dropped.
// Removed ingredients are rendered into the modifier list so the cook sees
// them without a second lookup.
func snapshotItem(line entity.OrderLineItem) entity.KitchenOrderItem {
	var modifiers []string
	for _, m := range line.Modifiers {
		if m.Name == "" {
			continue
		}
		modifiers = append(modifiers, m.Name)
	}
	for _, ing := range line.RemovedIngredients {
		if ing.Name == "" {
			continue
		}
		modifiers = append(modifiers, "No "+ing.Name)
	}

	return entity.KitchenOrderItem{
		ItemID:              line.ID,
		ProductName:         line.ProductName,
		Quantity:            line.Quantity,
		Modifiers:           modifiers,
		SpecialInstructions: line.SpecialInstructions,
		Status:              entity.ItemStatusPending,
	}
}

// recentLines returns order lines added after the cutoff. Line-item ids are
// regenerated on every order update upstream, so sync detection is
// timestamp-based rather than id-based.
func recentLines(order *entity.Order, cutoff time.Time) []entity.OrderLineItem {
	var lines []entity.OrderLineItem
	for _, line := range order.Items {
		if line.AddedAt == nil || !line.AddedAt.After(cutoff) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
