package entity

import (
	"testing"
	"time"
)

func TestEstimatePrepTime(t *testing.T) {
	tests := []struct {
		items int
		want  int
	}{
		{1, 5},
		{2, 7},
		{5, 13},
		{0, 5},
	}
	for _, tt := range tests {
		if got := EstimatePrepTime(tt.items); got != tt.want {
			t.Errorf("EstimatePrepTime(%d) = %d, want %d", tt.items, got, tt.want)
		}
	}
}

func TestReclassifyStampsStartedOnce(t *testing.T) {
	received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ko := &KitchenOrder{
		Status:     OrderStatusNew,
		ReceivedAt: received,
		Items: []KitchenOrderItem{
			{ItemID: "a", Status: ItemStatusPreparing},
			{ItemID: "b", Status: ItemStatusPending},
		},
	}

	first := received.Add(90 * time.Second)
	ko.Reclassify(first)

	if ko.Status != OrderStatusPreparing {
		t.Fatalf("status = %q, want preparing", ko.Status)
	}
	if ko.StartedAt == nil || !ko.StartedAt.Equal(first) {
		t.Fatalf("startedAt = %v, want %v", ko.StartedAt, first)
	}
	if ko.WaitTime == nil || *ko.WaitTime != 90 {
		t.Fatalf("waitTime = %v, want 90", ko.WaitTime)
	}

	// A later reclassification must not move the original stamp.
	ko.Reclassify(first.Add(time.Minute))
	if !ko.StartedAt.Equal(first) {
		t.Errorf("startedAt reset to %v", ko.StartedAt)
	}
	if *ko.WaitTime != 90 {
		t.Errorf("waitTime recomputed to %d", *ko.WaitTime)
	}
}

func TestReclassifyLeavesTerminalStates(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		ko := &KitchenOrder{
			Status: status,
			Items:  []KitchenOrderItem{{ItemID: "a", Status: ItemStatusPending}},
		}
		ko.Reclassify(time.Now())
		if ko.Status != status {
			t.Errorf("Reclassify moved %q to %q", status, ko.Status)
		}
	}
}

func TestSetPriorityLockStep(t *testing.T) {
	ko := &KitchenOrder{}
	ko.SetPriority(PriorityASAP)
	if ko.Priority != PriorityASAP || ko.PriorityRank != PriorityASAP.Rank() {
		t.Errorf("priority %q rank %d out of lock-step", ko.Priority, ko.PriorityRank)
	}
	ko.SetPriority(PriorityNormal)
	if ko.PriorityRank != PriorityNormal.Rank() {
		t.Errorf("rank %d not reset with priority", ko.PriorityRank)
	}
}

func TestItemLookup(t *testing.T) {
	ko := &KitchenOrder{Items: []KitchenOrderItem{{ItemID: "a"}, {ItemID: "b"}}}
	if item := ko.Item("b"); item == nil || item.ItemID != "b" {
		t.Fatalf("Item(b) = %v", item)
	}
	if item := ko.Item("missing"); item != nil {
		t.Fatalf("Item(missing) = %v, want nil", item)
	}

	// Mutations through the returned pointer must land on the ticket.
	ko.Item("a").Status = ItemStatusPreparing
	if ko.Items[0].Status != ItemStatusPreparing {
		t.Errorf("item mutation did not reach the ticket")
	}
}
