package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("shipped")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", got)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusDelivered, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatusTerminalAndAddress(t *testing.T) {
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled should be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatal("pending should not be terminal")
	}
	if !OrderStatusProcessing.AllowsAddressChange() {
		t.Fatal("processing should allow address change")
	}
	if OrderStatusShipped.AllowsAddressChange() {
		t.Fatal("shipped should not allow address change")
	}
	if got := OrderStatusPending.NextOrderStatuses(); len(got) != 2 {
		t.Fatalf("expected 2 next statuses, got %v", got)
	}
}
