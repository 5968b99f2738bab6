package domain

import (
	"errors"
	"testing"
)

func TestCartRecalculate(t *testing.T) {
	c := &Cart{Items: []CartItem{
		{ProductID: "p1", Price: 100, Quantity: 2},
		{ProductID: "p2", Price: 250, Quantity: 1},
	}}
	c.Recalculate()
	if c.TotalItems != 3 || c.TotalAmount != 450 {
		t.Fatalf("unexpected totals items=%d amount=%d", c.TotalItems, c.TotalAmount)
	}

	if !c.Remove("p1") {
		t.Fatalf("expected p1 to be removed")
	}
	if c.Remove("missing") {
		t.Fatalf("remove of missing product should report false")
	}
	c.Recalculate()
	if c.TotalItems != 1 || c.TotalAmount != 250 {
		t.Fatalf("unexpected totals after remove items=%d amount=%d", c.TotalItems, c.TotalAmount)
	}

	c.Clear()
	if c.Items == nil || len(c.Items) != 0 || c.TotalItems != 0 || c.TotalAmount != 0 {
		t.Fatalf("expected empty cart, got %+v", c)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusDelivered, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusProcessing, false},
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusDelivered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanMoveTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}

	next, ok := StatusProcessing.Next()
	if !ok || next != StatusShipped {
		t.Fatalf("expected shipped after processing, got %q", next)
	}
	if _, ok := StatusDelivered.Next(); ok {
		t.Fatalf("delivered must be terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if st, ok := ParseOrderStatus(" Shipped "); !ok || st != StatusShipped {
		t.Fatalf("expected shipped, got %q ok=%v", st, ok)
	}
	if _, ok := ParseOrderStatus("deliverd"); ok {
		t.Fatalf("misspelled status must be rejected")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	if !errors.Is(NotFound("Cart not found"), ErrNotFound) {
		t.Fatalf("NotFoundError must wrap ErrNotFound")
	}
	if !errors.Is(Invalid("bad %s", "input"), ErrInvalidInput) {
		t.Fatalf("ValidationError must wrap ErrInvalidInput")
	}
	stock := &InsufficientStockError{Available: 2, Requested: 5}
	if stock.Error() != "Only 2 items available in stock" {
		t.Fatalf("unexpected message %q", stock.Error())
	}
}
