package ordertracker

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"optionmm/pkg/types"
)

func newTestTracker() *Tracker {
	return New(slog.Default())
}

func strPtr(s string) *string                 { return &s }
func sidePtr(s types.Side) *types.Side         { return &s }
func statusPtr(s types.OrderStatus) *types.OrderStatus { return &s }

func TestCreateAndGetOrder(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-123", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)

	order, ok := tr.GetOrder("order-123")
	if !ok {
		t.Fatal("order should exist")
	}

	if order.OrderID != "order-123" {
		t.Errorf("OrderID = %q, want order-123", order.OrderID)
	}
	if order.Symbol != "BTC-20251231-100000-C" {
		t.Errorf("Symbol = %q, want BTC-20251231-100000-C", order.Symbol)
	}
	if order.Side != types.Buy {
		t.Errorf("Side = %q, want buy", order.Side)
	}
	if order.PriceCents != 5000 || order.OriginalQuantity != 10 || order.RemainingQuantity != 10 {
		t.Errorf("unexpected order: %+v", order)
	}
	if order.FilledQuantity != 0 {
		t.Errorf("FilledQuantity = %d, want 0", order.FilledQuantity)
	}
	if order.Status != types.StatusActive {
		t.Errorf("Status = %q, want active", order.Status)
	}
	if len(order.Fills) != 0 {
		t.Errorf("Fills should start empty")
	}
}

func TestGetNonexistentOrder(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	if _, ok := tr.GetOrder("nonexistent"); ok {
		t.Error("expected no order")
	}
}

func TestBuildSymbol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		underlying, expiration, style string
		strike                        uint64
		want                          string
	}{
		{"BTC", "20251231", "call", 100000, "BTC-20251231-100000-C"},
		{"ETH", "20260115", "put", 5000, "ETH-20260115-5000-P"},
		{"BTC", "20251231", "CALL", 100000, "BTC-20251231-100000-C"},
	}

	for _, tt := range tests {
		if got := BuildSymbol(tt.underlying, tt.expiration, tt.strike, tt.style); got != tt.want {
			t.Errorf("BuildSymbol(%q,%q,%d,%q) = %q, want %q", tt.underlying, tt.expiration, tt.strike, tt.style, got, tt.want)
		}
	}
}

func TestListOrdersNoFilter(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.CreateOrder("order-2", "ETH", "20251231", 5000, "put", types.Sell, 300, 5)

	resp := tr.ListOrders(ListQuery{Limit: 100, Offset: 0})
	if resp.Total != 2 || len(resp.Orders) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestListOrdersFilterByUnderlying(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.CreateOrder("order-2", "ETH", "20251231", 5000, "put", types.Sell, 300, 5)
	tr.CreateOrder("order-3", "BTC", "20251231", 110000, "call", types.Buy, 4000, 10)

	resp := tr.ListOrders(ListQuery{Underlying: strPtr("BTC"), Limit: 100, Offset: 0})
	if resp.Total != 2 {
		t.Fatalf("Total = %d, want 2", resp.Total)
	}
	for _, o := range resp.Orders {
		if o.Symbol[:3] != "BTC" {
			t.Errorf("unexpected symbol in filtered results: %s", o.Symbol)
		}
	}
}

func TestListOrdersFilterBySide(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.CreateOrder("order-2", "BTC", "20251231", 100000, "call", types.Sell, 5100, 5)

	resp := tr.ListOrders(ListQuery{Side: sidePtr(types.Buy), Limit: 100, Offset: 0})
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want 1", resp.Total)
	}
	if resp.Orders[0].Side != types.Buy {
		t.Errorf("Side = %q, want buy", resp.Orders[0].Side)
	}
}

func TestListOrdersFilterByStatus(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.CreateOrder("order-2", "BTC", "20251231", 100000, "call", types.Buy, 5100, 10)
	tr.RecordFill("order-2", 5100, 10)

	resp := tr.ListOrders(ListQuery{Status: statusPtr(types.StatusActive), Limit: 100, Offset: 0})
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want 1", resp.Total)
	}
	if resp.Orders[0].OrderID != "order-1" {
		t.Errorf("OrderID = %q, want order-1", resp.Orders[0].OrderID)
	}
}

func TestListOrdersPagination(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	for i := 0; i < 10; i++ {
		tr.CreateOrder(fmt.Sprintf("order-%d", i), "BTC", "20251231", 100000, "call", types.Buy, uint64(5000+i), 10)
	}

	first := tr.ListOrders(ListQuery{Limit: 3, Offset: 0})
	if first.Total != 10 || len(first.Orders) != 3 || first.Limit != 3 || first.Offset != 0 {
		t.Fatalf("unexpected first page: %+v", first)
	}

	second := tr.ListOrders(ListQuery{Limit: 3, Offset: 3})
	if second.Total != 10 || len(second.Orders) != 3 || second.Offset != 3 {
		t.Fatalf("unexpected second page: %+v", second)
	}
}

func TestRecordFillPartial(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.RecordFill("order-1", 5000, 3)

	order, _ := tr.GetOrder("order-1")
	if order.FilledQuantity != 3 || order.RemainingQuantity != 7 {
		t.Errorf("unexpected quantities: %+v", order)
	}
	if order.Status != types.StatusPartial {
		t.Errorf("Status = %q, want partial", order.Status)
	}
	if len(order.Fills) != 1 || order.Fills[0].PriceCents != 5000 || order.Fills[0].Quantity != 3 {
		t.Errorf("unexpected fills: %+v", order.Fills)
	}
}

func TestRecordFillComplete(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.RecordFill("order-1", 5000, 10)

	order, _ := tr.GetOrder("order-1")
	if order.FilledQuantity != 10 || order.RemainingQuantity != 0 {
		t.Errorf("unexpected quantities: %+v", order)
	}
	if order.Status != types.StatusFilled {
		t.Errorf("Status = %q, want filled", order.Status)
	}
}

func TestRecordFillMultiple(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.RecordFill("order-1", 5000, 3)
	tr.RecordFill("order-1", 5010, 4)
	tr.RecordFill("order-1", 5005, 3)

	order, _ := tr.GetOrder("order-1")
	if order.FilledQuantity != 10 || order.RemainingQuantity != 0 {
		t.Errorf("unexpected quantities: %+v", order)
	}
	if order.Status != types.StatusFilled {
		t.Errorf("Status = %q, want filled", order.Status)
	}
	if len(order.Fills) != 3 {
		t.Errorf("len(Fills) = %d, want 3", len(order.Fills))
	}
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)

	if !tr.CancelOrder("order-1") {
		t.Fatal("CancelOrder should succeed on an active order")
	}
	order, _ := tr.GetOrder("order-1")
	if order.Status != types.StatusCanceled {
		t.Errorf("Status = %q, want canceled", order.Status)
	}
}

func TestCancelAlreadyFilledOrder(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.RecordFill("order-1", 5000, 10)

	if tr.CancelOrder("order-1") {
		t.Error("CancelOrder should fail on a filled order")
	}
	order, _ := tr.GetOrder("order-1")
	if order.Status != types.StatusFilled {
		t.Errorf("Status = %q, want filled", order.Status)
	}
}

func TestCancelNonexistentOrder(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	if tr.CancelOrder("nonexistent") {
		t.Error("CancelOrder should fail on a nonexistent order")
	}
}

func TestOrderCount(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	if tr.OrderCount() != 0 {
		t.Fatalf("OrderCount() = %d, want 0", tr.OrderCount())
	}

	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	if tr.OrderCount() != 1 {
		t.Fatalf("OrderCount() = %d, want 1", tr.OrderCount())
	}

	tr.CreateOrder("order-2", "ETH", "20251231", 5000, "put", types.Sell, 300, 5)
	if tr.OrderCount() != 2 {
		t.Fatalf("OrderCount() = %d, want 2", tr.OrderCount())
	}
}

func TestCleanupRemovesOldFilledOrders(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)
	tr.CreateOrder("order-2", "BTC", "20251231", 100000, "call", types.Buy, 5100, 10)
	tr.RecordFill("order-2", 5100, 10)

	time.Sleep(time.Millisecond)

	removed := tr.CleanupOlderThan(0)
	if removed != 1 {
		t.Fatalf("CleanupOlderThan(0) removed %d, want 1", removed)
	}

	if _, ok := tr.GetOrder("order-1"); !ok {
		t.Error("active order should survive cleanup")
	}
	if _, ok := tr.GetOrder("order-2"); ok {
		t.Error("filled order should be removed by cleanup")
	}
}

func TestCleanupDoesNotRemoveActiveOrders(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	tr.CreateOrder("order-1", "BTC", "20251231", 100000, "call", types.Buy, 5000, 10)

	time.Sleep(time.Millisecond)

	removed := tr.CleanupOlderThan(0)
	if removed != 0 {
		t.Fatalf("CleanupOlderThan(0) removed %d, want 0", removed)
	}
	if _, ok := tr.GetOrder("order-1"); !ok {
		t.Error("active order should survive cleanup")
	}
}
