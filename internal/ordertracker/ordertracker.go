// Package ordertracker is the external order ledger (§4.6): an in-memory
// lifecycle view of orders placed by clients through the REST surface, as
// opposed to the engine's own maker orders. It is not on the requote hot
// path but carries its own correctness requirements — fill accumulation,
// status transitions, and TTL-based garbage collection of terminal orders.
//
// Grounded on the original Rust OrderTracker (DashMap-backed, lock-free
// concurrent map); this version uses a single sync.RWMutex-guarded map,
// matching how the rest of this codebase protects shared state, with a
// background GC goroutine stopped via context cancellation the way the
// teacher's long-running loops are (internal/risk.Manager.Run).
package ordertracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"optionmm/internal/ledger"
	"optionmm/pkg/types"
)

// Fill is one execution recorded against a tracked order.
type Fill struct {
	PriceCents uint64
	Quantity   uint64
	Timestamp  time.Time
}

// Order is the full lifecycle record for one externally-placed order.
type Order struct {
	OrderID           string
	Symbol            string
	Side              types.Side
	PriceCents        uint64
	OriginalQuantity  uint64
	RemainingQuantity uint64
	FilledQuantity    uint64
	Status            types.OrderStatus
	TimeInForce       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Fills             []Fill
}

// TotalFilledNotionalCents sums price*quantity across every recorded fill
// using a decimal accumulator so repeated cent additions never drift.
func (o Order) TotalFilledNotionalCents() uint64 {
	fills := make([]ledger.Fill, len(o.Fills))
	for i, f := range o.Fills {
		fills[i] = ledger.Fill{PriceCents: f.PriceCents, Quantity: f.Quantity}
	}
	return ledger.TotalNotionalCents(fills)
}

// ListQuery filters and paginates list_orders.
type ListQuery struct {
	Underlying *string
	Status     *types.OrderStatus
	Side       *types.Side
	Limit      int
	Offset     int
}

// ListResponse is the paginated result of a list_orders call.
type ListResponse struct {
	Orders []Order
	Total  int
	Limit  int
	Offset int
}

// CleanupConfig controls the background GC loop.
type CleanupConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// DefaultCleanupConfig matches the original's defaults: a 5-minute sweep
// removing terminal orders older than 1 hour.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{Interval: 300 * time.Second, MaxAge: 3600 * time.Second}
}

// Tracker is the in-memory order ledger.
type Tracker struct {
	mu     sync.RWMutex
	orders map[string]Order
	logger *slog.Logger
}

// New builds an empty tracker. Call Run separately to start background GC.
func New(logger *slog.Logger) *Tracker {
	return &Tracker{
		orders: make(map[string]Order),
		logger: logger.With("component", "ordertracker"),
	}
}

// Run starts the background GC loop with the given config; it returns when
// ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, cfg CleanupConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := t.CleanupOlderThan(cfg.MaxAge)
			if removed > 0 {
				t.logger.Info("cleaned up terminal orders", "count", removed)
			}
		}
	}
}

// BuildSymbol constructs the OrderTracker symbol from its components:
// "{underlying}-{expiration}-{strike}-{C|P}". The style input is
// case-insensitive — "CALL", "call", and "Call" all yield "C"; anything
// else yields "P".
func BuildSymbol(underlying, expiration string, strike uint64, optionStyle string) string {
	style := types.ParseStyle(optionStyle)
	return strings.Join([]string{underlying, expiration, uitoa(strike), style.Tag()}, "-")
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// CreateOrder inserts a new Active order.
func (t *Tracker) CreateOrder(orderID, underlying, expiration string, strike uint64, optionStyle string, side types.Side, priceCents, quantity uint64) {
	symbol := BuildSymbol(underlying, expiration, strike, optionStyle)
	now := time.Now().UTC()

	order := Order{
		OrderID:           orderID,
		Symbol:            symbol,
		Side:              side,
		PriceCents:        priceCents,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		FilledQuantity:    0,
		Status:            types.StatusActive,
		TimeInForce:       "GTC",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.orders[orderID] = order
}

// GetOrder returns a copy of the order, or false if it doesn't exist.
func (t *Tracker) GetOrder(orderID string) (Order, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	o, ok := t.orders[orderID]
	return o, ok
}

// ListOrders filters by underlying prefix, status, and side, then
// paginates. Total reflects the filtered count before pagination is
// applied.
func (t *Tracker) ListOrders(query ListQuery) ListResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	filtered := make([]Order, 0, len(t.orders))
	for _, o := range t.orders {
		if query.Underlying != nil && !strings.HasPrefix(o.Symbol, *query.Underlying) {
			continue
		}
		if query.Status != nil && o.Status != *query.Status {
			continue
		}
		if query.Side != nil && o.Side != *query.Side {
			continue
		}
		filtered = append(filtered, o)
	}

	total := len(filtered)

	offset := query.Offset
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + query.Limit
	if end > len(filtered) || query.Limit < 0 {
		end = len(filtered)
	}

	return ListResponse{
		Orders: filtered[offset:end],
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
}

// RecordFill appends a fill and updates filled/remaining quantity and
// status. A no-op if the order doesn't exist.
func (t *Tracker) RecordFill(orderID string, priceCents, quantity uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	order, ok := t.orders[orderID]
	if !ok {
		return
	}

	now := time.Now().UTC()
	order.Fills = append(order.Fills, Fill{PriceCents: priceCents, Quantity: quantity, Timestamp: now})
	order.FilledQuantity += quantity
	if quantity >= order.RemainingQuantity {
		order.RemainingQuantity = 0
	} else {
		order.RemainingQuantity -= quantity
	}
	order.UpdatedAt = now

	if order.RemainingQuantity == 0 {
		order.Status = types.StatusFilled
	} else if order.FilledQuantity > 0 {
		order.Status = types.StatusPartial
	}

	t.orders[orderID] = order
}

// CancelOrder transitions Active|Partial -> Canceled and returns true. Any
// other state (terminal, or nonexistent) returns false and makes no change.
func (t *Tracker) CancelOrder(orderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	order, ok := t.orders[orderID]
	if !ok {
		return false
	}
	if order.Status != types.StatusActive && order.Status != types.StatusPartial {
		return false
	}

	order.Status = types.StatusCanceled
	order.UpdatedAt = time.Now().UTC()
	t.orders[orderID] = order
	return true
}

// OrderCount returns the number of tracked orders, for monitoring.
func (t *Tracker) OrderCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.orders)
}

// CleanupOlderThan removes Filled|Canceled orders whose UpdatedAt is older
// than maxAge, returning the number removed. Active|Partial orders are
// never removed. Exposed directly (not just via Run) so it can be
// exercised deterministically in tests, matching the original's manual
// cleanup_old_orders test hook.
func (t *Tracker) CleanupOlderThan(maxAge time.Duration) int {
	threshold := time.Now().UTC().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, o := range t.orders {
		if o.Status != types.StatusFilled && o.Status != types.StatusCanceled {
			continue
		}
		if o.UpdatedAt.Before(threshold) {
			delete(t.orders, id)
			removed++
		}
	}
	return removed
}
