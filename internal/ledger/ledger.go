// Package ledger provides non-lossy monetary accumulation for the
// OrderTracker. Cents stay uint64 at every component boundary; decimal.Decimal
// is used only as the internal accumulator when summing many fills, so
// repeated additions of cent amounts never accumulate floating-point error.
package ledger

import "github.com/shopspring/decimal"

// Fill is one execution against a tracked order.
type Fill struct {
	PriceCents uint64
	Quantity   uint64
}

// TotalNotionalCents sums price*quantity across fills without floating
// point, returning the total back in integer cents.
func TotalNotionalCents(fills []Fill) uint64 {
	total := decimal.Zero
	for _, f := range fills {
		total = total.Add(decimal.NewFromInt(int64(f.PriceCents)).Mul(decimal.NewFromInt(int64(f.Quantity))))
	}
	return uint64(total.IntPart())
}

// WeightedAveragePriceCents returns the quantity-weighted average fill
// price in cents, rounded half-up. Returns 0 if fills is empty or total
// quantity is zero.
func WeightedAveragePriceCents(fills []Fill) uint64 {
	var totalQty uint64
	for _, f := range fills {
		totalQty += f.Quantity
	}
	if totalQty == 0 {
		return 0
	}
	total := decimal.NewFromInt(int64(TotalNotionalCents(fills)))
	avg := total.DivRound(decimal.NewFromInt(int64(totalQty)), 0)
	return uint64(avg.IntPart())
}
