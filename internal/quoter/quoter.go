// Package quoter turns a Pricer theoretical value plus three operator knobs
// (spread multiplier, size scalar, directional skew) into a concrete
// bid/ask/size quadruple, all in integer cents and units at the package
// boundary.
package quoter

import (
	"math"
	"time"

	"optionmm/internal/pricer"
	"optionmm/pkg/types"
)

// QuoteInput is everything needed to shape one instrument's quote.
type QuoteInput struct {
	SpotCents        uint64
	StrikeCents      uint64
	Expiration       types.ExpirationKey
	Style            types.Style
	SpreadMultiplier float64
	SizeScalar       float64
	DirectionalSkew  float64
	IV               *float64
	Now              time.Time
}

// QuoteParams is the shaped two-sided quote.
type QuoteParams struct {
	BidPrice uint64
	AskPrice uint64
	BidSize  uint64
	AskSize  uint64
}

// Quoter generates quotes from a Pricer and two base knobs.
type Quoter struct {
	pricer        *pricer.Pricer
	baseSpreadBps uint64
	baseSize      uint64
}

// New builds a Quoter. baseSpreadBps is the full (not half) spread in basis
// points applied at spread_multiplier = 1.0; baseSize is the quote size at
// size_scalar = 1.0.
func New(p *pricer.Pricer, baseSpreadBps, baseSize uint64) *Quoter {
	return &Quoter{pricer: p, baseSpreadBps: baseSpreadBps, baseSize: baseSize}
}

// Default returns the maker-grade default: 1% spread, size 10.
func Default() *Quoter {
	return New(pricer.Default(), 100, 10)
}

// roundToUint64 rounds a non-negative float to the nearest integer, per
// spec's explicit round() steps.
func roundToUint64(v float64) uint64 {
	return uint64(math.Round(v))
}

// GenerateQuote shapes a two-sided quote for one instrument.
func (q *Quoter) GenerateQuote(in QuoteInput) QuoteParams {
	spot := float64(in.SpotCents) / 100.0
	strike := float64(in.StrikeCents) / 100.0

	theo := q.pricer.Value(spot, strike, in.Expiration, in.Style, in.IV, in.Now)
	theoCents := roundToUint64(theo * 100.0)

	halfSpreadBps := uint64(float64(q.baseSpreadBps) * in.SpreadMultiplier / 2.0)
	halfSpreadCents := roundToUint64(float64(theoCents) * float64(halfSpreadBps) / 10000.0)
	if halfSpreadCents < 1 {
		halfSpreadCents = 1
	}

	skewAdj := int64(math.Round(float64(halfSpreadCents) * in.DirectionalSkew * 0.5))

	var bidAdj, askAdj int64
	if in.Style == types.Call {
		bidAdj, askAdj = -skewAdj, skewAdj
	} else {
		bidAdj, askAdj = skewAdj, -skewAdj
	}

	bidPrice := int64(theoCents) - int64(halfSpreadCents) + bidAdj
	if bidPrice < 1 {
		bidPrice = 1
	}
	askPrice := int64(theoCents) + int64(halfSpreadCents) + askAdj
	if askPrice < bidPrice+1 {
		askPrice = bidPrice + 1
	}

	baseSize := roundToUint64(float64(q.baseSize) * in.SizeScalar)
	if baseSize < 1 {
		baseSize = 1
	}

	skewSizeFactor := 1.0 - math.Abs(in.DirectionalSkew)*0.3

	var bidSize, askSize uint64
	switch {
	case in.DirectionalSkew > 0.0:
		bidSize = baseSize
		askSize = roundToUint64(float64(baseSize) * skewSizeFactor)
	case in.DirectionalSkew < 0.0:
		bidSize = roundToUint64(float64(baseSize) * skewSizeFactor)
		askSize = baseSize
	default:
		bidSize, askSize = baseSize, baseSize
	}
	if bidSize < 1 {
		bidSize = 1
	}
	if askSize < 1 {
		askSize = 1
	}

	return QuoteParams{
		BidPrice: uint64(bidPrice),
		AskPrice: uint64(askPrice),
		BidSize:  bidSize,
		AskSize:  askSize,
	}
}

// Edge computes the signed edge of a fill against the theoretical value at
// fill time: positive is favorable to the maker. Buying below theo or
// selling above theo is favorable.
func Edge(fillPriceCents, theoCents uint64, isBuy bool) int64 {
	if isBuy {
		return int64(theoCents) - int64(fillPriceCents)
	}
	return int64(fillPriceCents) - int64(theoCents)
}
