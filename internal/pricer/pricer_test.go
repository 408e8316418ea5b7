package pricer

import (
	"math"
	"testing"
	"time"

	"optionmm/pkg/types"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func iv(v float64) *float64 { return &v }

func TestCallPrice(t *testing.T) {
	t.Parallel()

	p := Default()
	exp := types.NewExpirationDays(30)
	price := p.Value(100.0, 100.0, exp, types.Call, iv(0.20), fixedNow)

	if price <= 0.0 {
		t.Errorf("call price = %v, want > 0", price)
	}
	if price >= 10.0 {
		t.Errorf("ATM 30-day call price = %v, want < 10", price)
	}
}

func TestPutPrice(t *testing.T) {
	t.Parallel()

	p := Default()
	exp := types.NewExpirationDays(30)
	price := p.Value(100.0, 100.0, exp, types.Put, iv(0.20), fixedNow)

	if price <= 0.0 {
		t.Errorf("put price = %v, want > 0", price)
	}
}

func TestDelta(t *testing.T) {
	t.Parallel()

	p := Default()
	exp := types.NewExpirationDays(30)

	callDelta := p.Delta(100.0, 100.0, exp, types.Call, iv(0.20), fixedNow)
	if callDelta <= 0.4 || callDelta >= 0.6 {
		t.Errorf("ATM call delta = %v, want in (0.4, 0.6)", callDelta)
	}

	putDelta := p.Delta(100.0, 100.0, exp, types.Put, iv(0.20), fixedNow)
	if putDelta <= -0.6 || putDelta >= -0.4 {
		t.Errorf("ATM put delta = %v, want in (-0.6, -0.4)", putDelta)
	}
}

func TestIntrinsicBoundaries(t *testing.T) {
	t.Parallel()

	p := Default()
	expired := types.NewExpirationDays(0)

	if got := p.Value(110, 100, expired, types.Call, iv(0.2), fixedNow); got != 10 {
		t.Errorf("expired ITM call value = %v, want 10", got)
	}
	if got := p.Value(90, 100, expired, types.Call, iv(0.2), fixedNow); got != 0 {
		t.Errorf("expired OTM call value = %v, want 0", got)
	}
	if got := p.Delta(110, 100, expired, types.Call, iv(0.2), fixedNow); got != 1.0 {
		t.Errorf("expired ITM call delta = %v, want 1", got)
	}
	if got := p.Delta(90, 100, expired, types.Call, iv(0.2), fixedNow); got != 0.0 {
		t.Errorf("expired OTM call delta = %v, want 0", got)
	}
	if got := p.Gamma(100, 100, expired, iv(0.2), fixedNow); got != 0.0 {
		t.Errorf("expired gamma = %v, want 0", got)
	}
	if got := p.Vega(100, 100, expired, iv(0.2), fixedNow); got != 0.0 {
		t.Errorf("expired vega = %v, want 0", got)
	}
	if got := p.Theta(100, 100, expired, types.Call, iv(0.2), fixedNow); got != 0.0 {
		t.Errorf("expired theta = %v, want 0", got)
	}
}

func TestGreeksNonNegativeBounds(t *testing.T) {
	t.Parallel()

	p := Default()
	exp := types.NewExpirationDays(45)

	if g := p.Gamma(100, 100, exp, iv(0.25), fixedNow); g < 0 {
		t.Errorf("gamma = %v, want >= 0", g)
	}
	if v := p.Vega(100, 100, exp, iv(0.25), fixedNow); v < 0 {
		t.Errorf("vega = %v, want >= 0", v)
	}
	if d := p.Delta(100, 100, exp, types.Call, iv(0.25), fixedNow); d < 0 || d > 1 {
		t.Errorf("call delta = %v, want in [0,1]", d)
	}
	if d := p.Delta(100, 100, exp, types.Put, iv(0.25), fixedNow); d < -1 || d > 0 {
		t.Errorf("put delta = %v, want in [-1,0]", d)
	}
}

func TestPutCallParity(t *testing.T) {
	t.Parallel()

	p := Default()
	exp := types.NewExpirationDays(60)
	spot, strike := 105.0, 100.0

	call := p.Value(spot, strike, exp, types.Call, iv(0.25), fixedNow)
	put := p.Value(spot, strike, exp, types.Put, iv(0.25), fixedNow)

	r := 0.05
	tYears := 60.0 / 365.0
	want := spot - strike*math.Exp(-r*tYears)

	if got := call - put; math.Abs(got-want) > 1e-6 {
		t.Errorf("put-call parity: C-P = %v, want %v", got, want)
	}
}

func TestValueNonNegative(t *testing.T) {
	t.Parallel()

	p := Default()
	spots := []float64{50, 90, 100, 110, 150}
	strikes := []float64{50, 90, 100, 110, 150}
	days := []int{0, 1, 30, 365}

	for _, s := range spots {
		for _, k := range strikes {
			for _, d := range days {
				exp := types.NewExpirationDays(d)
				for _, style := range []types.Style{types.Call, types.Put} {
					if got := p.Value(s, k, exp, style, iv(0.3), fixedNow); got < -1e-9 {
						t.Errorf("Value(%v,%v,%dd,%v) = %v, want >= 0", s, k, d, style, got)
					}
				}
			}
		}
	}
}

func TestErfMonotonicAndBounded(t *testing.T) {
	t.Parallel()

	prev := -1.0
	for x := -4.0; x <= 4.0; x += 0.25 {
		got := erf(x)
		if got < -1.0 || got > 1.0 {
			t.Fatalf("erf(%v) = %v out of [-1,1]", x, got)
		}
		if got < prev-1e-12 {
			t.Fatalf("erf not monotonic at x=%v: %v < %v", x, got, prev)
		}
		prev = got
	}
}
