// Package pricer implements Black-Scholes European option pricing for the
// market-making engine: theoretical value plus the four standard greeks the
// quoter and any external risk reporting need.
//
// The pricer is stateless beyond (risk-free rate, default IV) and safe for
// concurrent use — every method takes spot, strike, an expiration key with
// the current time, an optional iv and, where it matters, the style, and
// returns a single float64, with no shared mutable state to guard.
package pricer

import (
	"math"
	"time"

	"optionmm/pkg/types"
)

// Pricer computes theoretical value and greeks under constant risk-free
// rate r and a default implied volatility used whenever a call site doesn't
// supply one.
type Pricer struct {
	riskFreeRate float64
	defaultIV    float64
}

// New builds a Pricer. riskFreeRate and defaultIV are annualized (e.g. 0.05
// for 5%, 0.30 for 30% vol).
func New(riskFreeRate, defaultIV float64) *Pricer {
	return &Pricer{riskFreeRate: riskFreeRate, defaultIV: defaultIV}
}

// Default returns the maker-grade default: r = 5%, default IV = 30%.
func Default() *Pricer {
	return New(0.05, 0.30)
}

func (p *Pricer) sigma(iv *float64) float64 {
	if iv != nil {
		return *iv
	}
	return p.defaultIV
}

// tau converts an ExpirationKey to years-to-expiry as of now.
func tau(exp types.ExpirationKey, now time.Time) float64 {
	return exp.TimeToExpiry(now)
}

// d1d2 returns Black-Scholes d1, d2, and the discount factor. Callers must
// have already checked t > 0.
func d1d2(spot, strike, sigma, r, t float64) (d1, d2, disc float64) {
	sqrtT := math.Sqrt(t)
	d1 = (math.Log(spot/strike) + (r+sigma*sigma/2.0)*t) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	disc = math.Exp(-r * t)
	return d1, d2, disc
}

// Value returns the theoretical value of the option. At or past expiry it
// returns intrinsic value.
func (p *Pricer) Value(spot, strike float64, exp types.ExpirationKey, style types.Style, iv *float64, now time.Time) float64 {
	sigma := p.sigma(iv)
	t := tau(exp, now)

	if t <= 0.0 {
		if style == types.Call {
			return math.Max(spot-strike, 0.0)
		}
		return math.Max(strike-spot, 0.0)
	}

	d1, d2, disc := d1d2(spot, strike, sigma, p.riskFreeRate, t)

	if style == types.Call {
		return spot*normCDF(d1) - strike*disc*normCDF(d2)
	}
	return strike*disc*normCDF(-d2) - spot*normCDF(-d1)
}

// Delta returns the option's delta.
func (p *Pricer) Delta(spot, strike float64, exp types.ExpirationKey, style types.Style, iv *float64, now time.Time) float64 {
	sigma := p.sigma(iv)
	t := tau(exp, now)

	if t <= 0.0 {
		if style == types.Call {
			if spot > strike {
				return 1.0
			}
			return 0.0
		}
		if spot < strike {
			return -1.0
		}
		return 0.0
	}

	d1, _, _ := d1d2(spot, strike, sigma, p.riskFreeRate, t)
	if style == types.Call {
		return normCDF(d1)
	}
	return normCDF(d1) - 1.0
}

// Gamma returns the option's gamma (same for calls and puts).
func (p *Pricer) Gamma(spot, strike float64, exp types.ExpirationKey, iv *float64, now time.Time) float64 {
	sigma := p.sigma(iv)
	t := tau(exp, now)
	if t <= 0.0 {
		return 0.0
	}
	d1, _, _ := d1d2(spot, strike, sigma, p.riskFreeRate, t)
	return normPDF(d1) / (spot * sigma * math.Sqrt(t))
}

// Vega returns the option's vega per one percentage point of volatility
// (same for calls and puts).
func (p *Pricer) Vega(spot, strike float64, exp types.ExpirationKey, iv *float64, now time.Time) float64 {
	sigma := p.sigma(iv)
	t := tau(exp, now)
	if t <= 0.0 {
		return 0.0
	}
	d1, _, _ := d1d2(spot, strike, sigma, p.riskFreeRate, t)
	return spot * normPDF(d1) * math.Sqrt(t) / 100.0
}

// Theta returns the option's daily time decay.
func (p *Pricer) Theta(spot, strike float64, exp types.ExpirationKey, style types.Style, iv *float64, now time.Time) float64 {
	sigma := p.sigma(iv)
	t := tau(exp, now)
	if t <= 0.0 {
		return 0.0
	}
	d1, d2, disc := d1d2(spot, strike, sigma, p.riskFreeRate, t)
	term1 := -spot * normPDF(d1) * sigma / (2.0 * math.Sqrt(t))

	var theta float64
	if style == types.Call {
		theta = term1 - p.riskFreeRate*strike*disc*normCDF(d2)
	} else {
		theta = term1 + p.riskFreeRate*strike*disc*normCDF(-d2)
	}
	return theta / 365.0
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}

// erf is the Abramowitz-Stegun 5-term approximation, absolute error <= 1.5e-7.
// Do not substitute a fewer-term approximation — maker quoting leans on this
// accuracy near the money.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return sign * y
}
