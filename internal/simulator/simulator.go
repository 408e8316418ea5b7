// Package simulator is the synthetic underlying price feed (§4.5): a
// pre-generated random-walk path replayed on a fixed tick, driving the
// engine the way a live market-data feed would.
//
// Grounded on the original source's PriceSimulator (simulation.rs):
// 43,200-step (30 days of one-minute steps) pre-generated paths, regenerated
// from the current price on exhaustion starting at index 1 to preserve
// continuity, and a price floor of $0.01 before the cents conversion.
package simulator

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Model selects the stochastic process used to generate a price path.
type Model string

const (
	ModelGeometricBrownian Model = "gbm"
	ModelMeanReverting     Model = "mean_reverting"
	ModelJumpDiffusion     Model = "jump_diffusion"
)

// stepsPerPath mirrors the original's 43,200 one-minute steps (30 days).
const stepsPerPath = 43_200

// dtYears is one minute expressed in years, the original's per-step dt.
const dtYears = 1.0 / (365.0 * 24.0 * 60.0)

// AssetConfig parameterizes one simulated underlying.
type AssetConfig struct {
	Symbol             string
	Model              Model
	InitialPriceCents  uint64
	Drift              float64
	Volatility         float64
	MeanReversionSpeed float64
	MeanReversionLevel float64
	JumpIntensity      float64
	JumpMeanPct        float64
	JumpStdPct         float64
}

// PriceSink receives simulated price ticks. *engine.Engine satisfies this.
type PriceSink interface {
	UpdatePrice(symbol string, cents uint64)
}

type assetState struct {
	cfg   AssetConfig
	rng   *rand.Rand
	path  []float64
	index int
}

// Simulator replays a pre-generated random walk on a fixed tick.
type Simulator struct {
	tickInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	assets map[string]*assetState
	order  []string
}

// New builds a Simulator over the given assets. rngSeed makes path
// generation deterministic for tests; pass time.Now().UnixNano() in
// production.
func New(tickInterval time.Duration, logger *slog.Logger, rngSeed int64, assets ...AssetConfig) *Simulator {
	s := &Simulator{
		tickInterval: tickInterval,
		logger:       logger.With("component", "simulator"),
		assets:       make(map[string]*assetState, len(assets)),
	}
	for i, cfg := range assets {
		rng := rand.New(rand.NewSource(rngSeed + int64(i)))
		st := &assetState{cfg: cfg, rng: rng}
		st.path = generatePath(float64(cfg.InitialPriceCents)/100.0, cfg, stepsPerPath, rng)
		s.assets[cfg.Symbol] = st
		s.order = append(s.order, cfg.Symbol)
	}
	return s
}

// CurrentPriceCents returns the most recently produced price for symbol.
func (s *Simulator) CurrentPriceCents(symbol string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.assets[symbol]
	if !ok {
		return 0, false
	}
	dollars := st.path[st.index]
	return priceToCents(dollars), true
}

// Run ticks every tickInterval, advancing each asset's walk and pushing the
// new price into sink, until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, sink PriceSink) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range s.order {
				cents := s.advance(symbol)
				sink.UpdatePrice(symbol, cents)
			}
		}
	}
}

// advance steps one asset's walk forward by one tick, regenerating the
// path from the current price (continuity-preserving) on exhaustion.
func (s *Simulator) advance(symbol string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.assets[symbol]
	st.index++

	if st.index >= len(st.path) {
		current := st.path[len(st.path)-1]
		st.path = generatePath(current, st.cfg, stepsPerPath, st.rng)
		st.index = 1
	}

	dollars := math.Max(st.path[st.index], 0.01)
	return priceToCents(dollars)
}

func priceToCents(dollars float64) uint64 {
	return uint64(math.Round(dollars * 100.0))
}

// generatePath produces n prices (including the initial price at index 0)
// under the configured model.
func generatePath(initial float64, cfg AssetConfig, n int, rng *rand.Rand) []float64 {
	path := make([]float64, n)
	path[0] = initial

	switch cfg.Model {
	case ModelMeanReverting:
		speed := cfg.MeanReversionSpeed
		if speed == 0 {
			speed = 0.5
		}
		level := cfg.MeanReversionLevel
		if level == 0 {
			level = initial
		}
		for i := 1; i < n; i++ {
			prev := path[i-1]
			drift := speed * (level - prev) * dtYears
			shock := cfg.Volatility * prev * math.Sqrt(dtYears) * rng.NormFloat64()
			path[i] = math.Max(prev+drift+shock, 0.01)
		}
	case ModelJumpDiffusion:
		intensity := cfg.JumpIntensity
		if intensity == 0 {
			intensity = 0.1
		}
		jumpStd := cfg.JumpStdPct
		if jumpStd == 0 {
			jumpStd = 0.05
		}
		for i := 1; i < n; i++ {
			prev := path[i-1]
			drift := (cfg.Drift - 0.5*cfg.Volatility*cfg.Volatility) * dtYears
			diffusion := cfg.Volatility * math.Sqrt(dtYears) * rng.NormFloat64()
			jump := 0.0
			if rng.Float64() < intensity*dtYears {
				jump = cfg.JumpMeanPct + jumpStd*rng.NormFloat64()
			}
			path[i] = math.Max(prev*math.Exp(drift+diffusion+jump), 0.01)
		}
	default: // ModelGeometricBrownian
		for i := 1; i < n; i++ {
			prev := path[i-1]
			drift := (cfg.Drift - 0.5*cfg.Volatility*cfg.Volatility) * dtYears
			diffusion := cfg.Volatility * math.Sqrt(dtYears) * rng.NormFloat64()
			path[i] = math.Max(prev*math.Exp(drift+diffusion), 0.01)
		}
	}
	return path
}
