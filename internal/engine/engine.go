// Package engine is the market-maker control loop (§4.3): on every
// underlying price change or parameter change it cancels stale quotes and
// re-posts fresh bid/ask orders for every enabled (expiration, strike,
// style) instrument of the affected symbol, while tracking the set of
// currently-live maker orders.
//
// Grounded on the teacher's internal/engine/engine.go for its overall
// orchestrator shape (RWMutex-guarded state, small critical sections
// released before any catalog or event-bus call) and on the original Rust
// market_maker/engine.rs for the exact per-operation semantics.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"optionmm/internal/catalog"
	"optionmm/internal/eventbus"
	"optionmm/internal/pricer"
	"optionmm/internal/quoter"
	"optionmm/pkg/types"
)

// Config is a point-in-time snapshot of the engine's tunable state.
type Config struct {
	Enabled          bool
	SpreadMultiplier float64
	SizeScalar       float64
	DirectionalSkew  float64
}

const (
	minSpreadMultiplier = 0.1
	maxSpreadMultiplier = 10.0
	minSizeScalar       = 0.0
	maxSizeScalar       = 1.0
	minDirectionalSkew  = -1.0
	maxDirectionalSkew  = 1.0
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Engine is the market-maker control loop. Its config and per-symbol price
// map are each guarded by their own RWMutex, and its active-order registry
// by its own Mutex, per §5: readers never block each other across fields, and every
// write-then-act sequence releases its lock before touching the catalog or
// the event bus.
type Engine struct {
	catalog catalog.Catalog
	bus     *eventbus.Bus
	pricer  *pricer.Pricer
	quoter  *quoter.Quoter
	logger  *slog.Logger
	now     func() time.Time

	cfgMu            sync.RWMutex
	enabled          bool
	spreadMultiplier float64
	sizeScalar       float64
	directionalSkew  float64
	symbolEnabled    map[string]bool

	pricesMu sync.RWMutex
	prices   map[string]uint64

	ordersMu     sync.Mutex
	activeOrders map[types.OrderID]types.InstrumentKey
}

// Option configures New.
type Option func(*Engine)

// WithNowFunc overrides the engine's clock, for deterministic tests.
func WithNowFunc(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an Engine with default config: enabled, spread/size/skew at
// neutral (1.0, 1.0, 0.0).
func New(cat catalog.Catalog, bus *eventbus.Bus, p *pricer.Pricer, q *quoter.Quoter, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog:          cat,
		bus:              bus,
		pricer:           p,
		quoter:           q,
		logger:           logger.With("component", "engine"),
		now:              time.Now,
		enabled:          true,
		spreadMultiplier: 1.0,
		sizeScalar:       1.0,
		directionalSkew:  0.0,
		symbolEnabled:    make(map[string]bool),
		prices:           make(map[string]uint64),
		activeOrders:     make(map[types.OrderID]types.InstrumentKey),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe returns a fresh event consumer.
func (e *Engine) Subscribe() *eventbus.Subscription {
	return e.bus.Subscribe()
}

// Unsubscribe retires a consumer returned by Subscribe, closing its event
// channel so the consumer's pump goroutine can exit.
func (e *Engine) Unsubscribe(sub *eventbus.Subscription) {
	e.bus.Unsubscribe(sub)
}

// IsEnabled reports the master switch.
func (e *Engine) IsEnabled() bool {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.enabled
}

// IsSymbolEnabled reports whether symbol is enabled. Absent symbols
// default to true.
func (e *Engine) IsSymbolEnabled(symbol string) bool {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	enabled, ok := e.symbolEnabled[symbol]
	if !ok {
		return true
	}
	return enabled
}

// GetPrice returns the last observed price for symbol, if any.
func (e *Engine) GetPrice(symbol string) (uint64, bool) {
	e.pricesMu.RLock()
	defer e.pricesMu.RUnlock()
	p, ok := e.prices[symbol]
	return p, ok
}

// GetConfig returns a snapshot of the tunable knobs.
func (e *Engine) GetConfig() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return Config{
		Enabled:          e.enabled,
		SpreadMultiplier: e.spreadMultiplier,
		SizeScalar:       e.sizeScalar,
		DirectionalSkew:  e.directionalSkew,
	}
}

// UpdatePrice stores the new price, emits PriceUpdated, and — if the
// master switch and the symbol are both enabled — requotes the symbol.
func (e *Engine) UpdatePrice(symbol string, cents uint64) {
	e.pricesMu.Lock()
	e.prices[symbol] = cents
	e.pricesMu.Unlock()

	e.bus.Publish(eventbus.Event{
		Kind:  eventbus.KindPriceUpdated,
		Price: &eventbus.PriceUpdated{Symbol: symbol, PriceCents: cents},
	})

	if e.IsEnabled() && e.IsSymbolEnabled(symbol) {
		e.requoteSymbol(symbol)
	}
}

// SetEnabled flips the master switch. Disabling cancels every maker
// order; enabling does not itself requote — a subsequent UpdatePrice
// repopulates.
func (e *Engine) SetEnabled(enabled bool) {
	e.cfgMu.Lock()
	e.enabled = enabled
	e.cfgMu.Unlock()

	if !enabled {
		e.CancelAllOrders()
	}
	e.emitConfigChanged()
}

// SetSymbolEnabled updates the per-symbol flag. Disabling cancels every
// order on that symbol. No ConfigChanged event is emitted for this
// operation, matching the original's per-symbol (not global) toggle.
func (e *Engine) SetSymbolEnabled(symbol string, enabled bool) {
	e.cfgMu.Lock()
	e.symbolEnabled[symbol] = enabled
	e.cfgMu.Unlock()

	if !enabled {
		e.CancelSymbolOrders(symbol)
	}
}

// SetSpreadMultiplier clamps to [0.1, 10.0], emits ConfigChanged, and
// requotes every symbol whose symbol flag is enabled.
func (e *Engine) SetSpreadMultiplier(v float64) {
	e.cfgMu.Lock()
	e.spreadMultiplier = clamp(v, minSpreadMultiplier, maxSpreadMultiplier)
	e.cfgMu.Unlock()

	e.emitConfigChanged()
	e.requoteAll()
}

// SetSizeScalar clamps to [0.0, 1.0], emits ConfigChanged, and requotes.
func (e *Engine) SetSizeScalar(v float64) {
	e.cfgMu.Lock()
	e.sizeScalar = clamp(v, minSizeScalar, maxSizeScalar)
	e.cfgMu.Unlock()

	e.emitConfigChanged()
	e.requoteAll()
}

// SetDirectionalSkew clamps to [-1.0, 1.0], emits ConfigChanged, and
// requotes.
func (e *Engine) SetDirectionalSkew(v float64) {
	e.cfgMu.Lock()
	e.directionalSkew = clamp(v, minDirectionalSkew, maxDirectionalSkew)
	e.cfgMu.Unlock()

	e.emitConfigChanged()
	e.requoteAll()
}

func (e *Engine) emitConfigChanged() {
	cfg := e.GetConfig()
	e.bus.Publish(eventbus.Event{
		Kind: eventbus.KindConfigChanged,
		Config: &eventbus.ConfigChanged{
			Enabled:          cfg.Enabled,
			SpreadMultiplier: cfg.SpreadMultiplier,
			SizeScalar:       cfg.SizeScalar,
			DirectionalSkew:  cfg.DirectionalSkew,
		},
	})
}

// requoteAll requotes every underlying symbol whose symbol flag is
// enabled. It does not check the master switch, mirroring the original
// source precisely: a knob setter requotes regardless of the global
// enabled flag. UpdatePrice is the operation that gates on both flags.
func (e *Engine) requoteAll() {
	for _, symbol := range e.catalog.UnderlyingSymbols() {
		if e.IsSymbolEnabled(symbol) {
			e.requoteSymbol(symbol)
		}
	}
}

// requoteSymbol implements the §4.3 requote algorithm. Per the spec's
// design note — the mandated fix to the source's known stale-order
// limitation — it cancels any previously-recorded orders on an instrument
// before placing the new pair, so active_orders never accumulates more
// than two entries per instrument.
func (e *Engine) requoteSymbol(symbol string) {
	price, ok := e.GetPrice(symbol)
	if !ok {
		e.logger.Warn("requote skipped: no price recorded", "symbol", symbol)
		return
	}

	book, err := e.catalog.Get(symbol)
	if err != nil {
		e.logger.Warn("requote skipped: symbol not in catalog", "symbol", symbol, "error", err)
		return
	}

	cfg := e.GetConfig()
	now := e.now()

	for _, expEntry := range book.Expirations() {
		strikeBook := expEntry.Book
		for _, strike := range strikeBook.StrikePrices() {
			sb, err := strikeBook.GetStrike(strike)
			if err != nil {
				continue
			}
			for _, style := range []types.Style{types.Call, types.Put} {
				instr := types.InstrumentKey{
					Symbol:     symbol,
					Expiration: expEntry.Key,
					Strike:     strike,
					Style:      style,
				}
				e.requoteInstrument(instr, sb.Get(style), price, cfg, now)
			}
		}
	}
}

func (e *Engine) requoteInstrument(instr types.InstrumentKey, optBook catalog.OptionBook, spotCents uint64, cfg Config, now time.Time) {
	e.cancelInstrumentOrders(instr, optBook)

	q := e.quoter.GenerateQuote(quoter.QuoteInput{
		SpotCents:        spotCents,
		StrikeCents:      instr.Strike,
		Expiration:       instr.Expiration,
		Style:            instr.Style,
		SpreadMultiplier: cfg.SpreadMultiplier,
		SizeScalar:       cfg.SizeScalar,
		DirectionalSkew:  cfg.DirectionalSkew,
		Now:              now,
	})

	bidID := catalog.NewOrderID()
	if err := optBook.AddLimitOrder(bidID, types.Buy, q.BidPrice, q.BidSize); err == nil {
		e.recordOrder(bidID, instr)
	} else {
		e.logger.Warn("add_limit_order failed", "side", "buy", "symbol", instr.Symbol, "error", err)
	}

	askID := catalog.NewOrderID()
	if err := optBook.AddLimitOrder(askID, types.Sell, q.AskPrice, q.AskSize); err == nil {
		e.recordOrder(askID, instr)
	} else {
		e.logger.Warn("add_limit_order failed", "side", "sell", "symbol", instr.Symbol, "error", err)
	}

	e.bus.Publish(eventbus.Event{
		Kind: eventbus.KindQuoteUpdated,
		Quote: &eventbus.QuoteUpdated{
			Symbol:     instr.Symbol,
			Expiration: instr.Expiration.String(),
			Strike:     instr.Strike,
			Style:      string(instr.Style),
			BidPrice:   q.BidPrice,
			AskPrice:   q.AskPrice,
			BidSize:    q.BidSize,
			AskSize:    q.AskSize,
		},
	})
}

func (e *Engine) recordOrder(id types.OrderID, instr types.InstrumentKey) {
	e.ordersMu.Lock()
	defer e.ordersMu.Unlock()
	e.activeOrders[id] = instr
}

// cancelInstrumentOrders cancels every engine-owned order recorded against
// exactly instr, by scanning active_orders — a flat map with no
// back-pointers, per §9's design note.
func (e *Engine) cancelInstrumentOrders(instr types.InstrumentKey, optBook catalog.OptionBook) {
	var toCancel []types.OrderID

	e.ordersMu.Lock()
	for id, recorded := range e.activeOrders {
		if recorded == instr {
			toCancel = append(toCancel, id)
			delete(e.activeOrders, id)
		}
	}
	e.ordersMu.Unlock()

	for _, id := range toCancel {
		if err := optBook.CancelOrder(id); err != nil {
			e.logger.Warn("cancel_order failed, swallowed", "order_id", id, "error", err)
		}
	}
}

// CancelAllOrders snapshots every live order, then removes and cancels
// each. Cancel failures are logged and swallowed — the book may have
// already filled the order.
func (e *Engine) CancelAllOrders() {
	e.cancelWhere(func(types.InstrumentKey) bool { return true })
}

// CancelSymbolOrders cancels every live order on symbol.
func (e *Engine) CancelSymbolOrders(symbol string) {
	e.cancelWhere(func(instr types.InstrumentKey) bool { return instr.Symbol == symbol })
}

func (e *Engine) cancelWhere(match func(types.InstrumentKey) bool) {
	type target struct {
		id    types.OrderID
		instr types.InstrumentKey
	}

	var targets []target
	e.ordersMu.Lock()
	for id, instr := range e.activeOrders {
		if match(instr) {
			targets = append(targets, target{id: id, instr: instr})
			delete(e.activeOrders, id)
		}
	}
	e.ordersMu.Unlock()

	for _, tgt := range targets {
		book, err := e.catalog.Get(tgt.instr.Symbol)
		if err != nil {
			continue
		}
		for _, expEntry := range book.Expirations() {
			if expEntry.Key != tgt.instr.Expiration {
				continue
			}
			sb, err := expEntry.Book.GetStrike(tgt.instr.Strike)
			if err != nil {
				continue
			}
			if err := sb.Get(tgt.instr.Style).CancelOrder(tgt.id); err != nil {
				e.logger.Warn("cancel_order failed, swallowed", "order_id", tgt.id, "error", err)
			}
			break
		}
	}
}

// ActiveOrderCount returns the number of engine-owned orders currently
// believed live, for tests and monitoring.
func (e *Engine) ActiveOrderCount() int {
	e.ordersMu.Lock()
	defer e.ordersMu.Unlock()
	return len(e.activeOrders)
}
