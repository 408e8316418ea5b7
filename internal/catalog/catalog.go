// Package catalog defines the narrow interface the engine consumes to place
// and cancel maker orders (§6 of the external-interfaces contract), and
// ships a reference in-memory implementation.
//
// The reference implementation is deliberately not a matching engine: it
// does no order crossing and generates no trades. It is the minimal
// bookkeeping (add_limit_order, cancel_order, get_quote) needed to exercise
// the engine end to end in tests without a real external order-book
// library.
package catalog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"optionmm/internal/engineerr"
	"optionmm/pkg/types"
)

// Quote is the best bid/ask snapshot of an OptionBook.
type Quote struct {
	Bid         *uint64
	BidSize     uint64
	Ask         *uint64
	AskSize     uint64
	TimestampMs int64
}

// OptionBook is one (underlying, expiration, strike, style) order book.
type OptionBook interface {
	AddLimitOrder(id types.OrderID, side types.Side, priceCents, qty uint64) error
	CancelOrder(id types.OrderID) error
	GetQuote() Quote
}

// ExpirationEntry pairs an expiration key with its strike ladder.
type ExpirationEntry struct {
	Key  types.ExpirationKey
	Book ExpirationBook
}

// StrikeBook exposes both option styles at one strike.
type StrikeBook interface {
	Get(style types.Style) OptionBook
}

// ExpirationBook exposes the strike ladder for one expiration.
type ExpirationBook interface {
	StrikePrices() []uint64
	GetStrike(strike uint64) (StrikeBook, error)
}

// UnderlyingBook exposes the expiration ladder for one symbol.
type UnderlyingBook interface {
	Expirations() []ExpirationEntry
}

// Catalog is the top-level hierarchy: symbol -> expiration -> strike -> style.
type Catalog interface {
	UnderlyingSymbols() []string
	Get(symbol string) (UnderlyingBook, error)
}

// NewOrderID generates a globally unique order identifier. Placement is the
// engine's responsibility (it calls this once per add_limit_order), mirroring
// the original source's OrderId::new() pattern.
func NewOrderID() types.OrderID {
	return types.OrderID(uuid.NewString())
}

// memOptionBook is the reference OptionBook: it tracks at most one resting
// order per side and reports it verbatim as the quote. It does not match
// crossing orders against each other.
type memOptionBook struct {
	mu  sync.RWMutex
	bid *restingOrder
	ask *restingOrder
}

type restingOrder struct {
	id    types.OrderID
	price uint64
	qty   uint64
}

func newMemOptionBook() *memOptionBook {
	return &memOptionBook{}
}

func (b *memOptionBook) AddLimitOrder(id types.OrderID, side types.Side, priceCents, qty uint64) error {
	if priceCents == 0 {
		return engineerr.Catalog(engineerr.InvalidRequest("price must be > 0"))
	}
	if qty == 0 {
		return engineerr.Catalog(engineerr.InvalidRequest("qty must be > 0"))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order := &restingOrder{id: id, price: priceCents, qty: qty}
	if side == types.Buy {
		b.bid = order
	} else {
		b.ask = order
	}
	return nil
}

func (b *memOptionBook) CancelOrder(id types.OrderID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bid != nil && b.bid.id == id {
		b.bid = nil
		return nil
	}
	if b.ask != nil && b.ask.id == id {
		b.ask = nil
		return nil
	}
	return engineerr.Catalog(engineerr.NotFound("order " + string(id)))
}

func (b *memOptionBook) GetQuote() Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	q := Quote{TimestampMs: time.Now().UnixMilli()}
	if b.bid != nil {
		price := b.bid.price
		q.Bid = &price
		q.BidSize = b.bid.qty
	}
	if b.ask != nil {
		price := b.ask.price
		q.Ask = &price
		q.AskSize = b.ask.qty
	}
	return q
}

// memStrikeBook holds the call/put pair at one strike.
type memStrikeBook struct {
	call *memOptionBook
	put  *memOptionBook
}

func (s *memStrikeBook) Get(style types.Style) OptionBook {
	if style == types.Call {
		return s.call
	}
	return s.put
}

// memExpirationBook holds the strike ladder for one expiration.
type memExpirationBook struct {
	mu      sync.RWMutex
	strikes map[uint64]*memStrikeBook
	order   []uint64
}

func newMemExpirationBook() *memExpirationBook {
	return &memExpirationBook{strikes: make(map[uint64]*memStrikeBook)}
}

func (e *memExpirationBook) StrikePrices() []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]uint64, len(e.order))
	copy(out, e.order)
	return out
}

func (e *memExpirationBook) GetStrike(strike uint64) (StrikeBook, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sb, ok := e.strikes[strike]
	if !ok {
		return nil, engineerr.NotFound("strike")
	}
	return sb, nil
}

func (e *memExpirationBook) addStrike(strike uint64) *memStrikeBook {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sb, ok := e.strikes[strike]; ok {
		return sb
	}
	sb := &memStrikeBook{call: newMemOptionBook(), put: newMemOptionBook()}
	e.strikes[strike] = sb
	e.order = append(e.order, strike)
	return sb
}

// memUnderlyingBook holds the expiration ladder for one symbol.
type memUnderlyingBook struct {
	mu          sync.RWMutex
	expirations map[types.ExpirationKey]*memExpirationBook
	order       []types.ExpirationKey
}

func newMemUnderlyingBook() *memUnderlyingBook {
	return &memUnderlyingBook{expirations: make(map[types.ExpirationKey]*memExpirationBook)}
}

func (u *memUnderlyingBook) Expirations() []ExpirationEntry {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]ExpirationEntry, 0, len(u.order))
	for _, key := range u.order {
		out = append(out, ExpirationEntry{Key: key, Book: u.expirations[key]})
	}
	return out
}

func (u *memUnderlyingBook) addExpiration(key types.ExpirationKey) *memExpirationBook {
	u.mu.Lock()
	defer u.mu.Unlock()

	if eb, ok := u.expirations[key]; ok {
		return eb
	}
	eb := newMemExpirationBook()
	u.expirations[key] = eb
	u.order = append(u.order, key)
	return eb
}

// MemCatalog is the reference in-memory Catalog implementation. Build it
// with AddInstrument before handing it to the engine; it never mutates its
// shape afterward except through AddInstrument.
type MemCatalog struct {
	mu          sync.RWMutex
	underlyings map[string]*memUnderlyingBook
	order       []string
}

// NewMemCatalog builds an empty reference catalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{underlyings: make(map[string]*memUnderlyingBook)}
}

// AddInstrument registers one (symbol, expiration, strike) pair, creating
// both the call and put books if they don't already exist. It is idempotent.
func (c *MemCatalog) AddInstrument(symbol string, expiration types.ExpirationKey, strike uint64) {
	c.mu.Lock()
	ub, ok := c.underlyings[symbol]
	if !ok {
		ub = newMemUnderlyingBook()
		c.underlyings[symbol] = ub
		c.order = append(c.order, symbol)
	}
	c.mu.Unlock()

	eb := ub.addExpiration(expiration)
	eb.addStrike(strike)
}

func (c *MemCatalog) UnderlyingSymbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *MemCatalog) Get(symbol string) (UnderlyingBook, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ub, ok := c.underlyings[symbol]
	if !ok {
		return nil, engineerr.NotFound("underlying " + symbol)
	}
	return ub, nil
}
