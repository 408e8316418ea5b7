// Package eventbus is the multi-producer, multi-consumer broadcast of
// engine events with lag tolerance (§4.4). It is grounded on the teacher's
// register/unregister/broadcast channel shape (internal/api/stream.go), but
// diverges from it deliberately: a slow subscriber here drops its oldest
// buffered event and keeps a running lag count instead of being
// disconnected. The subscriber resumes from the current tail rather than
// losing the connection.
package eventbus

import "sync"

// Kind discriminates the tagged union of engine events.
type Kind string

const (
	KindPriceUpdated  Kind = "price"
	KindQuoteUpdated  Kind = "quote"
	KindOrderFilled   Kind = "fill"
	KindConfigChanged Kind = "config"
)

// Event is one engine event. Exactly one of the typed payload fields is set,
// matching Kind.
type Event struct {
	Kind   Kind
	Price  *PriceUpdated
	Quote  *QuoteUpdated
	Fill   *OrderFilled
	Config *ConfigChanged
}

// PriceUpdated is emitted whenever the engine records a new underlying
// price.
type PriceUpdated struct {
	Symbol     string
	PriceCents uint64
}

// QuoteUpdated is emitted once per instrument at the end of a requote.
type QuoteUpdated struct {
	Symbol     string
	Expiration string
	Strike     uint64
	Style      string
	BidPrice   uint64
	AskPrice   uint64
	BidSize    uint64
	AskSize    uint64
}

// OrderFilled is emitted when a maker order is reported filled.
type OrderFilled struct {
	OrderID       string
	Symbol        string
	InstrumentTag string
	Side          string
	Quantity      uint64
	PriceCents    uint64
	EdgeCents     int64
}

// ConfigChanged is emitted whenever a knob setter or set_enabled runs.
type ConfigChanged struct {
	Enabled          bool
	SpreadMultiplier float64
	SizeScalar       float64
	DirectionalSkew  float64
}

// subscriberQueueCap is the fixed per-subscriber ring size from §4.4/§9: a
// slow consumer holds at most this many undelivered events before the
// oldest is dropped.
const subscriberQueueCap = 1000

// Subscription is a single consumer's view of the bus. Events() yields
// events in order; Dropped() reports the cumulative count of events evicted
// because this subscriber fell behind.
type Subscription struct {
	events  chan Event
	dropped uint64
	mu      sync.Mutex // guards dropped; events channel has its own internal synchronization
}

// Events returns the channel to range over. It is closed once the producer
// closes the bus and this subscriber's buffered events have drained.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped returns how many events this subscriber has lost to buffer
// overflow so far.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Subscription) recordDrop() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Bus is the broadcast primitive. The zero value is not usable; call New.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a fresh consumer. Subscribing after Close returns a
// subscription whose channel is already closed.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{events: make(chan Event, subscriberQueueCap)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.events)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a consumer. Safe to call more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.events)
}

// Publish delivers ev to every current subscriber. A subscriber whose
// buffer is full has its oldest event evicted and its drop count
// incremented, then receives ev — it never blocks the producer.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			select {
			case <-sub.events:
				sub.recordDrop()
			default:
			}
			select {
			case sub.events <- ev:
			default:
			}
		}
	}
}

// Close terminates all subscribers once their buffered events have drained:
// each subscriber's channel is closed, so a ranging reader sees everything
// already queued before the channel reports closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.events)
	}
	b.subs = make(map[*Subscription]struct{})
}
