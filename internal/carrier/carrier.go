// Package carrier bridges the engine's event bus to WebSocket clients (§6):
// it serializes eventbus.Event values into the wire envelope, greets new
// clients with a "connected" message, sends a "heartbeat" every 30s, and
// applies a small set of client commands (subscribe/unsubscribe are
// observational no-ops; set_spread/set_size/set_skew/kill/enable drive the
// engine).
//
// Grounded on the teacher's internal/api/stream.go Hub/Client register-
// unregister-broadcast shape, generalized from its read-only dashboard feed
// to a duplex command channel per the original source's api/websocket.rs.
package carrier

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"optionmm/internal/eventbus"
)

// Engine is the narrow slice of engine.Engine the carrier drives from
// client commands.
type Engine interface {
	Subscribe() *eventbus.Subscription
	Unsubscribe(sub *eventbus.Subscription)
	SetSpreadMultiplier(v float64)
	SetSizeScalar(v float64)
	SetDirectionalSkew(v float64)
	SetEnabled(enabled bool)
}

// Message is the wire envelope: {"type": "...", "data": {...}}.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type quoteData struct {
	Symbol     string `json:"symbol"`
	Expiration string `json:"expiration"`
	Strike     uint64 `json:"strike"`
	Style      string `json:"style"`
	BidPrice   uint64 `json:"bid_price"`
	AskPrice   uint64 `json:"ask_price"`
	BidSize    uint64 `json:"bid_size"`
	AskSize    uint64 `json:"ask_size"`
}

type fillData struct {
	OrderID    string `json:"order_id"`
	Symbol     string `json:"symbol"`
	Instrument string `json:"instrument"`
	Side       string `json:"side"`
	Quantity   uint64 `json:"quantity"`
	Price      uint64 `json:"price"`
	Edge       int64  `json:"edge"`
}

type configData struct {
	Enabled          bool    `json:"enabled"`
	SpreadMultiplier float64 `json:"spread_multiplier"`
	SizeScalar       float64 `json:"size_scalar"`
	DirectionalSkew  float64 `json:"directional_skew"`
}

type priceData struct {
	Symbol     string `json:"symbol"`
	PriceCents uint64 `json:"price_cents"`
}

type connectedData struct {
	Message string `json:"message"`
}

type heartbeatData struct {
	TimestampMs int64 `json:"timestamp_ms"`
}

// clientCommand is the shape of an inbound client message.
type clientCommand struct {
	Action string   `json:"action"`
	Symbol *string  `json:"symbol,omitempty"`
	Value  *float64 `json:"value,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	heartbeatEvery = 30 * time.Second
)

// eventToMessage translates one bus event into its wire Message, or false
// if the event kind has no wire representation.
func eventToMessage(ev eventbus.Event) (Message, bool) {
	switch ev.Kind {
	case eventbus.KindQuoteUpdated:
		q := ev.Quote
		return Message{Type: "quote", Data: quoteData{
			Symbol: q.Symbol, Expiration: q.Expiration, Strike: q.Strike, Style: q.Style,
			BidPrice: q.BidPrice, AskPrice: q.AskPrice, BidSize: q.BidSize, AskSize: q.AskSize,
		}}, true
	case eventbus.KindOrderFilled:
		f := ev.Fill
		return Message{Type: "fill", Data: fillData{
			OrderID: f.OrderID, Symbol: f.Symbol, Instrument: f.InstrumentTag, Side: f.Side,
			Quantity: f.Quantity, Price: f.PriceCents, Edge: f.EdgeCents,
		}}, true
	case eventbus.KindConfigChanged:
		c := ev.Config
		return Message{Type: "config", Data: configData{
			Enabled: c.Enabled, SpreadMultiplier: c.SpreadMultiplier,
			SizeScalar: c.SizeScalar, DirectionalSkew: c.DirectionalSkew,
		}}, true
	case eventbus.KindPriceUpdated:
		p := ev.Price
		return Message{Type: "price", Data: priceData{Symbol: p.Symbol, PriceCents: p.PriceCents}}, true
	default:
		return Message{}, false
	}
}

// Hub upgrades HTTP connections to WebSocket and fans out engine events to
// every connected client.
type Hub struct {
	upgrader websocket.Upgrader
	engine   Engine
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Message
	sub  *eventbus.Subscription
}

// NewHub builds a carrier Hub over engine.
func NewHub(engine Engine, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		engine:   engine,
		logger:   logger.With("component", "carrier"),
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and runs the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Message, 256),
		sub:  h.engine.Subscribe(),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("client connected", "count", h.clientCount())

	c.send <- Message{Type: "connected", Data: connectedData{Message: "connected to the quoting engine"}}

	go h.writePump(c)
	go h.eventPump(c)
	h.readPump(c)
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// removeClient drops c from the registry and retires its subscription. It
// does not touch c.send: eventPump is the sole closer of that channel (and,
// once the pumps run, its sole writer), and closing the subscription here
// is what drives it to exit.
func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		h.engine.Unsubscribe(c.sub)
	}
	h.logger.Info("client disconnected", "count", h.clientCount())
}

// eventPump forwards engine events (translated to wire Messages) and a
// periodic heartbeat into the client's send channel. Apart from the
// "connected" greeting that ServeHTTP queues before starting it, it is the
// only goroutine that writes to c.send, and the only one that closes it, so
// writePump can safely range over it without a separate coordination signal.
func (h *Hub) eventPump(c *client) {
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()
	defer close(c.send)

	for {
		select {
		case ev, ok := <-c.sub.Events():
			if !ok {
				return
			}
			if msg, ok := eventToMessage(ev); ok {
				select {
				case c.send <- msg:
				default:
				}
			}
		case <-heartbeat.C:
			select {
			case c.send <- Message{Type: "heartbeat", Data: heartbeatData{TimestampMs: time.Now().UnixMilli()}}:
			default:
			}
		}
	}
}

// writePump serializes queued messages onto the socket.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("marshal failed", "error", err)
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump consumes client commands until the connection closes.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleCommand(data)
	}
}

// handleCommand parses and applies one client command. Unknown actions and
// malformed payloads are silently ignored, matching the original's
// best-effort command handling.
func (h *Hub) handleCommand(data []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return
	}

	switch cmd.Action {
	case "subscribe", "unsubscribe":
		// Per-symbol filtering is not implemented; every client already
		// receives every event. Logged for observability only.
		h.logger.Debug("client subscription command", "action", cmd.Action, "symbol", cmd.Symbol)
	case "set_spread":
		if cmd.Value != nil {
			h.engine.SetSpreadMultiplier(*cmd.Value)
		}
	case "set_size":
		if cmd.Value != nil {
			h.engine.SetSizeScalar(*cmd.Value / 100.0)
		}
	case "set_skew":
		if cmd.Value != nil {
			h.engine.SetDirectionalSkew(*cmd.Value)
		}
	case "kill":
		h.engine.SetEnabled(false)
	case "enable":
		h.engine.SetEnabled(true)
	default:
		h.logger.Debug("unknown carrier command", "action", cmd.Action)
	}
}
