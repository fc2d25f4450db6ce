// Package websocket broadcasts exchange-simulator domain events (order
// fills, cancellations, position transitions, liquidations) to connected
// clients. Grounded on the teacher's internal/websocket/hub.go: the
// same Hub/Client register/unregister/broadcast shape, with candle/bot
// events replaced by order and position events.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"exchangesim/internal/model"
)

// EventType identifies the kind of payload carried by an Event.
type EventType string

const (
	EventTypeOrderCreated    EventType = "order_created"
	EventTypeOrderFilled     EventType = "order_filled"
	EventTypeOrderCanceled   EventType = "order_canceled"
	EventTypePositionOpened  EventType = "position_opened"
	EventTypePositionUpdated EventType = "position_updated"
	EventTypePositionClosed  EventType = "position_closed"
	EventTypeLiquidation     EventType = "liquidation"
)

// Event is a single WebSocket message envelope.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub manages WebSocket connections and fans broadcasts out to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	Register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister/broadcast until the process exits.
// Intended to be launched in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("websocket client connected, total=%d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("websocket client disconnected, total=%d", len(h.clients))

		case event := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastOrder sends an order lifecycle event.
func (h *Hub) BroadcastOrder(eventType EventType, order *model.Order) {
	h.broadcast <- Event{Type: eventType, Timestamp: time.Now(), Data: order}
}

// BroadcastPosition sends a position lifecycle event.
func (h *Hub) BroadcastPosition(eventType EventType, position *model.Position) {
	h.broadcast <- Event{Type: eventType, Timestamp: time.Now(), Data: position}
}

// Client is a single WebSocket connection registered with a Hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

// NewClient wraps conn as a Hub-managed Client.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan Event, 256)}
}

// ReadPump drains incoming frames (pings/pongs); the API is write-only to
// clients, so any application message is simply discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// WritePump drains the client's send channel to the socket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("websocket: marshal event: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
