// Package feed exposes a read-only websocket broadcast of every event batch
// the matching core produces, grounded on the hub/client pattern in
// 0xtitan6-polymarket-mm's internal/api/stream.go — register/unregister
// channels feeding a fan-out broadcast loop, with one read/write pump pair
// per connection.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ferrum/internal/engine"
	"ferrum/internal/host"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	broadcastDepth = 256
)

// AssetEvents is the JSON envelope pushed to every subscriber, mirroring the
// original source's {asset, events} publish shape (see SPEC_FULL.md
// "Event publishing shape").
type AssetEvents = host.AssetEvents

// Hub fans event batches out to every connected websocket client. It
// implements host.Reporter so internal/host can publish to it the same way
// it publishes to the TCP server.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan AssetEvents
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan AssetEvents, broadcastDepth),
	}
}

// Run drives the hub's main loop. Call it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			h.clientsMu.Unlock()
			log.Debug().Int("clients", len(h.clients)).Msg("feed client connected")

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMu.Unlock()
			log.Debug().Int("clients", len(h.clients)).Msg("feed client disconnected")

		case batch := <-h.broadcast:
			data, err := json.Marshal(batch)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal feed event batch")
				continue
			}
			h.clientsMu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// ReportEvents implements host.Reporter.
func (h *Hub) ReportEvents(asset string, events []engine.Event) {
	select {
	case h.broadcast <- AssetEvents{Asset: asset, Events: events}:
	default:
		log.Warn().Str("asset", asset).Msg("feed broadcast channel full, dropping batch")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // market-data feed is public
}

// ServeHTTP upgrades the connection and starts its pumps. The feed is
// read-only: any client message is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("feed websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
