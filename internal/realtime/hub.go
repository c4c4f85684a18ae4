// internal/realtime/hub.go
//
// WebSocket fan-out of game notifications.
// Responsibilities:
//   - Upgrade GET /game/{id}/events and park the connection under its game id.
//   - Broadcast sound.Event JSON to every client watching that game.
//   - Drop slow clients instead of blocking the engine's notification path.
//
// Clients are write-only consumers; inbound frames are read and discarded so
// close and ping control frames are processed.

package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/internal/sound"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

type message struct {
	gameID string
	data   []byte
}

// Hub groups websocket clients by game id.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}

	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub builds a hub. checkOrigin may be nil to allow any origin.
func NewHub(checkOrigin func(*http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		clients:    make(map[string]map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run owns client membership until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			set := h.clients[c.gameID]
			if set == nil {
				set = make(map[*client]struct{})
				h.clients[c.gameID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			log.Debug().Str("game_id", c.gameID).Msg("ws client registered")

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[m.gameID] {
				select {
				case c.send <- m.data:
				default:
					log.Warn().Str("game_id", c.gameID).Msg("ws client too slow, dropping")
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.gameID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.gameID)
	}
}

// Emit queues ev for the game's clients. It never blocks: when the queue is
// full the event is dropped.
func (h *Hub) Emit(ev sound.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("ws marshal event")
		return
	}
	select {
	case h.broadcast <- message{gameID: ev.GameID, data: data}:
	default:
		log.Warn().Str("game_id", ev.GameID).Str("type", ev.Type).Msg("ws broadcast queue full")
	}
}

// Clients returns how many connections are watching gameID.
func (h *Hub) Clients(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

// ServeWS upgrades the request and attaches the connection to gameID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), gameID: gameID}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
