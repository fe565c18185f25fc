// Package spectator streams render snapshots of a running match to websocket
// clients. Spectators are read-only: anything they send is discarded.
package spectator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
)

// Message types sent to spectators.
const (
	MessageSnapshot = "snapshot"
	MessageGameOver = "game_over"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// ErrHubClosed is returned by Publish once the hub has stopped.
var ErrHubClosed = errors.New("spectator hub closed")

// Message is the JSON envelope written to every client.
type Message struct {
	Type    string         `json:"type"`
	MatchID string         `json:"match_id,omitempty"`
	Tick    int            `json:"tick"`
	Data    *game.Snapshot `json:"data"`
	Events  []rules.Event  `json:"events,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshots out to connected spectators. The client set is owned by
// the Run goroutine.
type Hub struct {
	logger     *zap.Logger
	matchID    string
	sendBuffer int

	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	// last is replayed to late joiners so they never start blank.
	last      []byte
	connected atomic.Int64
}

// NewHub creates a hub for matchID. sendBuffer bounds each client's queue; a
// client that falls further behind is disconnected.
func NewHub(logger *zap.Logger, matchID string, sendBuffer int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		logger:     logger,
		matchID:    matchID,
		sendBuffer: sendBuffer,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Add(1)
			if h.last != nil {
				c.send <- h.last
			}
			h.logger.Debug("spectator connected", zap.String("remote", c.conn.RemoteAddr().String()))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("spectator disconnected", zap.String("remote", c.conn.RemoteAddr().String()))
			}

		case msg := <-h.broadcast:
			h.last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("dropping slow spectator", zap.String("remote", c.conn.RemoteAddr().String()))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// Clients reports the number of connected spectators.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Publish sends the state's snapshot and the events of the tick that produced
// it. Once the game is over the message type is game_over.
func (h *Hub) Publish(s *game.State, events []rules.Event) error {
	snap := s.Snapshot()
	msgType := MessageSnapshot
	if snap.Over {
		msgType = MessageGameOver
	}
	data, err := json.Marshal(Message{
		Type:    msgType,
		MatchID: h.matchID,
		Tick:    snap.Tick,
		Data:    &snap,
		Events:  events,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// ServeHTTP upgrades the request and attaches the connection as a spectator.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
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

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
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
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
