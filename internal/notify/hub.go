// Package notify pushes chat events to connected clients over websockets.
package notify

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"uconnect/api/internal/metrics"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub tracks open websocket connections per user. A user may hold several.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Conn]struct{}
}

type Conn struct {
	UserID   string
	conn     *websocket.Conn
	send     chan []byte
	sendOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{users: make(map[string]map[*Conn]struct{})}
}

func (c *Conn) closeSend() { c.sendOnce.Do(func() { close(c.send) }) }

func (h *Hub) Register(userID string, ws *websocket.Conn) *Conn {
	c := &Conn{UserID: userID, conn: ws, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Conn]struct{})
	}
	h.users[userID][c] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketConnections.Inc()
	return c
}

func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.users[c.UserID]
	if _, ok := conns[c]; !ok {
		return
	}
	c.closeSend()
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.users, c.UserID)
	}
	metrics.WebsocketConnections.Dec()
}

// Connected reports how many connections userID currently holds.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Deliver queues msg for every connection of the given users and returns how
// many connections accepted it. Full buffers drop the message.
func (h *Hub) Deliver(userIDs []string, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, id := range userIDs {
		for c := range h.users[id] {
			select {
			case c.send <- msg:
				delivered++
			default:
			}
		}
	}
	return delivered
}

func (c *Conn) WritePump() {
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

// ReadPump discards client frames and returns when the connection drops.
func (c *Conn) ReadPump() {
	defer c.conn.Close()
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
