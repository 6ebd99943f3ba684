package main

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 4 * 1024
	sendBuffer = 64
)

var clientIDCounter atomic.Uint64

// Hub fans transcript messages out to the websocket clients of each group.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.logger.Info("websocket client connected", "group", c.group, "total_clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.logger.Info("websocket client disconnected", "group", c.group, "total_clients", len(h.clients))
}

// Broadcast queues msg for every client of group. Clients whose buffer is
// full are dropped. It never blocks.
func (h *Hub) Broadcast(group string, msg models.ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.group != group {
			continue
		}
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("dropped slow websocket client", "group", group, "client", c.id)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) count(group string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int
	for c := range h.clients {
		if c.group == group {
			n++
		}
	}
	return n
}

// Client is one websocket connection following a group transcript.
type Client struct {
	id    uint64
	group string
	hub   *Hub
	conn  *websocket.Conn
	send  chan models.ChatMessage
}

func NewClient(hub *Hub, conn *websocket.Conn, group string) *Client {
	return &Client{
		id:    clientIDCounter.Add(1),
		group: group,
		hub:   hub,
		conn:  conn,
		send:  make(chan models.ChatMessage, sendBuffer),
	}
}

// Start registers the client, queues backlog and starts both pumps.
func (c *Client) Start(backlog []models.ChatMessage) {
	if len(backlog) > sendBuffer {
		backlog = backlog[len(backlog)-sendBuffer:]
	}
	for _, msg := range backlog {
		select {
		case c.send <- msg:
		default:
		}
	}
	c.hub.register(c)
	go c.writePump()
	go c.readPump()
}

// readPump only watches for close and pong frames; clients post messages
// through POST /chat.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("unexpected websocket close error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Error("failed to write to ws connection", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
