package services

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Connection is one live player connection as seen by the Hub.
type Connection interface {
	ID() string
	Send(data []byte) error
}

// Hub is the connection registry: which connections are live in which room,
// and under which display name.
type Hub struct {
	rooms  map[string]map[string]Connection // roomID -> connID -> conn
	names  map[string]string                // connID -> player name
	mutex  sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]Connection),
		names:  make(map[string]string),
		logger: logger,
	}
}

// Register adds conn to roomID under name. Registering the same connection
// again only refreshes its name.
func (h *Hub) Register(conn Connection, roomID, name string) {
	h.mutex.Lock()
	conns, ok := h.rooms[roomID]
	if !ok {
		conns = make(map[string]Connection)
		h.rooms[roomID] = conns
	}
	conns[conn.ID()] = conn
	h.names[conn.ID()] = name
	total := len(conns)
	h.mutex.Unlock()

	h.logger.Debug("connection registered", "room", roomID, "player", name, "conn", conn.ID(), "room_connections", total)
}

// Unregister removes conn from roomID and returns the name it was registered
// under. The room entry is dropped once its last connection leaves.
func (h *Hub) Unregister(conn Connection, roomID string) (string, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	name, ok := h.names[conn.ID()]
	delete(h.names, conn.ID())

	if conns, exists := h.rooms[roomID]; exists {
		delete(conns, conn.ID())
		if len(conns) == 0 {
			delete(h.rooms, roomID)
			h.logger.Debug("registry room emptied", "room", roomID)
		}
	}

	h.logger.Debug("connection unregistered", "room", roomID, "player", name, "conn", conn.ID())
	return name, ok
}

// SendTo delivers event to a single connection. Failures are logged only;
// membership changes come from the disconnect path.
func (h *Hub) SendTo(conn Connection, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	if err := conn.Send(data); err != nil {
		h.logger.Warn("send failed", "conn", conn.ID(), "player", h.nameOf(conn), "error", err)
	}
}

// Broadcast delivers event to every connection in roomID except exclude.
// Recipients are snapshotted before sending.
func (h *Hub) Broadcast(roomID string, event any, exclude Connection) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event", "room", roomID, "error", err)
		return
	}

	recipients := h.connections(roomID)

	sent := 0
	for _, conn := range recipients {
		if exclude != nil && conn.ID() == exclude.ID() {
			continue
		}
		if err := conn.Send(data); err != nil {
			h.logger.Warn("broadcast send failed", "room", roomID, "conn", conn.ID(), "player", h.nameOf(conn), "error", err)
			continue
		}
		sent++
	}

	h.logger.Debug("broadcast", "room", roomID, "recipients", sent)
}

// ListNames returns the display names of live connections in roomID.
func (h *Hub) ListNames(roomID string) map[string]struct{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	names := make(map[string]struct{}, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		if name, ok := h.names[id]; ok {
			names[name] = struct{}{}
		}
	}
	return names
}

func (h *Hub) ConnectionCount(roomID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.rooms[roomID])
}

func (h *Hub) RoomCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.rooms)
}

func (h *Hub) connections(roomID string) []Connection {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	conns := make([]Connection, 0, len(h.rooms[roomID]))
	for _, conn := range h.rooms[roomID] {
		conns = append(conns, conn)
	}
	return conns
}

func (h *Hub) nameOf(conn Connection) string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.names[conn.ID()]
}

// Client is a WebSocket connection with a buffered outbound queue drained by
// WritePump.
type Client struct {
	id     string
	socket *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func NewClient(socket *websocket.Conn, logger *slog.Logger) *Client {
	c := &Client{
		id:     uuid.NewString(),
		socket: socket,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	socket.SetReadLimit(maxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	return c
}

func (c *Client) ID() string {
	return c.id
}

// Send queues data without blocking.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Read blocks for the next inbound frame.
func (c *Client) Read() ([]byte, error) {
	_, message, err := c.socket.ReadMessage()
	return message, err
}

// Close stops the write pump after it flushes what is already queued.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.logger.Debug("write failed", "conn", c.id, "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			if err := c.flush(); err != nil {
				return
			}
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued.
func (c *Client) flush() error {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Client) write(message []byte) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))

	w, err := c.socket.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if _, err := w.Write(message); err != nil {
		return err
	}

	return w.Close()
}
