package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hlemont/stream-automate/internal/logging"
)

const (
	eventPingPeriod = 50 * time.Second
	eventReadWait   = 60 * time.Second
	eventWriteWait  = 10 * time.Second
	eventSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only and meant for local overlays and dashboards.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Notice kinds.
const (
	NoticeAction = "action"
	NoticeOBS    = "obs"
	NoticeStatus = "status"
)

// Notice is one message on the /events feed.
type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Hub fans notices out to websocket subscribers.
type Hub struct {
	logger   *slog.Logger
	onCount  func(int)
	clients  map[*eventClient]bool
	mu       sync.Mutex
	publish  chan Notice
	register chan *eventClient
	leave    chan *eventClient
	done     chan struct{}
}

type eventClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	ip   string
}

// NewHub creates a hub. onCount, when set, observes the subscriber count.
func NewHub(logger *slog.Logger, onCount func(int)) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:   logger.With("component", "events"),
		onCount:  onCount,
		clients:  make(map[*eventClient]bool),
		publish:  make(chan Notice, 256),
		register: make(chan *eventClient),
		leave:    make(chan *eventClient),
		done:     make(chan struct{}),
	}
}

// Run dispatches until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("subscriber joined", "remote", c.ip, "subscribers", n)
			h.count(n)

		case c := <-h.leave:
			h.drop(c)

		case n := <-h.publish:
			h.broadcast(n)

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.count(0)
			return
		}
	}
}

func (h *Hub) count(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

func (h *Hub) drop(c *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("subscriber left", "remote", c.ip, "subscribers", n)
		h.count(n)
	}
}

func (h *Hub) broadcast(n Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("marshal notice", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow subscriber.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Publish queues a notice. It never blocks; notices are dropped when
// the queue is full or the hub has stopped.
func (h *Hub) Publish(kind, message string) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.publish <- Notice{Kind: kind, Message: message, Time: time.Now()}:
	default:
		h.logger.Warn("event queue full, dropping notice", "message", message)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}

	c := &eventClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, eventSendBuffer),
		ip:   r.RemoteAddr,
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only keeps the read deadline alive; subscribers never send.
func (c *eventClient) readPump() {
	defer func() {
		select {
		case c.hub.leave <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(eventReadWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(eventReadWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("subscriber read error", "error", err)
			}
			return
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(eventPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
