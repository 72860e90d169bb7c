// Package ws pushes a venue's live events, alerts and notifications to browsers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/metrics"
	notifsvc "venue-pos/internal/microservices/notificator/service"
	"venue-pos/internal/realtime"
	"venue-pos/internal/workspace"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
	readLimit  = 4 * 1024
)

// Frame kinds.
const (
	KindEvent        = "event"
	KindAlert        = "alert"
	KindNotification = "notification"
)

// Frame is one JSON message sent to the browser.
type Frame struct {
	Kind    string `json:"kind"`
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload"`
}

// Workspaces is the part of workspace.Manager the hub needs.
type Workspaces interface {
	Acquire(ctx context.Context, venueID string) (*workspace.Workspace, error)
	Release(w *workspace.Workspace)
}

type Options struct {
	// CheckOrigin defaults to same-origin only.
	CheckOrigin func(r *http.Request) bool
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

type Hub struct {
	spaces   Workspaces
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	log      *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(spaces Workspaces, opts Options) *Hub {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Hub{
		spaces: spaces,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		metrics: opts.Metrics,
		log:     lg,
		clients: make(map[*client]struct{}),
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
	dropped   atomic.Int64
}

// ServeWS upgrades the request and streams the workspace of venueID until the
// browser goes away. Use domain.AllVenues for the cross-venue notification feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, venueID string) {
	space, err := h.spaces.Acquire(r.Context(), venueID)
	if err != nil {
		code, _ := httpx.StatusOf(err)
		http.Error(w, err.Error(), code)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.spaces.Release(space)
		h.log.Warn("ws_upgrade_failed", map[string]any{"venue_id": venueID, "error": err.Error()})
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	offs := h.subscribe(c, space)
	h.register(c)
	h.log.Info("ws_connected", map[string]any{"venue_id": venueID, "remote": r.RemoteAddr})

	go c.writePump()
	c.readPump()

	for _, off := range offs {
		off()
	}
	h.unregister(c)
	h.spaces.Release(space)
	h.log.Info("ws_disconnected", map[string]any{"venue_id": venueID, "dropped_frames": c.dropped.Load()})
}

func (h *Hub) subscribe(c *client, space *workspace.Workspace) []func() {
	offs := []func(){
		space.Coordinator.On(domain.EventAll, func(_ context.Context, ev realtime.Event) error {
			c.push(Frame{Kind: KindEvent, Event: ev.Name, Payload: ev})
			return nil
		}),
		space.OnAlert(func(a realtime.Alert) {
			c.push(Frame{Kind: KindAlert, Event: a.Sound, Payload: a})
		}),
	}
	if space.Notifications != nil {
		offs = append(offs, space.Notifications.OnNotify(func(n notifsvc.Notification) {
			c.push(Frame{Kind: KindNotification, Event: string(n.Type), Payload: n})
		}))
	}
	return offs
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.WSClientConnected()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.metrics.WSClientDisconnected()
}

// Clients is the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every browser.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// push never blocks: a full buffer drops the frame.
func (c *client) push(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		c.hub.log.Error("ws_encode_failed", err, map[string]any{"kind": f.Kind})
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		c.dropped.Add(1)
	}
}

// close stops the write pump, which sends a close frame and closes the socket.
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump only serves control frames; the browser sends nothing else.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("ws_read_failed", map[string]any{"error": err.Error()})
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
