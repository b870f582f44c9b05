package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wakelight/internal/color"
	"wakelight/internal/status"
	"wakelight/internal/timeline"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	// Per-client outbound queue. A client that falls this far behind the
	// paint cadence is evicted rather than allowed to stall the hub.
	sendBuf = 16

	broadcastBuf = 64
)

// envelope is the wire format for websocket frames.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// LampUpdate is the data payload for "lamp" frames: what the lamp and
// display are showing right now.
type LampUpdate struct {
	Color   string  `json:"color"`
	White   uint8   `json:"white"`
	Phase   string  `json:"phase"`
	Display float64 `json:"display"`
}

// hub tracks connected websocket clients and fans broadcasts out to them.
// Each client gets its own write pump so one slow client cannot block the
// others.
type hub struct {
	log *slog.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(log *slog.Logger) *hub {
	return &hub{
		log:        log,
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client, 8),
		unregister: make(chan *client, 8),
		clients:    make(map[*client]struct{}),
	}
}

// run processes hub events until ctx is canceled. It disconnects all
// clients on shutdown.
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws client connected", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "disconnect")

		case msg := <-h.broadcast:
			// Collect slow clients first; removing them mutates the map.
			var slow []*client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow client")
			}
		}
	}
}

func (h *hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			c.conn.Close()
		}
		close(c.send)
		delete(h.clients, c)
	}
}

// removeClient closes a client's send channel exactly once: only the
// goroutine that finds it still in the map does the close.
func (h *hub) removeClient(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			c.conn.Close()
		}
		close(c.send)
		h.log.Debug("ws client removed", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

// broadcastBytes enqueues a serialized frame for fanout. It never blocks;
// if the hub queue is full the frame is dropped.
func (h *hub) broadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("ws broadcast queue full, dropping frame", "bytes", len(msg))
	}
}

func (h *hub) broadcastJSON(typ string, data any) {
	now := time.Now().UTC()
	msg, err := json.Marshal(envelope{Type: typ, Ts: &now, Data: data})
	if err != nil {
		h.log.Warn("ws frame marshal failed", "type", typ, "error", err)
		return
	}
	h.broadcastBytes(msg)
}

// client is one websocket connection with a buffered outbound queue.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	log        *slog.Logger
}

// writePump writes queued frames to the websocket, pinging on an interval
// to keep the connection alive. It exits on write error or when send is
// closed by the hub.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub is disconnecting us.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.Debug("ws write failed", "remote_addr", c.remoteAddr, "error", err)
				}
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

// readPump reads and discards incoming messages to detect disconnects and
// service control frames. It exits on read error, then unregisters the
// client.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.hub.unregister <- c
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	// The page and the feed are served from the same origin, but the daemon
	// sits on a LAN where requests also arrive by bare IP.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection, registers the client, and sends the
// current status as the first frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:        s.hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: r.RemoteAddr,
		log:        s.log,
	}

	// Queue the current status before the hub can see the client. The
	// send channel is fresh, so this cannot block, and no broadcast can
	// land ahead of it.
	now := time.Now().UTC()
	init, err := json.Marshal(envelope{
		Type: "state",
		Ts:   &now,
		Data: json.RawMessage(status.FormatJSON(s.tracker.Snapshot())),
	})
	if err != nil {
		conn.Close()
		return
	}
	c.send <- init

	s.hub.register <- c

	// The pumps must outlive the handler: net/http cancels r.Context()
	// when the handler returns, which would tear the connection down.
	go c.writePump()
	go c.readPump()
}

// BroadcastLamp pushes the current lamp color, phase, and display level to
// all websocket clients. Safe to call on a nil Server.
func (s *Server) BroadcastLamp(c color.RGBW, phase timeline.Phase, display float64) {
	if s == nil {
		return
	}
	s.hub.broadcastJSON("lamp", LampUpdate{
		Color:   c.HexRGB(),
		White:   c.W,
		Phase:   string(phase),
		Display: math.Round(display*1000) / 1000,
	})
}

// BroadcastState pushes a full status snapshot to all websocket clients.
// Safe to call on a nil Server.
func (s *Server) BroadcastState() {
	if s == nil {
		return
	}
	s.hub.broadcastJSON("state", json.RawMessage(status.FormatJSON(s.tracker.Snapshot())))
}
