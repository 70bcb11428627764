// Package hub fans telemetry out to websocket observers.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"transit_tracker/internal/models"
)

const (
	// TypeTelemetry tags vehicle updates on the push channel.
	TypeTelemetry = "telemetry"

	broadcastBuffer = 256
	clientBuffer    = 64
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
)

// Envelope is one push message: the full vehicle record plus its resolved route.
type Envelope struct {
	Type string `json:"type"`
	models.Vehicle
	Route string `json:"route,omitempty"`
}

// NewEnvelope wraps a vehicle record as a telemetry message.
func NewEnvelope(v models.Vehicle, route string) Envelope {
	return Envelope{Type: TypeTelemetry, Vehicle: v, Route: route}
}

// SnapshotFunc returns the messages a new observer receives on connect.
type SnapshotFunc func() []Envelope

// Metrics is the subset of the collector the hub reports to.
type Metrics interface {
	SetClients(n int)
	ClientDropped()
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	// seen holds the LastSeen each vehicle had in the snapshot; queued
	// updates at or before it are skipped. Read-only after registration.
	seen map[string]time.Time
}

// message is a queued broadcast.
type message struct {
	vehicleID string
	lastSeen  time.Time
	data      []byte
}

// Hub tracks observers and broadcasts to them without blocking publishers.
type Hub struct {
	upgrader  websocket.Upgrader
	broadcast chan message
	snapshot  SnapshotFunc
	metrics   Metrics

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func New(snapshot SnapshotFunc, m Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		broadcast: make(chan message, broadcastBuffer),
		snapshot:  snapshot,
		metrics:   m,
		clients:   make(map[*client]struct{}),
	}
}

// Run delivers queued broadcasts until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Publish queues env for every observer. It never blocks.
func (h *Hub) Publish(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logrus.WithError(err).WithField("vehicle_id", env.VehicleID).Error("hub: failed to encode envelope")
		return
	}
	select {
	case h.broadcast <- message{vehicleID: env.VehicleID, lastSeen: env.LastSeen, data: data}:
	default:
		logrus.WithField("vehicle_id", env.VehicleID).Warn("hub: broadcast queue full, dropping update")
		if h.metrics != nil {
			h.metrics.ClientDropped()
		}
	}
}

// ClientCount reports connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request, sends the current snapshot and streams
// updates until the observer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("hub: websocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientBuffer)}
	snapshot := h.register(c)

	for _, env := range snapshot {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(env); err != nil {
			logrus.WithError(err).WithField("client_id", c.id).Warn("hub: snapshot write failed")
			h.unregister(c)
			conn.Close()
			return
		}
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) fanOut(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if seen, ok := c.seen[msg.vehicleID]; ok && !msg.lastSeen.After(seen) {
			continue
		}
		select {
		case c.send <- msg.data:
		default:
			if h.metrics != nil {
				h.metrics.ClientDropped()
			}
			logrus.WithField("client_id", c.id).Debug("hub: observer buffer full, skipping message")
		}
	}
}

// readPump drains inbound frames so pongs and close frames are processed.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("client_id", c.id).Warn("hub: observer read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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

// register takes the snapshot and adds c in one step, so fan-out cannot
// slip a message in between. It returns the snapshot to send.
func (h *Hub) register(c *client) []Envelope {
	h.mu.Lock()
	var snapshot []Envelope
	if h.snapshot != nil {
		snapshot = h.snapshot()
	}
	c.seen = make(map[string]time.Time, len(snapshot))
	for _, env := range snapshot {
		c.seen[env.VehicleID] = env.LastSeen
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetClients(n)
	}
	logrus.WithFields(logrus.Fields{"client_id": c.id, "clients": n}).Info("hub: observer connected")
	return snapshot
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetClients(n)
	}
	logrus.WithFields(logrus.Fields{"client_id": c.id, "clients": n}).Info("hub: observer disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	if h.metrics != nil {
		h.metrics.SetClients(0)
	}
}
