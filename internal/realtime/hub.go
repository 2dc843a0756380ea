// internal/realtime/hub.go
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Envelope is the frame every pushed event travels in.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub tracks connected clients and the admin subscriber group, and fans
// events out to them. Delivery is best-effort: a client whose send buffer
// is full is dropped rather than blocking the broadcast.
type Hub struct {
	mtx     sync.RWMutex
	clients map[*Client]bool
	admins  map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		admins:  make(map[*Client]bool),
	}
}

func (h *Hub) Register(client *Client) {
	h.mtx.Lock()
	h.clients[client] = true
	h.mtx.Unlock()

	logrus.WithField("connection_id", client.ID).Info("Client connected")
}

// Unregister removes the client from all groups and closes its send
// channel. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mtx.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		delete(h.admins, client)
		close(client.send)
	}
	h.mtx.Unlock()

	logrus.WithField("connection_id", client.ID).Info("Client disconnected")
}

// JoinAdmin adds the client to the admin group. Membership is derived from
// the verified role claim presented at connection time; a join request from
// a connection without an admin token is refused.
func (h *Hub) JoinAdmin(client *Client) bool {
	if !client.isAdmin {
		logrus.WithField("connection_id", client.ID).
			Warn("Refused admin group join from non-admin connection")
		return false
	}

	h.mtx.Lock()
	if _, ok := h.clients[client]; ok {
		h.admins[client] = true
	}
	h.mtx.Unlock()

	logrus.WithField("connection_id", client.ID).Info("Client joined admin group")
	return true
}

func (h *Hub) LeaveAdmin(client *Client) {
	h.mtx.Lock()
	delete(h.admins, client)
	h.mtx.Unlock()

	logrus.WithField("connection_id", client.ID).Info("Client left admin group")
}

// BroadcastToAll pushes an event to every connected client.
func (h *Hub) BroadcastToAll(event string, payload interface{}) {
	h.broadcast(event, payload, false)
}

// BroadcastToAdmin pushes an event to admin group members only.
func (h *Hub) BroadcastToAdmin(event string, payload interface{}) {
	h.broadcast(event, payload, true)
}

func (h *Hub) broadcast(event string, payload interface{}, adminOnly bool) {
	message, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode event")
		return
	}

	h.mtx.RLock()
	targets := h.clients
	if adminOnly {
		targets = h.admins
	}

	var stale []*Client
	for client := range targets {
		select {
		case client.send <- message:
		default:
			// Slow consumer, drop the connection instead of queueing.
			stale = append(stale, client)
		}
	}
	h.mtx.RUnlock()

	for _, client := range stale {
		h.Unregister(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.clients)
}

// AdminCount returns the number of admin group members.
func (h *Hub) AdminCount() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.admins)
}
