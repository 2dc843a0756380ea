// internal/realtime/client.go
package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/urbanthreads/storefront-backend/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum control message size allowed from peer.
	maxMessageSize = 512

	// Outbound buffer per connection.
	sendBufferSize = 64
)

// Client is one WebSocket connection. isAdmin reflects the verified role
// claim of the token presented at connect time, not anything the client
// said afterwards.
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	isAdmin bool
}

func NewClient(hub *Hub, conn *websocket.Conn, isAdmin bool) *Client {
	return &Client{
		ID:      uuid.New().String(),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		isAdmin: isAdmin,
	}
}

// ReadPump consumes control messages (join-admin / leave-admin) until the
// connection drops, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("connection_id", c.ID).Debug("WebSocket read error")
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			logrus.WithField("connection_id", c.ID).Debug("Ignoring malformed control message")
			continue
		}

		c.handleControlMessage(envelope.Event)
	}
}

func (c *Client) handleControlMessage(event string) {
	switch event {
	case events.MessageJoinAdmin:
		c.hub.JoinAdmin(c)
	case events.MessageLeaveAdmin:
		c.hub.LeaveAdmin(c)
	default:
		logrus.WithFields(logrus.Fields{
			"connection_id": c.ID,
			"event":         event,
		}).Debug("Ignoring unknown control message")
	}
}

// WritePump forwards queued events to the peer and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
