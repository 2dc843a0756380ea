// internal/realtime/hub_test.go
package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestClient(hub *Hub, isAdmin bool) *Client {
	return &Client{
		ID:      uuid.New().String(),
		hub:     hub,
		send:    make(chan []byte, sendBufferSize),
		isAdmin: isAdmin,
	}
}

func drain(c *Client) []Envelope {
	var received []Envelope
	for {
		select {
		case msg := <-c.send:
			var env Envelope
			if err := json.Unmarshal(msg, &env); err == nil {
				received = append(received, env)
			}
		default:
			return received
		}
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, false)

	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())

	// Unregister is idempotent
	assert.NotPanics(t, func() { hub.Unregister(client) })
}

func TestBroadcastToAllReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, false)
	b := newTestClient(hub, true)
	hub.Register(a)
	hub.Register(b)

	hub.BroadcastToAll("product:stock:updated", map[string]interface{}{"stock": 3})

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestAdminBroadcastSkipsNonMembers(t *testing.T) {
	hub := NewHub()
	shopper := newTestClient(hub, false)
	admin := newTestClient(hub, true)
	hub.Register(shopper)
	hub.Register(admin)

	assert.True(t, hub.JoinAdmin(admin))

	hub.BroadcastToAdmin("order:created", map[string]interface{}{"orderId": "x"})

	assert.Empty(t, drain(shopper))

	received := drain(admin)
	assert.Len(t, received, 1)
	assert.Equal(t, "order:created", received[0].Event)
}

func TestJoinAdminRefusedForNonAdminConnection(t *testing.T) {
	hub := NewHub()
	shopper := newTestClient(hub, false)
	hub.Register(shopper)

	assert.False(t, hub.JoinAdmin(shopper))
	assert.Equal(t, 0, hub.AdminCount())

	hub.BroadcastToAdmin("product:low:stock", nil)
	assert.Empty(t, drain(shopper))
}

func TestLeaveAdminStopsAdminDelivery(t *testing.T) {
	hub := NewHub()
	admin := newTestClient(hub, true)
	hub.Register(admin)

	hub.JoinAdmin(admin)
	assert.Equal(t, 1, hub.AdminCount())

	hub.LeaveAdmin(admin)
	assert.Equal(t, 0, hub.AdminCount())

	hub.BroadcastToAdmin("order:created", nil)
	assert.Empty(t, drain(admin))

	// Still receives public events
	hub.BroadcastToAll("product:updated", nil)
	assert.Len(t, drain(admin), 1)
}

func TestUnregisterRemovesFromAdminGroup(t *testing.T) {
	hub := NewHub()
	admin := newTestClient(hub, true)
	hub.Register(admin)
	hub.JoinAdmin(admin)

	hub.Unregister(admin)
	assert.Equal(t, 0, hub.AdminCount())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestSlowConsumerIsDropped(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, false)
	hub.Register(slow)

	// Fill the buffer, the next broadcast cannot queue and drops the client.
	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastToAll("product:updated", nil)
	}
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastToAll("product:updated", nil)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestEnvelopeEncoding(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, false)
	hub.Register(client)

	hub.BroadcastToAll("product:stock:updated", map[string]interface{}{
		"productId": "abc",
		"stock":     float64(2),
	})

	received := drain(client)
	assert.Len(t, received, 1)
	assert.Equal(t, "product:stock:updated", received[0].Event)

	data, ok := received[0].Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "abc", data["productId"])
	assert.Equal(t, float64(2), data["stock"])
}
