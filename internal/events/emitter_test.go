// internal/events/emitter_test.go
package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/urbanthreads/storefront-backend/internal/models"
)

type recordedEvent struct {
	Event     string
	Payload   interface{}
	AdminOnly bool
}

type recordingBroadcaster struct {
	events []recordedEvent
}

func (r *recordingBroadcaster) BroadcastToAll(event string, payload interface{}) {
	r.events = append(r.events, recordedEvent{Event: event, Payload: payload})
}

func (r *recordingBroadcaster) BroadcastToAdmin(event string, payload interface{}) {
	r.events = append(r.events, recordedEvent{Event: event, Payload: payload, AdminOnly: true})
}

func TestNilEmitterIsNoOp(t *testing.T) {
	var emitter *Emitter

	assert.NotPanics(t, func() {
		emitter.EmitToAll(EventProductUpdated, nil)
		emitter.EmitToAdmin(EventOrderCreated, nil)
		emitter.EmitStockUpdated(uuid.NewString(), 5)
	})
}

func TestNilTransportIsNoOp(t *testing.T) {
	emitter := NewEmitter(nil)

	assert.NotPanics(t, func() {
		emitter.EmitToAll(EventProductUpdated, nil)
		emitter.EmitProductDeleted(uuid.NewString())
	})
}

func TestEmitRouting(t *testing.T) {
	transport := &recordingBroadcaster{}
	emitter := NewEmitter(transport)

	product := &models.Product{Name: "Canvas Jacket", Stock: 3}
	product.ID = uuid.New()

	emitter.EmitProductCreated(product)
	emitter.EmitProductUpdated(product)
	emitter.EmitProductDeleted(product.ID.String())
	emitter.EmitStockUpdated(product.ID.String(), 7)
	emitter.EmitLowStock(product)
	emitter.EmitOrderCreated(&models.Order{})
	emitter.EmitOrderStatusUpdated(uuid.NewString(), models.OrderStatusShipped, nil)

	assert.Len(t, transport.events, 7)

	// Admin-only: created, deleted, low stock, order created
	assert.True(t, transport.events[0].AdminOnly)
	assert.False(t, transport.events[1].AdminOnly)
	assert.True(t, transport.events[2].AdminOnly)
	assert.False(t, transport.events[3].AdminOnly)
	assert.True(t, transport.events[4].AdminOnly)
	assert.True(t, transport.events[5].AdminOnly)
	assert.False(t, transport.events[6].AdminOnly)

	assert.Equal(t, EventProductCreated, transport.events[0].Event)
	assert.Equal(t, EventProductUpdated, transport.events[1].Event)
	assert.Equal(t, EventProductDeleted, transport.events[2].Event)
	assert.Equal(t, EventProductStockUpdated, transport.events[3].Event)
	assert.Equal(t, EventProductLowStock, transport.events[4].Event)
	assert.Equal(t, EventOrderCreated, transport.events[5].Event)
	assert.Equal(t, EventOrderStatusUpdated, transport.events[6].Event)
}

func TestStockPayloadShape(t *testing.T) {
	transport := &recordingBroadcaster{}
	emitter := NewEmitter(transport)

	id := uuid.NewString()
	emitter.EmitStockUpdated(id, 4)

	payload, ok := transport.events[0].Payload.(StockUpdatedPayload)
	assert.True(t, ok)
	assert.Equal(t, id, payload.ProductID)
	assert.Equal(t, 4, payload.Stock)
}

func TestEmissionOrderIsPreserved(t *testing.T) {
	transport := &recordingBroadcaster{}
	emitter := NewEmitter(transport)

	first := uuid.NewString()
	second := uuid.NewString()

	emitter.EmitStockUpdated(first, 9)
	emitter.EmitStockUpdated(second, 0)
	emitter.EmitOrderCreated(&models.Order{})

	assert.Equal(t, EventProductStockUpdated, transport.events[0].Event)
	assert.Equal(t, first, transport.events[0].Payload.(StockUpdatedPayload).ProductID)
	assert.Equal(t, second, transport.events[1].Payload.(StockUpdatedPayload).ProductID)
	assert.Equal(t, EventOrderCreated, transport.events[2].Event)
}

func TestControlMessageWireNames(t *testing.T) {
	// Frontend clients send these exact strings.
	assert.Equal(t, "join-admin", MessageJoinAdmin)
	assert.Equal(t, "leave-admin", MessageLeaveAdmin)
}
