// internal/events/emitter.go
package events

import (
	"github.com/sirupsen/logrus"

	"github.com/urbanthreads/storefront-backend/internal/models"
)

// Broadcaster is the transport the emitter fans events out through.
// The realtime hub implements it; tests substitute a recording fake.
type Broadcaster interface {
	BroadcastToAll(event string, payload interface{})
	BroadcastToAdmin(event string, payload interface{})
}

// Emitter decouples state-mutating services from real-time delivery.
// Delivery is best-effort: no confirmation, no persistence, no replay for
// clients that were disconnected at emit time. Emissions run synchronously
// in the order the caller issues them.
type Emitter struct {
	transport Broadcaster
}

func NewEmitter(transport Broadcaster) *Emitter {
	return &Emitter{transport: transport}
}

// EmitToAll delivers the payload to every connected client. A nil emitter
// or nil transport is a silent no-op.
func (e *Emitter) EmitToAll(event string, payload interface{}) {
	if e == nil || e.transport == nil {
		return
	}
	e.transport.BroadcastToAll(event, payload)
	logrus.WithField("event", event).Debug("Emitted to all clients")
}

// EmitToAdmin delivers the payload only to clients in the admin group.
func (e *Emitter) EmitToAdmin(event string, payload interface{}) {
	if e == nil || e.transport == nil {
		return
	}
	e.transport.BroadcastToAdmin(event, payload)
	logrus.WithField("event", event).Debug("Emitted to admin clients")
}

// Product event helpers

func (e *Emitter) EmitProductCreated(product *models.Product) {
	e.EmitToAdmin(EventProductCreated, product)
}

func (e *Emitter) EmitProductUpdated(product *models.Product) {
	e.EmitToAll(EventProductUpdated, product)
}

func (e *Emitter) EmitProductDeleted(productID string) {
	e.EmitToAdmin(EventProductDeleted, ProductDeletedPayload{ProductID: productID})
}

func (e *Emitter) EmitStockUpdated(productID string, stock int) {
	e.EmitToAll(EventProductStockUpdated, StockUpdatedPayload{
		ProductID: productID,
		Stock:     stock,
	})
}

func (e *Emitter) EmitLowStock(product *models.Product) {
	e.EmitToAdmin(EventProductLowStock, LowStockPayload{
		ProductID: product.ID.String(),
		Name:      product.Name,
		Stock:     product.Stock,
	})
}

// Order event helpers

func (e *Emitter) EmitOrderCreated(order *models.Order) {
	e.EmitToAdmin(EventOrderCreated, order)
}

func (e *Emitter) EmitOrderStatusUpdated(orderID string, status models.OrderStatus, order *models.Order) {
	payload := OrderStatusUpdatedPayload{
		OrderID: orderID,
		Status:  string(status),
	}
	if order != nil {
		payload.Order = order
	}
	e.EmitToAll(EventOrderStatusUpdated, payload)
}
