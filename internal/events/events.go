// internal/events/events.go
package events

// Event names pushed over the real-time channel. These are the wire
// contract between the backend and connected storefront/admin clients.
const (
	// Product events
	EventProductCreated      = "product:created"
	EventProductUpdated      = "product:updated"
	EventProductDeleted      = "product:deleted"
	EventProductStockUpdated = "product:stock:updated"
	EventProductLowStock     = "product:low:stock"

	// Order events
	EventOrderCreated       = "order:created"
	EventOrderStatusUpdated = "order:status:updated"

	// Client -> server control messages
	MessageJoinAdmin  = "join-admin"
	MessageLeaveAdmin = "leave-admin"
)

// LowStockThreshold is the stock level at or below which a low-stock
// alert is pushed to admin dashboards.
const LowStockThreshold = 10

// Payload keys follow the original storefront client contract (camelCase),
// independent of the REST API's snake_case.

type StockUpdatedPayload struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

type LowStockPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

type ProductDeletedPayload struct {
	ProductID string `json:"productId"`
}

type OrderStatusUpdatedPayload struct {
	OrderID string      `json:"orderId"`
	Status  string      `json:"status"`
	Order   interface{} `json:"order,omitempty"`
}
