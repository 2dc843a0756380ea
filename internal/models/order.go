// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CustomerInfo is the contact and shipping address captured at checkout.
type CustomerInfo struct {
	Email     string `json:"email" gorm:"size:255;not null"`
	FirstName string `json:"first_name" gorm:"size:100;not null"`
	LastName  string `json:"last_name" gorm:"size:100;not null"`
	Phone     string `json:"phone" gorm:"size:20"`
	Address   string `json:"address" gorm:"size:255;not null"`
	City      string `json:"city" gorm:"size:100;not null"`
	State     string `json:"state" gorm:"size:100"`
	Zip       string `json:"zip" gorm:"size:20;not null"`
	Country   string `json:"country" gorm:"size:100;default:'US'"`
}

// StatusChange is one entry in an order's status history.
type StatusChange struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

// StatusHistory is an append-only log stored as jsonb.
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, h)
}

// OrderItem snapshots the product at purchase time; later product edits
// do not rewrite past orders.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"size:100"`
	Quantity  int       `json:"quantity" gorm:"not null;check:quantity >= 1"`
	Price     float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	Size      string    `json:"size" gorm:"size:20"`
	Color     string    `json:"color" gorm:"size:50"`
	Image     string    `json:"image" gorm:"size:500"`

	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type Order struct {
	BaseModel
	UserID       *uuid.UUID   `json:"user_id" gorm:"type:uuid;index"` // nil for guest checkout
	CustomerInfo CustomerInfo `json:"customer_info" gorm:"embedded;embeddedPrefix:customer_"`
	Items        []OrderItem  `json:"items" gorm:"foreignKey:OrderID"`

	// Pricing
	Subtotal     float64 `json:"subtotal" gorm:"type:decimal(10,2)"`
	ShippingCost float64 `json:"shipping_cost" gorm:"type:decimal(10,2);default:0"`
	Tax          float64 `json:"tax" gorm:"type:decimal(10,2);default:0"`
	TotalAmount  float64 `json:"total_amount" gorm:"type:decimal(10,2);not null"`

	// Payment
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);default:'credit_card'"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'pending';index"`
	TransactionID string        `json:"transaction_id" gorm:"size:255"`
	PaymentDate   *time.Time    `json:"payment_date"`

	// Shipping & tracking
	ShippingMethod    ShippingMethod `json:"shipping_method" gorm:"type:varchar(20);default:'standard'"`
	TrackingNumber    string         `json:"tracking_number" gorm:"size:100"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery"`
	ShippingDate      *time.Time     `json:"shipping_date"`

	// Status
	Status        OrderStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	StatusHistory StatusHistory `json:"status_history" gorm:"type:jsonb"`

	// Notes
	Notes      string `json:"notes" gorm:"type:text"`
	AdminNotes string `json:"admin_notes" gorm:"type:text"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
