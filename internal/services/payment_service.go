// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/config"
	"github.com/urbanthreads/storefront-backend/internal/events"
	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

type PaymentService struct {
	db      *gorm.DB
	cfg     config.PaymentConfig
	emitter *events.Emitter
}

func NewPaymentService(db *gorm.DB, cfg config.PaymentConfig, emitter *events.Emitter) *PaymentService {
	stripe.Key = cfg.StripeSecretKey

	return &PaymentService{
		db:      db,
		cfg:     cfg,
		emitter: emitter,
	}
}

type CreatePaymentIntentRequest struct {
	OrderID  string `json:"order_id" validate:"required,uuid"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	OrderID         string `json:"order_id" validate:"required,uuid"`
}

type RefundOrderRequest struct {
	OrderID string  `json:"order_id" validate:"required,uuid"`
	Amount  float64 `json:"amount" validate:"omitempty,gt=0"`
	Reason  string  `json:"reason" validate:"required,max=500"`
}

// CreatePaymentIntent opens a Stripe payment intent for a pending order.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id")
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.PaymentStatus == models.PaymentStatusCompleted {
		return nil, errors.New("order is already paid")
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(order.TotalAmount * 100)),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("order_id", order.ID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment reconciles the order's payment state with Stripe.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id")
	}

	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		now := time.Now()
		order.PaymentStatus = models.PaymentStatusCompleted
		order.PaymentDate = &now
		order.TransactionID = pi.ID
		if order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusProcessing
			order.StatusHistory = append(order.StatusHistory, models.StatusChange{
				Status:    models.OrderStatusProcessing,
				Timestamp: now,
				Note:      "Payment received",
			})
		}

	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		order.PaymentStatus = models.PaymentStatusPending

	default:
		order.PaymentStatus = models.PaymentStatusFailed
	}

	if err := s.db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"payment_status": order.PaymentStatus,
	}).Info("Payment confirmed")

	if order.PaymentStatus == models.PaymentStatusCompleted {
		s.emitter.EmitOrderStatusUpdated(order.ID.String(), order.Status, &order)
	}

	return &order, nil
}

// RefundOrder refunds a paid order through Stripe and marks it refunded.
func (s *PaymentService) RefundOrder(ctx context.Context, req *RefundOrderRequest, adminEmail string) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id")
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.PaymentStatus != models.PaymentStatusCompleted {
		return nil, errors.New("can only refund paid orders")
	}

	refundAmount := req.Amount
	if refundAmount <= 0 || refundAmount > order.TotalAmount {
		refundAmount = order.TotalAmount
	}

	if order.TransactionID != "" {
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(order.TransactionID),
			Amount:        stripe.Int64(int64(refundAmount * 100)),
			Reason:        stripe.String("requested_by_customer"),
		}
		if _, err := refund.New(params); err != nil {
			return nil, fmt.Errorf("failed to process refund: %w", err)
		}
	}

	now := time.Now()
	note := "Refunded: " + req.Reason
	if adminEmail != "" {
		note = fmt.Sprintf("Refunded by %s: %s", adminEmail, req.Reason)
	}

	order.Status = models.OrderStatusRefunded
	order.PaymentStatus = models.PaymentStatusRefunded
	order.StatusHistory = append(order.StatusHistory, models.StatusChange{
		Status:    models.OrderStatusRefunded,
		Timestamp: now,
		Note:      note,
	})

	if err := s.db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"amount":   refundAmount,
		"admin":    adminEmail,
	}).Info("Order refunded")

	s.emitter.EmitOrderStatusUpdated(order.ID.String(), order.Status, &order)

	return &order, nil
}
