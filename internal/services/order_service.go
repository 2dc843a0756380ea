// internal/services/order_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/cache"
	"github.com/urbanthreads/storefront-backend/internal/database"
	"github.com/urbanthreads/storefront-backend/internal/events"
	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

const (
	taxRate               = 0.08
	freeShippingThreshold = 100.0
)

var shippingCosts = map[models.ShippingMethod]float64{
	models.ShippingMethodStandard:  5.99,
	models.ShippingMethodExpress:   14.99,
	models.ShippingMethodOvernight: 29.99,
}

type OrderService struct {
	db      *gorm.DB
	cache   *cache.RedisCache
	emitter *events.Emitter
}

func NewOrderService(db *gorm.DB, c *cache.RedisCache, emitter *events.Emitter) *OrderService {
	return &OrderService{
		db:      db,
		cache:   c,
		emitter: emitter,
	}
}

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Size      string `json:"size" validate:"omitempty,max=20"`
	Color     string `json:"color" validate:"omitempty,max=50"`
}

type CustomerInfoRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Address   string `json:"address" validate:"required,max=255"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"omitempty,max=100"`
	Zip       string `json:"zip" validate:"required,max=20"`
	Country   string `json:"country" validate:"omitempty,max=100"`
}

type CreateOrderRequest struct {
	Items          []OrderItemRequest  `json:"items" validate:"required,min=1,max=50,dive"`
	CustomerInfo   CustomerInfoRequest `json:"customer_info" validate:"required"`
	PaymentMethod  string              `json:"payment_method" validate:"omitempty,oneof=credit_card paypal stripe"`
	ShippingMethod string              `json:"shipping_method" validate:"omitempty,oneof=standard express overnight"`
	Notes          string              `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled refunded"`
	TrackingNumber string `json:"tracking_number" validate:"omitempty,max=100"`
	Note           string `json:"note" validate:"omitempty,max=500"`
}

type OrderFilters struct {
	UserID *uuid.UUID
	Status string
}

// stockEvent is a stock change staged during the checkout transaction and
// emitted only after a successful commit.
type stockEvent struct {
	productID   string
	productName string
	productSlug string
	newStock    int
}

// CreateOrder decrements stock and persists the order in a single
// transaction. A failure anywhere rolls everything back and emits nothing.
func (s *OrderService) CreateOrder(ctx context.Context, userID *uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	shippingMethod := models.ShippingMethod(req.ShippingMethod)
	if shippingMethod == "" {
		shippingMethod = models.ShippingMethodStandard
	}
	paymentMethod := models.PaymentMethod(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCreditCard
	}

	country := req.CustomerInfo.Country
	if country == "" {
		country = "US"
	}

	order := &models.Order{
		UserID: userID,
		CustomerInfo: models.CustomerInfo{
			Email:     req.CustomerInfo.Email,
			FirstName: req.CustomerInfo.FirstName,
			LastName:  req.CustomerInfo.LastName,
			Phone:     req.CustomerInfo.Phone,
			Address:   req.CustomerInfo.Address,
			City:      req.CustomerInfo.City,
			State:     req.CustomerInfo.State,
			Zip:       req.CustomerInfo.Zip,
			Country:   country,
		},
		PaymentMethod:  paymentMethod,
		ShippingMethod: shippingMethod,
		Status:         models.OrderStatusPending,
		Notes:          req.Notes,
		StatusHistory: models.StatusHistory{
			{Status: models.OrderStatusPending, Timestamp: time.Now(), Note: "Order placed"},
		},
	}

	var staged []stockEvent

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var subtotal float64

		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				return fmt.Errorf("invalid product id '%s'", item.ProductID)
			}

			var product models.Product
			if err := tx.First(&product, "id = ?", productID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return fmt.Errorf("product not found: %s", item.ProductID)
				}
				return fmt.Errorf("failed to load product: %w", err)
			}

			// Atomic conditional decrement. When the quantity exceeds the
			// remaining stock the guard fails and stock is clamped to zero.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", productID, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to update stock: %w", res.Error)
			}

			newStock := 0
			if res.RowsAffected == 0 {
				if err := tx.Model(&models.Product{}).
					Where("id = ?", productID).
					UpdateColumn("stock", 0).Error; err != nil {
					return fmt.Errorf("failed to update stock: %w", err)
				}
			} else {
				// Re-read the row so the emitted value matches what was
				// actually stored, not the pre-update snapshot.
				var updated models.Product
				if err := tx.Select("stock").First(&updated, "id = ?", productID).Error; err != nil {
					return fmt.Errorf("failed to read stock: %w", err)
				}
				newStock = updated.Stock
			}

			staged = append(staged, stockEvent{
				productID:   productID.String(),
				productName: product.Name,
				productSlug: product.Slug,
				newStock:    newStock,
			})

			image := ""
			if len(product.Images) > 0 {
				image = product.Images[0]
			}

			order.Items = append(order.Items, models.OrderItem{
				ProductID: productID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				Price:     product.Price,
				Size:      item.Size,
				Color:     item.Color,
				Image:     image,
			})

			subtotal += product.Price * float64(item.Quantity)
		}

		shippingCost := shippingCosts[shippingMethod]
		if shippingMethod == models.ShippingMethodStandard && subtotal >= freeShippingThreshold {
			shippingCost = 0
		}

		order.Subtotal = subtotal
		order.ShippingCost = shippingCost
		order.Tax = subtotal * taxRate
		order.TotalAmount = subtotal + shippingCost + order.Tax

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stock changed under the products, drop any stale cache entries.
	s.invalidateProducts(ctx, staged)

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.TotalAmount,
		"items":    len(order.Items),
	}).Info("Order created")

	for _, ev := range staged {
		s.emitter.EmitStockUpdated(ev.productID, ev.newStock)
		if ev.newStock <= events.LowStockThreshold {
			s.emitter.EmitLowStock(&models.Product{
				BaseModel: models.BaseModel{ID: uuid.MustParse(ev.productID)},
				Name:      ev.productName,
				Stock:     ev.newStock,
			})
		}
	}
	s.emitter.EmitOrderCreated(order)

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, params utils.PaginationParams, filters OrderFilters) (*utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	query = query.Preload("Items")
	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "total_amount", "status"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

// UpdateOrderStatus records the change in the order's status history and
// pushes the new status to connected clients.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req *UpdateOrderStatusRequest, adminEmail string) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	newStatus := models.OrderStatus(req.Status)
	now := time.Now()

	note := req.Note
	if note == "" && adminEmail != "" {
		note = "Updated by " + adminEmail
	}

	order.Status = newStatus
	order.StatusHistory = append(order.StatusHistory, models.StatusChange{
		Status:    newStatus,
		Timestamp: now,
		Note:      note,
	})

	if req.TrackingNumber != "" {
		order.TrackingNumber = req.TrackingNumber
	}
	if newStatus == models.OrderStatusShipped && order.ShippingDate == nil {
		order.ShippingDate = &now
	}
	if newStatus == models.OrderStatusRefunded {
		order.PaymentStatus = models.PaymentStatusRefunded
	}

	if err := s.db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
		"admin":    adminEmail,
	}).Info("Order status updated")

	s.emitter.EmitOrderStatusUpdated(order.ID.String(), order.Status, &order)

	return &order, nil
}

func (s *OrderService) invalidateProducts(ctx context.Context, staged []stockEvent) {
	if s.cache == nil {
		return
	}
	for _, ev := range staged {
		for _, key := range []string{productCacheKey(ev.productID), productSlugCacheKey(ev.productSlug)} {
			if err := s.cache.Delete(ctx, key); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("Failed to invalidate product cache")
			}
		}
	}

	// Featured listings carry stock values too.
	if err := s.cache.DeleteByPattern(ctx, featuredCachePattern); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate featured products cache")
	}
}
