// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCartEmpty is returned when finalization is attempted with no line items.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrPaymentNotConfirmed is returned when the payment reference has not
	// reached the succeeded state. It is always checked before any write.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")

	// ErrOrderCreationFailed is returned when the finalization transaction
	// fails after the payment check; the transaction is fully rolled back.
	ErrOrderCreationFailed = errors.New("order creation failed")

	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = errors.New("order not found")
)

const orderNumberAttempts = 3

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	gate      payment.Gate
	inventory *inventory.Service
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, gate payment.Gate) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		gate:      gate,
		inventory: inventory.NewService(db),
	}
}

// FinalizeOrderRequest represents the checkout submission
type FinalizeOrderRequest struct {
	ShippingAddress Address `json:"shipping_address" binding:"required"`
	PaymentIntentID string  `json:"payment_intent_id" binding:"required"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
}

// OrderListResponse represents orders with pagination
type OrderListResponse struct {
	Orders     []Order            `json:"orders"`
	Pagination product.Pagination `json:"pagination"`
}

// FinalizeOrder converts the user's cart and a confirmed payment into a
// durable order. The payment is verified before any write. The order row,
// its items, the stock decrements with their movement records, the status
// history, and the cart clear all happen in one transaction; a failure at
// any step leaves no partial state behind.
func (s *Service) FinalizeOrder(ctx context.Context, userID uint, req *FinalizeOrderRequest) (*Order, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	var cartItems []cart.CartItem
	if err := s.db.Where("user_id = ?", userID).Find(&cartItems).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}

	status, err := s.gate.Confirm(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("payment verification failed: %w", err)
	}
	if status != payment.StatusSucceeded {
		return nil, fmt.Errorf("%w: payment status is %s", ErrPaymentNotConfirmed, status)
	}

	// Totals come from the same line items the payment amount was quoted
	// from, never from fresh catalog reads.
	lines := make([]pricing.Line, len(cartItems))
	for i, item := range cartItems {
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	totals := pricing.Calculate(lines)

	// Lock products in ascending id order so concurrent finalizations
	// touching the same products cannot deadlock.
	sort.Slice(cartItems, func(i, j int) bool {
		return cartItems[i].ProductID < cartItems[j].ProductID
	})

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	products := make(map[uint]product.Product, len(cartItems))
	for _, item := range cartItems {
		var prod product.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", item.ProductID).
			First(&prod).Error
		if err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", product.ErrProductNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
		}

		if !prod.IsActive {
			tx.Rollback()
			return nil, fmt.Errorf("product %q is no longer available", prod.Name)
		}
		if !prod.HasStockFor(item.Quantity) {
			tx.Rollback()
			return nil, fmt.Errorf("%w: product %q has %d left, %d requested",
				product.ErrInsufficientStock, prod.Name, prod.Stock, item.Quantity)
		}
		products[item.ProductID] = prod
	}

	newOrder := Order{
		UserID:          userID,
		Email:           req.ShippingAddress.Email,
		Status:          OrderStatusConfirmed,
		PaymentStatus:   PaymentStatusPaid,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		ShippingAddress: req.ShippingAddress,
		PaymentIntentID: req.PaymentIntentID,
	}

	if err := s.insertOrderWithUniqueNumber(tx, &newOrder); err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, item := range cartItems {
		prod := products[item.ProductID]
		orderItem := OrderItem{
			OrderID:    newOrder.ID,
			ProductID:  item.ProductID,
			SKU:        prod.SKU,
			Name:       prod.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			TotalPrice: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%w: failed to create order item: %v", ErrOrderCreationFailed, err)
		}
		newOrder.Items = append(newOrder.Items, orderItem)

		result := tx.Model(&product.Product{}).
			Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
		if result.Error != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%w: failed to decrement stock: %v", ErrOrderCreationFailed, result.Error)
		}
		if result.RowsAffected == 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%w: product %q", product.ErrInsufficientStock, prod.Name)
		}

		if err := s.inventory.RecordMovement(tx, item.ProductID, &newOrder.ID, -item.Quantity, inventory.MovementReasonSale); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
		}
	}

	history := OrderStatusHistory{
		OrderID:   newOrder.ID,
		Status:    OrderStatusConfirmed,
		Comment:   "Order placed",
		CreatedBy: userID,
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: failed to create status history: %v", ErrOrderCreationFailed, err)
	}

	// Clearing the cart inside the transaction keeps the postcondition
	// atomic: either the order exists and the cart is empty, or neither.
	if err := tx.Where("user_id = ?", userID).Delete(&cart.CartItem{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: failed to clear cart: %v", ErrOrderCreationFailed, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%w: commit failed: %v", ErrOrderCreationFailed, err)
	}

	return &newOrder, nil
}

// insertOrderWithUniqueNumber inserts the order row, regenerating the order
// number and retrying when the unique index rejects a collision. The retry
// runs inside a savepoint so a rejected insert does not poison the
// surrounding transaction.
func (s *Service) insertOrderWithUniqueNumber(tx *gorm.DB, o *Order) error {
	for attempt := 1; ; attempt++ {
		o.OrderNumber = generateOrderNumber()

		if err := tx.SavePoint("order_insert").Error; err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
		}

		err := tx.Create(o).Error
		if err == nil {
			return nil
		}

		if !isUniqueViolation(err) || attempt >= orderNumberAttempts {
			return fmt.Errorf("%w: failed to create order: %v", ErrOrderCreationFailed, err)
		}

		if err := tx.RollbackTo("order_insert").Error; err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
		}
	}
}

// generateOrderNumber builds a human-readable, collision-resistant order
// number: date for operators, random suffix for uniqueness.
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{}).Preload("Items")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	query = query.Order(buildOrderClause(req.SortBy, req.SortOrder))

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	return &OrderListResponse{
		Orders: orders,
		Pagination: product.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(id uint) (*Order, error) {
	var o Order
	result := s.db.Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&o)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &o, nil
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var o Order
	result := s.db.Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&o)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &o, nil
}

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(userID uint, page, limit int) (*OrderListResponse, error) {
	return s.GetOrders(&OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
		SortBy: "created_at",
	})
}

// UpdateOrderStatus updates order status following the transition table
func (s *Service) UpdateOrderStatus(orderID uint, status OrderStatus, comment string, updatedBy uint) error {
	var o Order
	if err := s.db.First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to retrieve order: %w", err)
	}

	if !ValidStatusTransition(o.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", o.Status, status)
	}

	if err := s.db.Model(&o).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	history := OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedBy: updatedBy,
	}
	if err := s.db.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	return nil
}

// CancelOrder cancels an order and restores the stock it consumed, in a
// single transaction mirroring finalization.
func (s *Service) CancelOrder(orderID uint, reason string, cancelledBy uint) error {
	var o Order
	if err := s.db.First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to retrieve order: %w", err)
	}

	if !o.CanBeCancelled() {
		return fmt.Errorf("order cannot be cancelled in status %s", o.Status)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var items []OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to retrieve order items: %w", err)
	}

	for _, item := range items {
		result := tx.Model(&product.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
		if result.Error != nil {
			tx.Rollback()
			return fmt.Errorf("failed to restore stock: %w", result.Error)
		}

		if err := s.inventory.RecordMovement(tx, item.ProductID, &orderID, item.Quantity, inventory.MovementReasonCancelRestock); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Model(&o).Update("status", OrderStatusCancelled).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update order status: %w", err)
	}

	history := OrderStatusHistory{
		OrderID:   orderID,
		Status:    OrderStatusCancelled,
		Comment:   fmt.Sprintf("Order cancelled: %s", reason),
		CreatedBy: cancelledBy,
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create status history: %w", err)
	}

	return tx.Commit().Error
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"total":        true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
