// internal/domain/order/entity.go
package order

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order represents a finalized order. Totals and the shipping address are
// immutable snapshots taken at finalization time; only the status fields
// change afterwards.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	Email         string        `gorm:"not null;size:255" json:"email"`
	Status        OrderStatus   `gorm:"not null;default:'confirmed'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'paid'" json:"payment_status"`

	Subtotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Shipping decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"shipping"`
	Tax      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	Total    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`

	// Address copied, not referenced: later edits to the user's address
	// book never alter historical orders.
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	PaymentIntentID string `gorm:"not null;size:255" json:"payment_intent_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is the purchase-time snapshot of one cart line. UnitPrice is
// copied from the cart line at finalization and never re-read from the
// catalog, so later price changes cannot alter a paid order.
type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	ProductID  uint            `gorm:"not null;index" json:"product_id"`
	SKU        string          `gorm:"not null;size:100" json:"sku"`
	Name       string          `gorm:"not null;size:255" json:"name"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// Address represents a shipping address snapshot (embedded in Order)
type Address struct {
	FirstName  string `gorm:"size:100" json:"first_name" binding:"required"`
	LastName   string `gorm:"size:100" json:"last_name" binding:"required"`
	Email      string `gorm:"size:255" json:"email" binding:"required,email"`
	Phone      string `gorm:"size:20" json:"phone" binding:"required"`
	Street     string `gorm:"size:255" json:"street" binding:"required"`
	City       string `gorm:"size:100" json:"city" binding:"required"`
	State      string `gorm:"size:100" json:"state" binding:"required"`
	PostalCode string `gorm:"size:20" json:"postal_code" binding:"required"`
	Country    string `gorm:"size:100" json:"country" binding:"required"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Validate checks that all address fields are present and the email parses
func (a *Address) Validate() error {
	fields := map[string]string{
		"first_name":  a.FirstName,
		"last_name":   a.LastName,
		"email":       a.Email,
		"phone":       a.Phone,
		"street":      a.Street,
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("shipping address field %q is required", name)
		}
	}

	if _, err := mail.ParseAddress(a.Email); err != nil {
		return fmt.Errorf("shipping address email %q is invalid", a.Email)
	}

	return nil
}

// CanBeCancelled checks if the order can still be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusConfirmed || o.Status == OrderStatusProcessing
}

// IsCompleted checks if the order reached a final fulfilled state
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusDelivered
}

// ValidStatusTransition reports whether an order may move between statuses
func ValidStatusTransition(from, to OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {OrderStatusCompleted, OrderStatusRefunded},
	}

	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}
