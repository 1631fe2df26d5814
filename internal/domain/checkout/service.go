// internal/domain/checkout/service.go
package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

// ErrCartEmpty is returned when checkout is attempted with no line items.
var ErrCartEmpty = errors.New("cart is empty")

// Service builds the pre-payment checkout view: the cart, its priced
// breakdown, and the publishable key the storefront needs to collect payment.
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cartService,
	}
}

// LineIssue describes why a cart line item cannot be checked out as-is
type LineIssue struct {
	ProductID uint   `json:"product_id"`
	Reason    string `json:"reason"`
}

// Summary represents the checkout page payload
type Summary struct {
	Cart                  *cart.CartResponse `json:"cart"`
	Totals                pricing.Totals     `json:"totals"`
	FreeShippingThreshold decimal.Decimal    `json:"free_shipping_threshold"`
	AmountToFreeShipping  decimal.Decimal    `json:"amount_to_free_shipping"`
	PublishableKey        string             `json:"publishable_key"`
	Issues                []LineIssue        `json:"issues,omitempty"`
}

// GetSummary builds the checkout summary for a user or guest cart. Totals are
// computed from the cart's price snapshots, so the amount shown here is the
// amount the payment is created for.
func (s *Service) GetSummary(userID *uint, sessionID string) (*Summary, error) {
	cartResponse, err := s.cartService.GetCart(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(cartResponse.Items) == 0 {
		return nil, ErrCartEmpty
	}

	totals := cartResponse.Totals.Pricing

	remaining := pricing.FreeShippingThreshold.Sub(totals.Subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &Summary{
		Cart:                  cartResponse,
		Totals:                totals,
		FreeShippingThreshold: pricing.FreeShippingThreshold,
		AmountToFreeShipping:  remaining,
		PublishableKey:        s.config.Stripe.PublishableKey,
		Issues:                s.lineIssues(cartResponse.Items),
	}, nil
}

// Validate checks that every line item can still be fulfilled. It is advisory:
// finalization re-checks under row locks, this exists so the storefront can
// surface problems before the customer pays.
func (s *Service) Validate(userID *uint, sessionID string) error {
	cartResponse, err := s.cartService.GetCart(userID, sessionID)
	if err != nil {
		return err
	}
	if len(cartResponse.Items) == 0 {
		return ErrCartEmpty
	}

	if issues := s.lineIssues(cartResponse.Items); len(issues) > 0 {
		return fmt.Errorf("cart has %d item(s) that cannot be checked out", len(issues))
	}
	return nil
}

func (s *Service) lineIssues(items []cart.CartItemResponse) []LineIssue {
	var issues []LineIssue
	for _, item := range items {
		var prod product.Product
		err := s.db.Where("id = ?", item.ProductID).First(&prod).Error
		if err != nil || !prod.IsActive {
			issues = append(issues, LineIssue{ProductID: item.ProductID, Reason: "no longer available"})
			continue
		}
		if !prod.HasStockFor(item.Quantity) {
			issues = append(issues, LineIssue{
				ProductID: item.ProductID,
				Reason:    fmt.Sprintf("only %d in stock", prod.Stock),
			})
		}
	}
	return issues
}
