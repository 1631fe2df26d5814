// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

// ErrItemNotFound is returned when a cart line item does not exist.
var ErrItemNotFound = errors.New("item not found in cart")

const (
	guestCartKeyPrefix = "cart:session:"
	guestCartTTL       = 24 * time.Hour
)

// Service handles cart business logic. User carts live in Postgres so they
// survive across sessions; guest carts live in Redis under the session id.
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// CartItemResponse represents a cart line item with product details
type CartItemResponse struct {
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Product   *product.Product `json:"product,omitempty"`
	AddedAt   time.Time        `json:"added_at"`
}

// CartResponse represents a shopping cart with items and totals
type CartResponse struct {
	SessionID string             `json:"session_id,omitempty"`
	UserID    *uint              `json:"user_id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Totals    CartTotals         `json:"totals"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// AddToCartRequest represents an add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents an update cart item request.
// A quantity of zero or below removes the item.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart retrieves the cart for a user or guest session
func (s *Service) GetCart(userID *uint, sessionID string) (*CartResponse, error) {
	var items []CartItemResponse
	updatedAt := time.Now().UTC()

	if userID != nil {
		var dbItems []CartItem
		if err := s.db.Where("user_id = ?", *userID).Find(&dbItems).Error; err != nil {
			return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
		}

		items = make([]CartItemResponse, len(dbItems))
		for i, item := range dbItems {
			items[i] = CartItemResponse{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
				AddedAt:   item.CreatedAt,
			}
			if item.UpdatedAt.After(updatedAt) {
				updatedAt = item.UpdatedAt
			}
		}
	} else {
		sessionCart, err := s.getGuestCart(sessionID)
		if err != nil {
			return nil, err
		}

		items = make([]CartItemResponse, len(sessionCart.Items))
		for i, item := range sessionCart.Items {
			items[i] = CartItemResponse{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
				AddedAt:   item.AddedAt,
			}
		}
		updatedAt = sessionCart.UpdatedAt
	}

	if err := s.loadProductDetails(items); err != nil {
		return nil, err
	}

	return &CartResponse{
		SessionID: sessionID,
		UserID:    userID,
		Items:     items,
		Totals:    calculateTotals(items),
		UpdatedAt: updatedAt,
	}, nil
}

// AddToCart adds a product to the cart, merging into an existing line item
// by summing quantities when the product is already present.
func (s *Service) AddToCart(userID *uint, sessionID string, req *AddToCartRequest) (*CartResponse, error) {
	var prod product.Product
	result := s.db.Where("id = ? AND is_active = ?", req.ProductID, true).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to look up product: %w", result.Error)
	}

	if !prod.HasStockFor(req.Quantity) {
		return nil, fmt.Errorf("%w: available %d", product.ErrInsufficientStock, prod.Stock)
	}

	if userID != nil {
		if err := s.addToUserCart(*userID, &prod, req.Quantity); err != nil {
			return nil, err
		}
	} else {
		if err := s.addToGuestCart(sessionID, &prod, req.Quantity); err != nil {
			return nil, err
		}
	}

	return s.GetCart(userID, sessionID)
}

// UpdateItemQuantity sets the quantity of a cart line item. A quantity of
// zero or below removes the item; there is no clamping to 1.
func (s *Service) UpdateItemQuantity(userID *uint, sessionID string, productID uint, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		return s.RemoveFromCart(userID, sessionID, productID)
	}

	var prod product.Product
	result := s.db.Where("id = ?", productID).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to look up product: %w", result.Error)
	}

	if !prod.HasStockFor(quantity) {
		return nil, fmt.Errorf("%w: available %d", product.ErrInsufficientStock, prod.Stock)
	}

	if userID != nil {
		result := s.db.Model(&CartItem{}).
			Where("user_id = ? AND product_id = ?", *userID, productID).
			Update("quantity", quantity)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrItemNotFound
		}
	} else {
		if err := s.updateGuestCartItem(sessionID, productID, quantity); err != nil {
			return nil, err
		}
	}

	return s.GetCart(userID, sessionID)
}

// RemoveFromCart removes a line item from the cart
func (s *Service) RemoveFromCart(userID *uint, sessionID string, productID uint) (*CartResponse, error) {
	if userID != nil {
		err := s.db.Where("user_id = ? AND product_id = ?", *userID, productID).
			Delete(&CartItem{}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to remove cart item: %w", err)
		}
	} else {
		if err := s.removeGuestCartItem(sessionID, productID); err != nil {
			return nil, err
		}
	}

	return s.GetCart(userID, sessionID)
}

// ClearCart removes all items from the cart
func (s *Service) ClearCart(userID *uint, sessionID string) error {
	if userID != nil {
		return s.db.Where("user_id = ?", *userID).Delete(&CartItem{}).Error
	}

	ctx := context.Background()
	return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
}

// ItemCount returns the total quantity across all cart line items
func (s *Service) ItemCount(userID *uint, sessionID string) (int, error) {
	cartResponse, err := s.GetCart(userID, sessionID)
	if err != nil {
		return 0, err
	}
	return cartResponse.Totals.TotalQuantity, nil
}

// MergeGuestCartToUser merges a guest cart into the user's durable cart when
// the user logs in. Quantities are summed for products present in both; the
// guest cart is deleted afterwards.
func (s *Service) MergeGuestCartToUser(userID uint, sessionID string) error {
	guestCart, err := s.getGuestCart(sessionID)
	if err != nil || len(guestCart.Items) == 0 {
		return nil
	}

	for _, guestItem := range guestCart.Items {
		var existing CartItem
		result := s.db.Where("user_id = ? AND product_id = ?", userID, guestItem.ProductID).
			First(&existing)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			newItem := CartItem{
				UserID:    userID,
				ProductID: guestItem.ProductID,
				Quantity:  guestItem.Quantity,
				Price:     guestItem.Price,
			}
			if err := s.db.Create(&newItem).Error; err != nil {
				return fmt.Errorf("failed to merge cart item: %w", err)
			}
		} else if result.Error != nil {
			return fmt.Errorf("failed to merge cart item: %w", result.Error)
		} else {
			existing.Quantity += guestItem.Quantity
			if err := s.db.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to merge cart item: %w", err)
			}
		}
	}

	return s.ClearCart(nil, sessionID)
}

// Private helper methods

func (s *Service) addToUserCart(userID uint, prod *product.Product, quantity int) error {
	var existing CartItem
	result := s.db.Where("user_id = ? AND product_id = ?", userID, prod.ID).First(&existing)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		newItem := CartItem{
			UserID:    userID,
			ProductID: prod.ID,
			Quantity:  quantity,
			Price:     prod.Price,
		}
		return s.db.Create(&newItem).Error
	}
	if result.Error != nil {
		return fmt.Errorf("failed to look up cart item: %w", result.Error)
	}

	newQuantity := existing.Quantity + quantity
	if !prod.HasStockFor(newQuantity) {
		return fmt.Errorf("%w: available %d", product.ErrInsufficientStock, prod.Stock)
	}

	existing.Quantity = newQuantity
	existing.Price = prod.Price // Refresh in case the catalog price changed
	return s.db.Save(&existing).Error
}

func (s *Service) addToGuestCart(sessionID string, prod *product.Product, quantity int) error {
	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	merged := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID != prod.ID {
			continue
		}

		newQuantity := sessionCart.Items[i].Quantity + quantity
		if !prod.HasStockFor(newQuantity) {
			return fmt.Errorf("%w: available %d", product.ErrInsufficientStock, prod.Stock)
		}

		sessionCart.Items[i].Quantity = newQuantity
		sessionCart.Items[i].Price = prod.Price
		merged = true
		break
	}

	if !merged {
		sessionCart.Items = append(sessionCart.Items, SessionCartItem{
			ProductID: prod.ID,
			Quantity:  quantity,
			Price:     prod.Price,
			AddedAt:   time.Now().UTC(),
		})
	}

	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(sessionID, sessionCart)
}

func (s *Service) updateGuestCartItem(sessionID string, productID uint, quantity int) error {
	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID == productID {
			sessionCart.Items[i].Quantity = quantity
			sessionCart.UpdatedAt = time.Now().UTC()
			return s.saveGuestCart(sessionID, sessionCart)
		}
	}

	return ErrItemNotFound
}

func (s *Service) removeGuestCartItem(sessionID string, productID uint) error {
	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID == productID {
			sessionCart.Items = append(sessionCart.Items[:i], sessionCart.Items[i+1:]...)
			sessionCart.UpdatedAt = time.Now().UTC()
			return s.saveGuestCart(sessionID, sessionCart)
		}
	}

	return nil
}

func (s *Service) getGuestCart(sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID required for guest cart")
	}

	ctx := context.Background()
	cartData, err := s.redisClient.Get(ctx, guestCartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		now := time.Now().UTC()
		return &SessionCart{
			SessionID: sessionID,
			Items:     []SessionCartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve guest cart: %w", err)
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(cartData), &sessionCart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}

	return &sessionCart, nil
}

func (s *Service) saveGuestCart(sessionID string, sessionCart *SessionCart) error {
	cartData, err := json.Marshal(sessionCart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	ctx := context.Background()
	return s.redisClient.Set(ctx, guestCartKey(sessionID), cartData, guestCartTTL).Err()
}

func (s *Service) loadProductDetails(items []CartItemResponse) error {
	for i := range items {
		var prod product.Product
		err := s.db.Preload("Category").Where("id = ?", items[i].ProductID).First(&prod).Error
		if err != nil {
			continue // Product removed from catalog; line item still renders
		}
		items[i].Product = &prod
	}
	return nil
}

func guestCartKey(sessionID string) string {
	return guestCartKeyPrefix + sessionID
}

func calculateTotals(items []CartItemResponse) CartTotals {
	totals := CartTotals{ItemCount: len(items)}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		totals.TotalQuantity += item.Quantity
		lines = append(lines, pricing.Line{
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		})
	}

	totals.Pricing = pricing.Calculate(lines)
	return totals
}
