// internal/domain/inventory/service.go
package inventory

import (
	"fmt"

	"gorm.io/gorm"
)

// Service records stock movements. Writes take the caller's transaction
// handle so movement rows commit or roll back with the stock change they
// describe.
type Service struct {
	db *gorm.DB
}

// NewService creates a new inventory service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordMovement appends a stock movement within the given transaction
func (s *Service) RecordMovement(tx *gorm.DB, productID uint, orderID *uint, quantityChange int, reason MovementReason) error {
	movement := StockMovement{
		ProductID:      productID,
		OrderID:        orderID,
		QuantityChange: quantityChange,
		Reason:         reason,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

// GetProductMovements returns the movement history for a product, newest first
func (s *Service) GetProductMovements(productID uint, limit int) ([]StockMovement, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var movements []StockMovement
	err := s.db.Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}
	return movements, nil
}
