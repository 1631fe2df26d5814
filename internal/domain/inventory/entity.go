// internal/domain/inventory/entity.go
package inventory

import "time"

// MovementReason classifies why a stock level changed
type MovementReason string

const (
	MovementReasonSale          MovementReason = "sale"
	MovementReasonCancelRestock MovementReason = "cancel_restock"
	MovementReasonManual        MovementReason = "manual"
)

// StockMovement is an append-only audit record of a stock change. Rows are
// written inside the same transaction that changes product stock, so the
// ledger and the stock level can never disagree.
type StockMovement struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ProductID      uint           `gorm:"not null;index" json:"product_id"`
	OrderID        *uint          `gorm:"index" json:"order_id,omitempty"`
	QuantityChange int            `gorm:"not null" json:"quantity_change"` // Negative for sales
	Reason         MovementReason `gorm:"not null;size:50" json:"reason"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName overrides the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}
